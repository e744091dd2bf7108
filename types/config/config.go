package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/utils/ptr"

	"github.com/aliyun/oss-credentials/pkg/aliyun/metadata"
	"github.com/aliyun/oss-credentials/pkg/backoff"
	"github.com/aliyun/oss-credentials/pkg/credential"
)

// DefaultConfigPath is used by the cli when --config is not given and the file exists.
const DefaultConfigPath = "/etc/oss-credentials/config.yaml"

type Config struct {
	RegionID string `json:"regionID" yaml:"regionID"`

	// long-term keys, also the source keys of assume role
	AccessKeyID     string `json:"accessKeyID" validate:"required_with=AccessKeySecret" yaml:"accessKeyID"`
	AccessKeySecret Secret `json:"accessKeySecret" validate:"required_with=AccessKeyID" yaml:"accessKeySecret"`
	SecurityToken   Secret `json:"securityToken" yaml:"securityToken"`

	RoleARN         string `json:"roleARN" validate:"required_with=RoleSessionName" yaml:"roleARN"`
	RoleSessionName string `json:"roleSessionName" validate:"omitempty,max=64" yaml:"roleSessionName"`
	STSEndpoint     string `json:"stsEndpoint" validate:"omitempty,hostname_rfc1123" yaml:"stsEndpoint"`
	DurationSeconds int    `json:"durationSeconds" validate:"gte=900,lte=3600" mod:"default=3600" yaml:"durationSeconds"`

	CredentialsURL string `json:"credentialsURL" validate:"omitempty,url" yaml:"credentialsURL"`

	EncryptedCredentialPath string `json:"encryptedCredentialPath" yaml:"encryptedCredentialPath"`
	SecretNamespace         string `json:"secretNamespace" validate:"required_with=SecretName" yaml:"secretNamespace"`
	SecretName              string `json:"secretName" validate:"required_with=SecretNamespace" yaml:"secretName"`

	ProfileFile string `json:"profileFile" yaml:"profileFile"`
	Profile     string `json:"profile" mod:"default=default" yaml:"profile"`

	ECSRoleName   string `json:"ecsRoleName" yaml:"ecsRoleName"`
	EnableECSRole *bool  `json:"enableECSRole,omitempty" yaml:"enableECSRole,omitempty"`

	// ExpiredDuration seconds, the lifetime assumed by the refresh margin, 0 keeps the default
	ExpiredDuration int     `json:"expiredDuration" validate:"gte=0" yaml:"expiredDuration"`
	ExpiredFactor   float64 `json:"expiredFactor" validate:"gt=0,lte=1" mod:"default=0.1" yaml:"expiredFactor"`
	// FailureRefreshInterval seconds to serve cached credentials after a failed refresh, 0 disables
	FailureRefreshInterval int `json:"failureRefreshInterval" validate:"gte=0" yaml:"failureRefreshInterval"`

	SignatureVersion string `json:"signatureVersion" validate:"oneof=1 2" mod:"default=1" yaml:"signatureVersion"`
	// AdditionalHeaders signed besides the x-oss- ones, version 2 only
	AdditionalHeaders []string `json:"additionalHeaders,omitempty" validate:"dive,required" yaml:"additionalHeaders,omitempty"`
	LogLevel          string   `json:"logLevel" validate:"oneof=trace debug info warn warning error fatal panic" mod:"default=info" yaml:"logLevel"`

	BackoffOverride map[string]wait.Backoff `json:"backoffOverride,omitempty" yaml:"backoffOverride,omitempty"`
}

// Load reads path, an empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return ParseAndValidate(nil)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseAndValidate(b)
}

// ParseAndValidate ready config and verify it
func ParseAndValidate(b []byte) (*Config, error) {
	var c Config
	if len(b) > 0 {
		err := yaml.Unmarshal(b, &c)
		if err != nil {
			return nil, err
		}
	}

	err := Default(&c)
	if err != nil {
		return nil, err
	}

	if c.RegionID == "" && c.RoleARN != "" {
		c.RegionID, err = metadata.GetLocalRegion()
		if err != nil || c.RegionID == "" {
			return nil, fmt.Errorf("error get region from metadata %v", err)
		}
	}

	err = validator.New().Struct(&c)
	if err != nil {
		return nil, err
	}

	backoff.OverrideBackoff(c.BackoffOverride)
	return &c, nil
}

// Default fills zero fields with their defaults.
func Default(c *Config) error {
	err := modifiers.New().Struct(context.Background(), c)
	if err != nil {
		return err
	}
	if c.EnableECSRole == nil {
		c.EnableECSRole = ptr.To(true)
	}
	return nil
}

// ResolveOptions maps the config onto the provider chain.
func (c *Config) ResolveOptions() credential.ResolveOptions {
	return credential.ResolveOptions{
		RegionID:                c.RegionID,
		AccessKeyID:             c.AccessKeyID,
		AccessKeySecret:         string(c.AccessKeySecret),
		SecurityToken:           string(c.SecurityToken),
		RoleARN:                 c.RoleARN,
		RoleSessionName:         c.RoleSessionName,
		STSEndpoint:             c.STSEndpoint,
		DurationSeconds:         c.DurationSeconds,
		CredentialsURL:          c.CredentialsURL,
		EncryptedCredentialPath: c.EncryptedCredentialPath,
		SecretNamespace:         c.SecretNamespace,
		SecretName:              c.SecretName,
		ProfileFile:             c.ProfileFile,
		Profile:                 c.Profile,
		ECSRoleName:             c.ECSRoleName,
		DisableECSRole:          !ptr.Deref(c.EnableECSRole, true),
		ExpiredDuration:         time.Duration(c.ExpiredDuration) * time.Second,
		ExpiredFactor:           c.ExpiredFactor,
		FailureRefreshInterval:  time.Duration(c.FailureRefreshInterval) * time.Second,
	}
}
