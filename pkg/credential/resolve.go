package credential

import (
	"net/http"
	"os"
	"time"

	"github.com/samber/lo"
	"k8s.io/client-go/kubernetes"
)

// ResolveOptions every source the default chain may pick from.
type ResolveOptions struct {
	// Provider wins over everything else when set.
	Provider Provider

	RegionID        string
	AccessKeyID     string
	AccessKeySecret string
	SecurityToken   string

	RoleARN         string
	RoleSessionName string
	STSEndpoint     string
	DurationSeconds int

	CredentialsURL string
	HTTPClient     *http.Client

	EncryptedCredentialPath string
	SecretNamespace         string
	SecretName              string
	KubeClient              kubernetes.Interface

	ProfileFile string
	Profile     string

	ECSRoleName string
	// DisableECSRole ends the chain with an error instead of falling back
	// to instance metadata.
	DisableECSRole bool

	// ExpiredDuration is the lifetime assumed for credentials that do not
	// carry their own, sts credentials use DurationSeconds.
	ExpiredDuration        time.Duration
	ExpiredFactor          float64
	FailureRefreshInterval time.Duration

	// LookupEnv defaults to os.LookupEnv.
	LookupEnv LookupEnv
	// FileExists defaults to os.Stat, used to probe the default profile file.
	FileExists func(path string) bool
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func (o *ResolveOptions) providerOptions() []ProviderOption {
	var opts []ProviderOption
	if o.ExpiredDuration > 0 {
		opts = append(opts, WithExpiredDuration(o.ExpiredDuration))
	}
	if o.ExpiredFactor > 0 {
		opts = append(opts, WithExpiredFactor(o.ExpiredFactor))
	}
	if o.FailureRefreshInterval > 0 {
		opts = append(opts, WithFailureRefreshInterval(o.FailureRefreshInterval))
	}
	return opts
}

// Resolve picks the provider for the given options, in order:
// explicit provider, static keys, sts assume role, custom url, encrypted
// config, environment, profile file and ecs ram role.
func Resolve(o ResolveOptions) (Provider, error) {
	if o.Provider != nil {
		return o.Provider, nil
	}
	lookup := lo.Ternary(o.LookupEnv != nil, o.LookupEnv, LookupEnv(os.LookupEnv))
	exists := lo.Ternary(o.FileExists != nil, o.FileExists, fileExists)
	opts := o.providerOptions()

	hasKeys := o.AccessKeyID != "" || o.AccessKeySecret != ""
	switch {
	case hasKeys && o.RoleARN != "":
		return NewSTSAssumeRoleProvider(STSAssumeRoleOptions{
			RegionID:        o.RegionID,
			AccessKeyID:     o.AccessKeyID,
			AccessKeySecret: o.AccessKeySecret,
			SecurityToken:   o.SecurityToken,
			RoleARN:         o.RoleARN,
			RoleSessionName: o.RoleSessionName,
			DurationSeconds: o.DurationSeconds,
			Endpoint:        o.STSEndpoint,
		}, opts...)
	case hasKeys:
		return NewStaticProvider(o.AccessKeyID, o.AccessKeySecret, o.SecurityToken, opts...)
	case o.RoleARN != "":
		return nil, newConfigurationError("accessKeyID", "is required to assume role "+o.RoleARN)
	case o.CredentialsURL != "":
		return NewCustomSessionProvider(o.CredentialsURL, o.HTTPClient, opts...)
	case o.EncryptedCredentialPath != "" || o.SecretName != "":
		return NewEncryptedProvider(EncryptedOptions{
			CredentialPath:  o.EncryptedCredentialPath,
			SecretNamespace: o.SecretNamespace,
			SecretName:      o.SecretName,
			KubeClient:      o.KubeClient,
		}, opts...)
	case HasEnvCredentials(lookup):
		return NewEnvProvider(lookup, opts...)
	}

	profileFile, _ := lo.Coalesce(o.ProfileFile, DefaultProfileFile())
	if o.ProfileFile != "" || exists(profileFile) {
		return NewProfileProvider(profileFile, o.Profile, opts...)
	}

	if o.DisableECSRole {
		return nil, newConfigurationError("credentials", "no credential source configured and ecs ram role is disabled")
	}
	return NewECSRoleProvider(o.ECSRoleName, opts...)
}
