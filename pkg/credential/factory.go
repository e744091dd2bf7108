package credential

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
	"k8s.io/client-go/kubernetes"
)

var validate = validator.New()

// STSAssumeRoleOptions parameters of the assume role provider.
type STSAssumeRoleOptions struct {
	RegionID        string `validate:"required"`
	AccessKeyID     string `validate:"required"`
	AccessKeySecret string `validate:"required"`
	// SecurityToken when the source keys are themselves temporary
	SecurityToken   string
	RoleARN         string `validate:"required"`
	RoleSessionName string `validate:"omitempty,max=64"`
	// DurationSeconds of the issued credentials
	DurationSeconds int    `validate:"min=900,max=3600" mod:"default=3600"`
	Endpoint        string `validate:"omitempty,hostname_rfc1123"`

	// Client overrides the sdk client, built from the keys above when nil.
	Client AssumeRoler `validate:"-" mod:"-"`
}

type EncryptedOptions struct {
	CredentialPath  string `validate:"required_without_all=SecretNamespace SecretName"`
	SecretNamespace string `validate:"required_without=CredentialPath"`
	SecretName      string `validate:"required_without=CredentialPath"`

	KubeClient kubernetes.Interface `validate:"-" mod:"-"`
}

// validateOptions applies defaults then checks the struct, the first
// violation is reported as a ConfigurationError.
func validateOptions(in interface{}) error {
	if err := modifiers.New().Struct(context.Background(), in); err != nil {
		return &ConfigurationError{Field: "options", Reason: "apply defaults", Err: err}
	}
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		fe := errs[0]
		reason := fe.Tag()
		if fe.Param() != "" {
			reason = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
		}
		return &ConfigurationError{Field: fe.Field(), Reason: fmt.Sprintf("violates %s, got %v", reason, fe.Value()), Err: err}
	}
	return &ConfigurationError{Field: "options", Reason: "invalid", Err: err}
}

// NewStaticProvider long-lived or externally managed keys, token is optional.
func NewStaticProvider(accessKeyID, accessKeySecret, securityToken string, opts ...ProviderOption) (*CachedProvider, error) {
	if accessKeyID == "" {
		return nil, newConfigurationError("accessKeyID", "is required")
	}
	if accessKeySecret == "" {
		return nil, newConfigurationError("accessKeySecret", "is required")
	}
	return NewCachedProvider(NewStaticFetcher(NewCredentials(accessKeyID, accessKeySecret, securityToken, time.Time{})), opts...)
}

// NewSTSAssumeRoleProvider validates every parameter before any network call,
// a duration outside [900, 3600] seconds is rejected.
func NewSTSAssumeRoleProvider(o STSAssumeRoleOptions, opts ...ProviderOption) (*CachedProvider, error) {
	if err := validateOptions(&o); err != nil {
		return nil, err
	}

	client := o.Client
	if client == nil {
		source, err := NewStaticProvider(o.AccessKeyID, o.AccessKeySecret, o.SecurityToken)
		if err != nil {
			return nil, err
		}
		c, err := NewSTSClient(o.RegionID, source)
		if err != nil {
			return nil, &ConfigurationError{Field: "RegionID", Reason: "create sts client", Err: err}
		}
		client = c
	}

	duration := time.Duration(o.DurationSeconds) * time.Second
	fetcher := NewSTSAssumeRoleFetcher(client, o.RoleARN, o.RoleSessionName, duration, o.Endpoint)
	return NewCachedProvider(fetcher, append([]ProviderOption{WithExpiredDuration(duration)}, opts...)...)
}

// NewCustomSessionProvider fetches credentials from url.
func NewCustomSessionProvider(url string, httpClient *http.Client, opts ...ProviderOption) (*CachedProvider, error) {
	if err := validate.Var(url, "required,url"); err != nil {
		return nil, &ConfigurationError{Field: "url", Reason: fmt.Sprintf("%q is not a valid url", url), Err: err}
	}
	return NewCachedProvider(NewHTTPFetcher(url, httpClient), opts...)
}

// NewECSRoleProvider reads the role credentials from instance metadata,
// the first attached role is used when roleName is empty.
func NewECSRoleProvider(roleName string, opts ...ProviderOption) (*CachedProvider, error) {
	return NewCachedProvider(NewECSRoleFetcher(roleName), opts...)
}

func NewEnvProvider(lookup LookupEnv, opts ...ProviderOption) (*CachedProvider, error) {
	return NewCachedProvider(NewEnvFetcher(lookup), opts...)
}

func NewProfileProvider(path, profile string, opts ...ProviderOption) (*CachedProvider, error) {
	return NewCachedProvider(NewProfileFetcher(path, profile), opts...)
}

func NewEncryptedProvider(o EncryptedOptions, opts ...ProviderOption) (*CachedProvider, error) {
	if err := validateOptions(&o); err != nil {
		return nil, err
	}
	if o.CredentialPath == "" && o.KubeClient == nil {
		return nil, newConfigurationError("KubeClient", "is required to read the secret")
	}
	return NewCachedProvider(NewEncryptedFetcher(o.CredentialPath, o.SecretNamespace, o.SecretName, o.KubeClient), opts...)
}
