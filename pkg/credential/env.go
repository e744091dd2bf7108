package credential

import (
	"context"
	"fmt"
	"os"
	"time"
)

const envFetcherName = "Environment"

// credential environment variables, OSS_* takes precedence
const (
	EnvOSSAccessKeyID     = "OSS_ACCESS_KEY_ID"
	EnvOSSAccessKeySecret = "OSS_ACCESS_KEY_SECRET"
	EnvOSSSessionToken    = "OSS_SESSION_TOKEN"

	EnvAlibabaCloudAccessKeyID     = "ALIBABA_CLOUD_ACCESS_KEY_ID"
	EnvAlibabaCloudAccessKeySecret = "ALIBABA_CLOUD_ACCESS_KEY_SECRET"
	EnvAlibabaCloudSecurityToken   = "ALIBABA_CLOUD_SECURITY_TOKEN"
)

// LookupEnv matches os.LookupEnv.
type LookupEnv func(key string) (string, bool)

var envGroups = [][3]string{
	{EnvOSSAccessKeyID, EnvOSSAccessKeySecret, EnvOSSSessionToken},
	{EnvAlibabaCloudAccessKeyID, EnvAlibabaCloudAccessKeySecret, EnvAlibabaCloudSecurityToken},
}

// EnvFetcher reads key material from environment variables on every fetch.
type EnvFetcher struct {
	lookup LookupEnv
}

func NewEnvFetcher(lookup LookupEnv) *EnvFetcher {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &EnvFetcher{lookup: lookup}
}

func (e *EnvFetcher) Fetch(ctx context.Context) (*Credentials, error) {
	c := envCredentials(e.lookup)
	if c == nil {
		return nil, newFetchError(envFetcherName, FetchErrorMissingField, fmt.Errorf("%s or %s is not set", EnvOSSAccessKeyID, EnvAlibabaCloudAccessKeyID))
	}
	return c, nil
}

func (e *EnvFetcher) Name() string {
	return envFetcherName
}

func envCredentials(lookup LookupEnv) *Credentials {
	for _, g := range envGroups {
		ak, _ := lookup(g[0])
		sk, _ := lookup(g[1])
		if ak == "" || sk == "" {
			continue
		}
		token, _ := lookup(g[2])
		c := NewCredentials(ak, sk, token, time.Time{})
		c.ProviderName = envFetcherName
		return c
	}
	return nil
}

// HasEnvCredentials reports whether a complete key pair is present.
func HasEnvCredentials(lookup LookupEnv) bool {
	return envCredentials(lookup) != nil
}
