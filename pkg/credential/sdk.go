package credential

import (
	"context"
	"time"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/auth/credentials"
)

var _ credentials.CredentialsProvider = &SDKCredentialsProvider{}

// SDKCredentialsProvider lets alibaba-cloud-sdk-go clients share a Provider.
type SDKCredentialsProvider struct {
	provider Provider
	timeout  time.Duration
}

func NewSDKCredentialsProvider(p Provider) *SDKCredentialsProvider {
	return &SDKCredentialsProvider{provider: p, timeout: 15 * time.Second}
}

func (a *SDKCredentialsProvider) GetCredentials() (*credentials.Credentials, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	cr := a.provider.GetCredentials(ctx)
	if cr == nil {
		return nil, ErrNoCredentials
	}
	return &credentials.Credentials{
		AccessKeyId:     cr.AccessKeyID,
		AccessKeySecret: cr.AccessKeySecret,
		SecurityToken:   cr.SecurityToken,
		ProviderName:    a.provider.Name(),
	}, nil
}

func (a *SDKCredentialsProvider) GetProviderName() string {
	return a.provider.Name()
}
