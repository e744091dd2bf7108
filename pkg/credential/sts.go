package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk"
	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/requests"
	"github.com/aliyun/alibaba-cloud-sdk-go/services/sts"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/aliyun/oss-credentials/pkg/version"
)

const (
	stsFetcherName = "STSAssumeRole"

	MinAssumeRoleDuration = 900 * time.Second
	MaxAssumeRoleDuration = 3600 * time.Second
)

// AssumeRoler is the part of the sts client used here.
type AssumeRoler interface {
	AssumeRole(request *sts.AssumeRoleRequest) (*sts.AssumeRoleResponse, error)
}

// STSAssumeRoleFetcher exchanges long-term keys for role credentials.
type STSAssumeRoleFetcher struct {
	client          AssumeRoler
	roleARN         string
	roleSessionName string
	duration        time.Duration
	endpoint        string
}

// NewSTSClient builds the sdk client used by STSAssumeRoleFetcher, requests
// are signed with whatever source yields. The sdk never retries.
func NewSTSClient(regionID string, source Provider) (*sts.Client, error) {
	cfg := sdk.NewConfig().
		WithAutoRetry(false).
		WithScheme("HTTPS").
		WithTimeout(DefaultHTTPTimeout)
	client, err := sts.NewClientWithOptions(regionID, cfg, NewSDKCredentialsProvider(source))
	if err != nil {
		return nil, errors.Wrapf(err, "error create sts client, region %s", regionID)
	}
	client.AppendUserAgent("oss-credentials", version.UA)
	client.SetConnectTimeout(5 * time.Second)
	client.SetReadTimeout(DefaultHTTPTimeout)
	return client, nil
}

func NewSTSAssumeRoleFetcher(client AssumeRoler, roleARN, roleSessionName string, duration time.Duration, endpoint string) *STSAssumeRoleFetcher {
	if roleSessionName == "" {
		roleSessionName = "oss-credentials-" + uuid.NewString()[:8]
	}
	return &STSAssumeRoleFetcher{
		client:          client,
		roleARN:         roleARN,
		roleSessionName: roleSessionName,
		duration:        duration,
		endpoint:        endpoint,
	}
}

func (s *STSAssumeRoleFetcher) Fetch(ctx context.Context) (*Credentials, error) {
	req := sts.CreateAssumeRoleRequest()
	req.Scheme = "https"
	req.RoleArn = s.roleARN
	req.RoleSessionName = s.roleSessionName
	req.DurationSeconds = requests.NewInteger(int(s.duration.Seconds()))
	if s.endpoint != "" {
		req.Domain = s.endpoint
	}

	resp, err := s.client.AssumeRole(req)
	if err != nil {
		return nil, newFetchError(stsFetcherName, FetchErrorSource, err)
	}
	if resp == nil {
		return nil, newFetchError(stsFetcherName, FetchErrorMalformed, fmt.Errorf("empty response"))
	}

	c := resp.Credentials
	if c.AccessKeyId == "" || c.AccessKeySecret == "" {
		return nil, newFetchError(stsFetcherName, FetchErrorMissingField, fmt.Errorf("assume role returned empty key, request id %s", resp.RequestId))
	}
	expiration, err := ParseExpiration(c.Expiration)
	if err != nil {
		return nil, newFetchError(stsFetcherName, FetchErrorMalformed, err)
	}

	out := NewCredentials(c.AccessKeyId, c.AccessKeySecret, c.SecurityToken, expiration)
	out.ExpiredDuration = s.duration
	out.ProviderName = stsFetcherName
	return out, nil
}

func (s *STSAssumeRoleFetcher) Name() string {
	return stsFetcherName
}
