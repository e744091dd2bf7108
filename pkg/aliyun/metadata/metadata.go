package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"k8s.io/client-go/util/retry"

	"github.com/aliyun/oss-credentials/pkg/backoff"
	"github.com/aliyun/oss-credentials/pkg/metric"
)

// Reference https://help.aliyun.com/knowledge_detail/49122.html
const (
	instanceIDPath = "instance-id"
	regionIDPath   = "region-id"
	zoneIDPath     = "zone-id"
	ramRolePath    = "ram/security-credentials/"

	tokenHeader    = "X-aliyun-ecs-metadata-token"
	tokenTTLHeader = "X-aliyun-ecs-metadata-token-ttl-seconds"
	tokenTTL       = 21600
)

var (
	MetadataBase = "http://100.100.100.200/latest/meta-data/"
	TokenURL     = "http://100.100.100.200/latest/api/token"

	// ErrNotFound the metadata server has no such entry
	ErrNotFound = errors.New("not found")

	// HTTPClient used for every metadata request
	HTTPClient = &http.Client{Timeout: 5 * time.Second}
)

type token struct {
	sync.Mutex
	value    string
	expireAt time.Time
}

var defaultToken = &token{}

// get returns a cached token, an empty string means the server does not
// support hardened mode and requests are sent without token.
func (t *token) get(ctx context.Context, refresh bool) string {
	t.Lock()
	defer t.Unlock()

	if !refresh && t.value != "" && time.Now().Before(t.expireAt) {
		return t.value
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, TokenURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set(tokenTTLHeader, fmt.Sprint(tokenTTL))
	resp, err := HTTPClient.Do(req)
	if err != nil {
		t.value = ""
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.value = ""
		return ""
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.value = ""
		return ""
	}
	t.value = strings.TrimSpace(string(body))
	// refresh a minute ahead of server side expiry
	t.expireAt = time.Now().Add(tokenTTL*time.Second - time.Minute)
	return t.value
}

func doGet(ctx context.Context, url string, tk string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if tk != "" {
		req.Header.Set(tokenHeader, tk)
	}
	return HTTPClient.Do(req)
}

func getRaw(ctx context.Context, url string) (body []byte, err error) {
	if !strings.HasPrefix(url, MetadataBase) {
		url = MetadataBase + url
	}
	start := time.Now()
	defer func() {
		metric.MetadataLatency.WithLabelValues(url, fmt.Sprint(err != nil)).Observe(metric.MsSince(start))
	}()

	resp, err := doGet(ctx, url, defaultToken.get(ctx, false))
	if err != nil {
		return nil, fmt.Errorf("error get url: %s from metaserver. %w", url, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// token expired on server side, retry once with a new one
		resp.Body.Close()
		resp, err = doGet(ctx, url, defaultToken.get(ctx, true))
		if err != nil {
			return nil, fmt.Errorf("error get url: %s from metaserver. %w", url, err)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("error get url: %s from metaserver, code: %v, %w", url, resp.StatusCode, ErrNotFound)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("error get url: %s from metaserver, code: %v", url, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func getValue(ctx context.Context, url string) (string, error) {
	body, err := getRaw(ctx, url)
	if err != nil {
		return "", err
	}
	result := strings.Split(string(body), "\n")
	return strings.Trim(result[0], "/"), nil
}

// getAttribute retries instance attributes, which never change for the
// life of the instance. Missing entries are not retried.
func getAttribute(ctx context.Context, url string) (string, error) {
	var value string
	err := retry.OnError(backoff.Backoff(backoff.MetadataRequest), func(err error) bool {
		return !errors.Is(err, ErrNotFound) && ctx.Err() == nil
	}, func() error {
		var innerErr error
		value, innerErr = getValue(ctx, url)
		return innerErr
	})
	return value, err
}

// GetLocalInstanceID get instance id of this node
func GetLocalInstanceID() (string, error) {
	return getAttribute(context.Background(), instanceIDPath)
}

// GetLocalRegion get region id of this node
func GetLocalRegion() (string, error) {
	return getAttribute(context.Background(), regionIDPath)
}

// GetLocalZone get zone of this node
func GetLocalZone() (string, error) {
	return getAttribute(context.Background(), zoneIDPath)
}

// GetRAMRoleName returns the first ram role attached to this instance.
func GetRAMRoleName(ctx context.Context) (string, error) {
	name, err := getValue(ctx, ramRolePath)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("no ram role attached to instance, %w", ErrNotFound)
	}
	return name, nil
}

// GetRAMRoleCredentials returns the raw json document of the role credentials.
func GetRAMRoleCredentials(ctx context.Context, roleName string) ([]byte, error) {
	if roleName == "" {
		return nil, fmt.Errorf("empty ram role name")
	}
	return getRaw(ctx, ramRolePath+roleName)
}
