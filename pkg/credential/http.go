package credential

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aliyun/oss-credentials/pkg/version"
)

const (
	customFetcherName = "CustomSession"

	// DefaultHTTPTimeout bounds a single credential request
	DefaultHTTPTimeout = 10 * time.Second
)

// HTTPFetcher reads session credentials from an operator provided endpoint.
type HTTPFetcher struct {
	url    string
	client *http.Client
}

func NewHTTPFetcher(url string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &HTTPFetcher{url: url, client: client}
}

func (h *HTTPFetcher) Fetch(ctx context.Context) (*Credentials, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, newFetchError(customFetcherName, FetchErrorNetwork, err)
	}
	req.Header.Set("User-Agent", version.UA)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, newFetchError(customFetcherName, FetchErrorNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newFetchError(customFetcherName, FetchErrorNetwork, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		e := newFetchError(customFetcherName, FetchErrorStatus, fmt.Errorf("unexpected response %s", string(body)))
		e.StatusCode = resp.StatusCode
		return nil, e
	}
	return parseSessionPayload(customFetcherName, body)
}

func (h *HTTPFetcher) Name() string {
	return customFetcherName
}
