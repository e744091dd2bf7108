package credential

import (
	"context"
	"fmt"
)

const staticFetcherName = "Static"

// StaticFetcher returns the same credentials on every call.
type StaticFetcher struct {
	creds *Credentials
}

// NewStaticFetcher copies creds, a nil creds yields a fetcher that always fails.
func NewStaticFetcher(creds *Credentials) *StaticFetcher {
	c := creds.DeepCopy()
	if c != nil {
		c.ProviderName = staticFetcherName
	}
	return &StaticFetcher{creds: c}
}

func (s *StaticFetcher) Fetch(ctx context.Context) (*Credentials, error) {
	if s.creds == nil {
		return nil, newFetchError(staticFetcherName, FetchErrorMissingField, fmt.Errorf("no static credentials"))
	}
	return s.creds.DeepCopy(), nil
}

func (s *StaticFetcher) Name() string {
	return staticFetcherName
}
