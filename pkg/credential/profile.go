package credential

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/ini.v1"
)

const (
	profileFetcherName = "Profile"

	DefaultProfile = "default"
)

// DefaultProfileFile is ~/.alibabacloud/credentials
func DefaultProfileFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".alibabacloud", "credentials")
}

// ProfileFetcher reads a section of an ini credentials file:
//
//	[default]
//	access_key_id = ...
//	access_key_secret = ...
//	security_token = ...
type ProfileFetcher struct {
	path    string
	profile string
}

func NewProfileFetcher(path, profile string) *ProfileFetcher {
	if path == "" {
		path = DefaultProfileFile()
	}
	if profile == "" {
		profile = DefaultProfile
	}
	return &ProfileFetcher{path: path, profile: profile}
}

func (p *ProfileFetcher) Fetch(ctx context.Context) (*Credentials, error) {
	cfg, err := ini.Load(p.path)
	if err != nil {
		return nil, newFetchError(profileFetcherName, FetchErrorSource, fmt.Errorf("load %s: %w", p.path, err))
	}
	section, err := cfg.GetSection(p.profile)
	if err != nil {
		return nil, newFetchError(profileFetcherName, FetchErrorMissingField, fmt.Errorf("profile %s: %w", p.profile, err))
	}

	ak := section.Key("access_key_id").String()
	sk := section.Key("access_key_secret").String()
	if ak == "" || sk == "" {
		return nil, newFetchError(profileFetcherName, FetchErrorMissingField, fmt.Errorf("profile %s has no access key", p.profile))
	}
	c := NewCredentials(ak, sk, section.Key("security_token").String(), time.Time{})
	c.ProviderName = profileFetcherName
	return c, nil
}

func (p *ProfileFetcher) Name() string {
	return profileFetcherName
}
