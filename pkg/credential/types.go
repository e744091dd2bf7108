package credential

import (
	"context"
	"strings"
	"time"

	"github.com/aliyun/oss-credentials/pkg/logger"
)

var log = logger.WithSubSys("credential")

const (
	// DefaultExpiredDuration is the lifetime assumed for session credentials when
	// computing the early refresh margin.
	DefaultExpiredDuration = 3600 * time.Second
	// DefaultExpiredFactor refresh when 10% of the lifetime is left
	DefaultExpiredFactor = 0.1

	temporaryPrefix = "STS."
)

// Credentials is an immutable snapshot of access key material.
// A zero Expiration means the credentials never expire.
type Credentials struct {
	AccessKeyID     string
	AccessKeySecret string
	SecurityToken   string
	Expiration      time.Time

	// ExpiredDuration and ExpiredFactor control the refresh margin,
	// defaults apply when unset.
	ExpiredDuration time.Duration
	ExpiredFactor   float64

	// ProviderName is the fetcher that issued the snapshot.
	ProviderName string
}

// NewCredentials with optional token and expiration.
func NewCredentials(accessKeyID, accessKeySecret, securityToken string, expiration time.Time) *Credentials {
	return &Credentials{
		AccessKeyID:     accessKeyID,
		AccessKeySecret: accessKeySecret,
		SecurityToken:   securityToken,
		Expiration:      expiration,
	}
}

// NewAccessKeyCredentials long-lived key pair, never expires.
func NewAccessKeyCredentials(accessKeyID, accessKeySecret string) *Credentials {
	return NewCredentials(accessKeyID, accessKeySecret, "", time.Time{})
}

func (c *Credentials) UseSecurityToken() bool {
	return c.SecurityToken != ""
}

// IsTemporary reports whether the key id was issued by STS.
func (c *Credentials) IsTemporary() bool {
	return strings.HasPrefix(c.AccessKeyID, temporaryPrefix)
}

func (c *Credentials) WillSoonExpire() bool {
	return c.WillSoonExpireAt(time.Now())
}

// WillSoonExpireAt is true once now >= Expiration - ExpiredDuration*ExpiredFactor.
func (c *Credentials) WillSoonExpireAt(now time.Time) bool {
	if c.Expiration.IsZero() {
		return false
	}
	return !now.Before(c.Expiration.Add(-c.refreshMargin()))
}

func (c *Credentials) refreshMargin() time.Duration {
	d := c.ExpiredDuration
	if d <= 0 {
		d = DefaultExpiredDuration
	}
	f := c.ExpiredFactor
	if f <= 0 || f > 1 {
		f = DefaultExpiredFactor
	}
	return time.Duration(float64(d) * f)
}

func (c *Credentials) DeepCopy() *Credentials {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}

// MaskAccessKeyID keeps only the last 4 chars, safe for logs.
func MaskAccessKeyID(id string) string {
	if len(id) <= 4 {
		return strings.Repeat("*", len(id))
	}
	return strings.Repeat("*", len(id)-4) + id[len(id)-4:]
}

// Fetcher obtains a fresh snapshot from one credential source.
// Implementations never retry.
type Fetcher interface {
	Fetch(ctx context.Context) (*Credentials, error)
	Name() string
}

// Provider hands out credentials to signing call sites.
// A nil result means no credentials are available.
type Provider interface {
	GetCredentials(ctx context.Context) *Credentials
	Name() string
}
