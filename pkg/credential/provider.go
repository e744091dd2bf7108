package credential

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/aliyun/oss-credentials/pkg/metric"
)

const refreshKey = "refresh"

type ProviderOption func(p *CachedProvider)

// WithExpiredDuration sets the lifetime used for the refresh margin when the
// fetcher does not report one.
func WithExpiredDuration(d time.Duration) ProviderOption {
	return func(p *CachedProvider) {
		p.expiredDuration = d
	}
}

// WithExpiredFactor sets the fraction of the lifetime refreshed ahead of expiry.
func WithExpiredFactor(f float64) ProviderOption {
	return func(p *CachedProvider) {
		p.expiredFactor = f
	}
}

// WithFailureRefreshInterval after a failed refresh, serve the cached snapshot
// without calling the fetcher for d.
func WithFailureRefreshInterval(d time.Duration) ProviderOption {
	return func(p *CachedProvider) {
		if d > 0 {
			p.failureLimiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

func WithTracer(tracer trace.Tracer) ProviderOption {
	return func(p *CachedProvider) {
		p.tracer = tracer
	}
}

func withClock(now func() time.Time) ProviderOption {
	return func(p *CachedProvider) {
		p.now = now
	}
}

// CachedProvider caches the snapshot of one fetcher and refreshes it when it
// is about to expire. At most one fetch is in flight per provider, readers of
// a fresh snapshot never block.
type CachedProvider struct {
	fetcher Fetcher

	expiredDuration time.Duration
	expiredFactor   float64

	cache     atomic.Pointer[Credentials]
	lastFetch atomic.Time

	failed         atomic.Bool
	failureLimiter *rate.Limiter

	single singleflight.Group
	tracer trace.Tracer
	now    func() time.Time
}

var _ Provider = &CachedProvider{}

func NewCachedProvider(fetcher Fetcher, opts ...ProviderOption) (*CachedProvider, error) {
	if fetcher == nil {
		return nil, newConfigurationError("fetcher", "is required")
	}
	p := &CachedProvider{
		fetcher:         fetcher,
		expiredDuration: DefaultExpiredDuration,
		expiredFactor:   DefaultExpiredFactor,
		tracer:          otel.Tracer("oss-credentials"),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.expiredFactor <= 0 || p.expiredFactor > 1 {
		return nil, newConfigurationError("expiredFactor", fmt.Sprintf("%v is not in (0,1]", p.expiredFactor))
	}
	if p.expiredDuration <= 0 {
		return nil, newConfigurationError("expiredDuration", fmt.Sprintf("%v must be positive", p.expiredDuration))
	}
	return p, nil
}

func (p *CachedProvider) Name() string {
	return p.fetcher.Name()
}

// LastFetchTime of the last successful fetch, zero if none.
func (p *CachedProvider) LastFetchTime() time.Time {
	return p.lastFetch.Load()
}

// GetCredentials returns a private copy of the cached snapshot, refreshing
// it first when it is missing or about to expire. When the refresh fails the
// previous snapshot is returned, nil if there never was one.
func (p *CachedProvider) GetCredentials(ctx context.Context) *Credentials {
	if c := p.cache.Load(); c != nil && !c.WillSoonExpireAt(p.now()) {
		metric.CredentialCacheHitCount.WithLabelValues(p.Name()).Inc()
		return c.DeepCopy()
	}

	// the fetch is shared by every waiter, one caller leaving must not cancel it
	fetchCtx := context.WithoutCancel(ctx)
	ch := p.single.DoChan(refreshKey, func() (interface{}, error) {
		return p.refresh(fetchCtx), nil
	})

	select {
	case r := <-ch:
		c, _ := r.Val.(*Credentials)
		return c.DeepCopy()
	case <-ctx.Done():
		return p.cache.Load().DeepCopy()
	}
}

func (p *CachedProvider) refresh(ctx context.Context) *Credentials {
	cached := p.cache.Load()
	if cached != nil && !cached.WillSoonExpireAt(p.now()) {
		return cached
	}
	l := log.WithField("fetcher", p.Name())

	if cached != nil && p.throttled() {
		metric.CredentialRefreshCount.WithLabelValues(p.Name(), metric.RefreshResultStale).Inc()
		return cached
	}

	c, err := p.fetch(ctx)
	if err != nil {
		p.failed.Store(true)
		if p.failureLimiter != nil {
			p.failureLimiter.Allow()
		}
		if cached != nil {
			l.Warnf("refresh credentials failed, serve cached %s, %v", MaskAccessKeyID(cached.AccessKeyID), err)
			metric.CredentialRefreshCount.WithLabelValues(p.Name(), metric.RefreshResultStale).Inc()
			return cached
		}
		l.Errorf("fetch credentials failed, %v", err)
		metric.CredentialRefreshCount.WithLabelValues(p.Name(), metric.RefreshResultFail).Inc()
		return nil
	}

	if c.ExpiredDuration <= 0 {
		c.ExpiredDuration = p.expiredDuration
	}
	c.ExpiredFactor = p.expiredFactor
	if c.ProviderName == "" {
		c.ProviderName = p.Name()
	}

	p.cache.Store(c)
	p.lastFetch.Store(p.now())
	p.failed.Store(false)
	metric.CredentialRefreshCount.WithLabelValues(p.Name(), metric.RefreshResultSucceed).Inc()
	l.Debugf("credentials refreshed %s, expiration %s", MaskAccessKeyID(c.AccessKeyID), c.Expiration)
	return c
}

// throttled is true while a failed refresh is within the failure interval.
func (p *CachedProvider) throttled() bool {
	if p.failureLimiter == nil || !p.failed.Load() {
		return false
	}
	return !p.failureLimiter.Allow()
}

func (p *CachedProvider) fetch(ctx context.Context) (*Credentials, error) {
	ctx, span := p.tracer.Start(ctx, "FetchCredentials", trace.WithAttributes(attribute.String("fetcher", p.Name())))
	defer span.End()

	start := time.Now()
	c, err := p.fetcher.Fetch(ctx)
	if err == nil && (c == nil || c.AccessKeyID == "" || c.AccessKeySecret == "") {
		err = newFetchError(p.Name(), FetchErrorMissingField, fmt.Errorf("empty access key"))
	}
	metric.CredentialFetchLatency.WithLabelValues(p.Name(), fmt.Sprint(err != nil)).Observe(metric.MsSince(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return c.DeepCopy(), nil
}
