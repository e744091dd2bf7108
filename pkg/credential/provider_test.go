package credential

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/aliyun/oss-credentials/pkg/metric"
)

var errHalt = errors.New("server halt")

func TestNewCachedProvider_Validation(t *testing.T) {
	f := newFuncFetcher(nil)

	_, err := NewCachedProvider(nil)
	assert.True(t, IsConfigurationError(err))

	for _, factor := range []float64{-0.1, 1.01} {
		_, err = NewCachedProvider(f, WithExpiredFactor(factor))
		assert.True(t, IsConfigurationError(err), factor)
	}
	_, err = NewCachedProvider(f, WithExpiredFactor(1))
	assert.NoError(t, err)

	_, err = NewCachedProvider(f, WithExpiredDuration(-time.Second))
	assert.True(t, IsConfigurationError(err))
}

func TestCachedProvider_EmptyCacheFailure(t *testing.T) {
	f := newFuncFetcher(func(ctx context.Context) (*Credentials, error) {
		return nil, errHalt
	})
	f.name = "EmptyCacheFailure"
	p, err := NewCachedProvider(f)
	require.NoError(t, err)

	assert.Nil(t, p.GetCredentials(context.Background()))
	assert.Nil(t, p.GetCredentials(context.Background()))
	assert.Equal(t, int32(2), f.count.Load())
	assert.True(t, p.LastFetchTime().IsZero())
	assert.Equal(t, float64(2), testutil.ToFloat64(metric.CredentialRefreshCount.WithLabelValues(f.name, metric.RefreshResultFail)))
}

func TestCachedProvider_HotPath(t *testing.T) {
	f := newFuncFetcher(func(ctx context.Context) (*Credentials, error) {
		return NewCredentials("ak", "sk", "token", time.Now().Add(time.Hour)), nil
	})
	f.name = "HotPath"
	p, err := NewCachedProvider(f)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		c := p.GetCredentials(context.Background())
		require.NotNil(t, c)
		assert.Equal(t, "ak", c.AccessKeyID)
	}
	assert.Equal(t, int32(1), f.count.Load())
	assert.False(t, p.LastFetchTime().IsZero())
	assert.Equal(t, float64(9), testutil.ToFloat64(metric.CredentialCacheHitCount.WithLabelValues(f.name)))
}

func TestCachedProvider_ReturnsCopies(t *testing.T) {
	p, err := NewStaticProvider("ak", "sk", "")
	require.NoError(t, err)

	c := p.GetCredentials(context.Background())
	require.NotNil(t, c)
	c.AccessKeyID = "mutated"
	assert.Equal(t, "ak", p.GetCredentials(context.Background()).AccessKeyID)
}

func TestCachedProvider_FailOpenWithStale(t *testing.T) {
	clock := newFakeClock(time.Now())
	fail := atomic.NewBool(false)
	var f *funcFetcher
	f = newFuncFetcher(func(ctx context.Context) (*Credentials, error) {
		if fail.Load() {
			return nil, errHalt
		}
		return NewCredentials(fmt.Sprintf("ak-%d", f.count.Load()), "sk", "token", clock.Now().Add(time.Hour)), nil
	})
	p, err := NewCachedProvider(f, withClock(clock.Now))
	require.NoError(t, err)

	first := p.GetCredentials(context.Background())
	require.NotNil(t, first)
	assert.Equal(t, DefaultExpiredFactor, first.ExpiredFactor)
	assert.Equal(t, DefaultExpiredDuration, first.ExpiredDuration)

	fail.Store(true)
	clock.Add(55 * time.Minute)
	stale := p.GetCredentials(context.Background())
	assert.Equal(t, first, stale)

	// even past expiry the previous value is returned
	clock.Add(time.Hour)
	assert.Equal(t, first, p.GetCredentials(context.Background()))
	assert.Equal(t, int32(3), f.count.Load())

	fail.Store(false)
	fresh := p.GetCredentials(context.Background())
	require.NotNil(t, fresh)
	assert.NotEqual(t, first.AccessKeyID, fresh.AccessKeyID)
}

func TestCachedProvider_FailureRefreshInterval(t *testing.T) {
	clock := newFakeClock(time.Now())
	fail := atomic.NewBool(false)
	f := newFuncFetcher(func(ctx context.Context) (*Credentials, error) {
		if fail.Load() {
			return nil, errHalt
		}
		return NewCredentials("ak", "sk", "", clock.Now().Add(time.Hour)), nil
	})
	p, err := NewCachedProvider(f, withClock(clock.Now), WithFailureRefreshInterval(time.Hour))
	require.NoError(t, err)

	require.NotNil(t, p.GetCredentials(context.Background()))

	fail.Store(true)
	clock.Add(59 * time.Minute)
	for i := 0; i < 5; i++ {
		assert.NotNil(t, p.GetCredentials(context.Background()))
	}
	// the first failure consumes the only token, the rest are throttled
	assert.Equal(t, int32(2), f.count.Load())
}

func TestCachedProvider_ConcurrentRefresh(t *testing.T) {
	for _, fail := range []bool{false, true} {
		t.Run(fmt.Sprintf("fail=%v", fail), func(t *testing.T) {
			clock := newFakeClock(time.Now())
			entered := make(chan struct{}, 1)
			release := make(chan struct{})

			var f *funcFetcher
			f = newFuncFetcher(func(ctx context.Context) (*Credentials, error) {
				n := f.count.Load()
				if n == 1 {
					return NewCredentials("stale", "sk", "", clock.Now().Add(time.Hour)), nil
				}
				entered <- struct{}{}
				<-release
				if fail {
					return nil, errHalt
				}
				return NewCredentials(fmt.Sprintf("fresh-%d", n), "sk", "", clock.Now().Add(time.Hour)), nil
			})
			p, err := NewCachedProvider(f, withClock(clock.Now), WithFailureRefreshInterval(time.Hour))
			require.NoError(t, err)

			require.Equal(t, "stale", p.GetCredentials(context.Background()).AccessKeyID)
			clock.Add(time.Hour)

			const n = 32
			results := make([]*Credentials, n)
			wg := sync.WaitGroup{}
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i] = p.GetCredentials(context.Background())
				}(i)
			}

			<-entered
			time.Sleep(100 * time.Millisecond)
			close(release)
			wg.Wait()

			assert.Equal(t, int32(2), f.count.Load(), "exactly one refresh fetch")
			want := "fresh-2"
			if fail {
				want = "stale"
			}
			for _, c := range results {
				require.NotNil(t, c)
				assert.Equal(t, want, c.AccessKeyID)
			}
		})
	}
}

func TestCachedProvider_CallerCancel(t *testing.T) {
	release := make(chan struct{})
	f := newFuncFetcher(func(ctx context.Context) (*Credentials, error) {
		<-release
		assert.NoError(t, ctx.Err())
		return NewAccessKeyCredentials("ak", "sk"), nil
	})
	p, err := NewCachedProvider(f)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Nil(t, p.GetCredentials(ctx))

	// the shared fetch keeps running and fills the cache
	close(release)
	assert.Eventually(t, func() bool {
		return p.GetCredentials(context.Background()) != nil
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), f.count.Load())
}

func TestCachedProvider_InvalidFetchResult(t *testing.T) {
	f := newFuncFetcher(func(ctx context.Context) (*Credentials, error) {
		return NewAccessKeyCredentials("", "sk"), nil
	})
	p, err := NewCachedProvider(f)
	require.NoError(t, err)
	assert.Nil(t, p.GetCredentials(context.Background()))
}
