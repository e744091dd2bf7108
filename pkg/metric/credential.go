package metric

import "github.com/prometheus/client_golang/prometheus"

var (
	// CredentialFetchLatency latency of a single fetch against a credential source
	CredentialFetchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oss_credential_fetch_latency",
			Help:    "oss credential fetch latency in ms",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"fetcher", "error"},
	)

	// CredentialRefreshCount counter of provider refresh outcomes
	CredentialRefreshCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oss_credential_refresh_count",
			Help: "counter of oss credential provider refresh",
		},
		// result in "succeed", "fail" or "stale"
		[]string{"provider", "result"},
	)

	// CredentialCacheHitCount counter of requests served from the cached snapshot
	CredentialCacheHitCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oss_credential_cache_hit_count",
			Help: "counter of oss credential served from cache",
		},
		[]string{"provider"},
	)

	// SignCount counter of signatures produced
	SignCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oss_sign_count",
			Help: "counter of oss request signatures",
		},
		[]string{"algorithm", "version", "error"},
	)
)

const (
	// RefreshResultSucceed the fetcher returned new credentials
	RefreshResultSucceed = "succeed"
	// RefreshResultFail the fetcher failed and no cache exists
	RefreshResultFail = "fail"
	// RefreshResultStale the fetcher failed and the cached snapshot was served
	RefreshResultStale = "stale"
)

// MetadataLatency aliyun metadata latency
var MetadataLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "aliyun_metadata_latency",
		Help:    "aliyun metadata latency in ms",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	},
	[]string{"url", "error"},
)
