package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MsSince returns milliseconds since start.
func MsSince(start time.Time) float64 {
	return float64(time.Since(start) / time.Millisecond)
}

// RegisterPrometheus register credential metrics to the given registerer,
// prometheus.DefaultRegisterer is used when r is nil.
func RegisterPrometheus(r prometheus.Registerer) {
	if r == nil {
		r = prometheus.DefaultRegisterer
	}
	r.MustRegister(CredentialFetchLatency)
	r.MustRegister(CredentialRefreshCount)
	r.MustRegister(CredentialCacheHitCount)
	r.MustRegister(SignCount)
	r.MustRegister(MetadataLatency)
}
