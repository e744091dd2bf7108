package main

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsTable(t *testing.T) {
	r := prometheus.NewRegistry()

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "oss_test_count"}, []string{"provider", "result"})
	counter.WithLabelValues("Static", "succeed").Add(2)
	hist := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "aliyun_metadata_test_latency"})
	hist.Observe(3)
	other := prometheus.NewCounter(prometheus.CounterOpts{Name: "unrelated_total"})
	other.Inc()
	r.MustRegister(counter, hist, other)

	data, err := metricsTable(r)
	require.NoError(t, err)

	require.Len(t, data, 3)
	assert.Equal(t, []string{"Metric", "Labels", "Value"}, data[0])
	assert.Equal(t, []string{"aliyun_metadata_test_latency", "", "count=1 sum=3.00ms"}, data[1])
	assert.Equal(t, []string{"oss_test_count", "provider=Static,result=succeed", "2"}, data[2])
}

func TestRenderMetrics(t *testing.T) {
	assert.NoError(t, renderMetrics(prometheus.NewRegistry()))
}
