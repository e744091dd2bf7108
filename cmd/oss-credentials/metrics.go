package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
)

// only families registered by pkg/metric are shown
var metricPrefixes = []string{"oss_", "aliyun_metadata_"}

func renderMetrics(g prometheus.Gatherer) error {
	data, err := metricsTable(g)
	if err != nil {
		return err
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func metricsTable(g prometheus.Gatherer) (pterm.TableData, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}

	data := pterm.TableData{{"Metric", "Labels", "Value"}}
	for _, mf := range families {
		if !lo.SomeBy(metricPrefixes, func(p string) bool { return strings.HasPrefix(mf.GetName(), p) }) {
			continue
		}
		for _, m := range mf.GetMetric() {
			data = append(data, []string{mf.GetName(), labels(m.GetLabel()), value(mf.GetType(), m)})
		}
	}
	return data, nil
}

func labels(pairs []*dto.LabelPair) string {
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.GetName()+"="+p.GetValue())
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

func value(t dto.MetricType, m *dto.Metric) string {
	switch t {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%g", m.GetCounter().GetValue())
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%g", m.GetGauge().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		return fmt.Sprintf("count=%d sum=%.2fms", h.GetSampleCount(), h.GetSampleSum())
	case dto.MetricType_SUMMARY:
		s := m.GetSummary()
		return fmt.Sprintf("count=%d sum=%.2fms", s.GetSampleCount(), s.GetSampleSum())
	default:
		return ""
	}
}
