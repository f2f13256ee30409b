package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type metrics struct {
	registry  *prometheus.Registry
	compiles  *prometheus.CounterVec
	workflows prometheus.Gauge
	published *prometheus.CounterVec
	duration  prometheus.Histogram
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		compiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datajob",
			Name:      "compiles_total",
			Help:      "Stack compilations by result.",
		}, []string{"result"}),
		workflows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "datajob",
			Name:      "workflows",
			Help:      "Workflows in the last successful compilation.",
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datajob",
			Name:      "published_total",
			Help:      "Published workflow definitions by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "datajob",
			Name:      "compile_duration_seconds",
			Help:      "Time spent compiling the stack.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.compiles, m.workflows, m.published, m.duration,
		collectors.NewGoCollector(),
	)
	return m
}
