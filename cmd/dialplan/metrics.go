package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
	"github.com/davidleathers/nanp-dialplan/internal/infrastructure/config"
	"github.com/davidleathers/nanp-dialplan/internal/metrics"
)

// runMetrics are the batch-run gauges pushed to the Pushgateway after every run
type runMetrics struct {
	registry *prometheus.Registry

	lastRunSuccess  prometheus.Gauge
	lastRunDuration prometheus.Gauge
	lastRunRules    prometheus.Gauge
	lastRunTime     prometheus.Gauge
	codes           *prometheus.GaugeVec
	patterns        *prometheus.GaugeVec
	failures        *prometheus.GaugeVec
}

func newRunMetrics() *runMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &runMetrics{
		registry: reg,
		lastRunSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "nanp",
			Subsystem: "dialplan",
			Name:      "last_run_success",
			Help:      "1 if the last run succeeded, 0 otherwise",
		}),
		lastRunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "nanp",
			Subsystem: "dialplan",
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last run",
		}),
		lastRunRules: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "nanp",
			Subsystem: "dialplan",
			Name:      "last_run_rules",
			Help:      "Rules emitted by the last successful run",
		}),
		lastRunTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "nanp",
			Subsystem: "dialplan",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
		codes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nanp",
			Subsystem: "dialplan",
			Name:      "codes",
			Help:      "Codes per category in the last run",
		}, []string{"category"}),
		patterns: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nanp",
			Subsystem: "dialplan",
			Name:      "patterns",
			Help:      "Patterns per category in the last run",
		}, []string{"category"}),
		failures: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nanp",
			Subsystem: "dialplan",
			Name:      "last_run_failure",
			Help:      "1 for the failure reason of the last run",
		}, []string{"reason"}),
	}
}

func (m *runMetrics) observe(snap metrics.Snapshot, elapsed time.Duration, finished time.Time) {
	m.lastRunDuration.Set(elapsed.Seconds())
	m.lastRunTime.Set(float64(finished.Unix()))
	if snap.Succeeded {
		m.lastRunSuccess.Set(1)
		m.lastRunRules.Set(float64(snap.Rules))
	} else {
		m.lastRunSuccess.Set(0)
		m.failures.WithLabelValues(snap.FailureReason).Set(1)
	}
	for _, c := range numbering.Categories {
		m.codes.WithLabelValues(c.String()).Set(float64(snap.Codes[c]))
		m.patterns.WithLabelValues(c.String()).Set(float64(snap.Patterns[c]))
	}
}

// pushRunMetrics pushes the run gauges when a Pushgateway is configured
func pushRunMetrics(ctx context.Context, cfg config.MetricsConfig, home numbering.HomeContext, snap metrics.Snapshot, elapsed time.Duration) error {
	if cfg.PushgatewayURL == "" {
		return nil
	}

	m := newRunMetrics()
	m.observe(snap, elapsed, time.Now())

	return push.New(cfg.PushgatewayURL, cfg.Job).
		Gatherer(m.registry).
		Grouping("home", home.String()).
		PushContext(ctx)
}
