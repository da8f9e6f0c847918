package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
)

// Registry holds the dial-plan pipeline metrics. It implements dialplan.MetricsCollector.
type Registry struct {
	meter metric.Meter

	// Normalizer
	RecordsCounter metric.Int64Counter

	// Compressor
	CompressionDuration metric.Float64Histogram
	CodesCounter        metric.Int64Counter
	PatternsCounter     metric.Int64Counter
	CompressionRatio    metric.Float64ObservableGauge

	// Runs
	RunDuration       metric.Float64Histogram
	RunSuccessCounter metric.Int64Counter
	RunFailureCounter metric.Int64Counter
	LastRunRules      metric.Int64ObservableGauge

	// State for observable metrics and the batch push
	mu       sync.RWMutex
	snapshot Snapshot
}

// Snapshot is the state of the most recent run
type Snapshot struct {
	Rules         int
	Duration      time.Duration
	Succeeded     bool
	FailureReason string
	Codes         map[numbering.Category]int
	Patterns      map[numbering.Category]int
}

// NewRegistry creates a registry on the global meter provider
func NewRegistry(meterName string) (*Registry, error) {
	return NewRegistryWithProvider(otel.GetMeterProvider(), meterName)
}

// NewRegistryWithProvider creates a registry on provider
func NewRegistryWithProvider(provider metric.MeterProvider, meterName string) (*Registry, error) {
	r := &Registry{
		meter: provider.Meter(meterName),
		snapshot: Snapshot{
			Codes:    make(map[numbering.Category]int),
			Patterns: make(map[numbering.Category]int),
		},
	}

	if err := r.initPipelineMetrics(); err != nil {
		return nil, err
	}
	if err := r.initRunMetrics(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) initPipelineMetrics() error {
	var err error

	r.RecordsCounter, err = r.meter.Int64Counter(
		"dialplan.records.total",
		metric.WithDescription("Raw destination records by normalization outcome"),
	)
	if err != nil {
		return err
	}

	r.CompressionDuration, err = r.meter.Float64Histogram(
		"dialplan.compression.duration",
		metric.WithDescription("Duration of compressing one category in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000),
	)
	if err != nil {
		return err
	}

	r.CodesCounter, err = r.meter.Int64Counter(
		"dialplan.compression.codes_total",
		metric.WithDescription("Codes fed to the compressor"),
	)
	if err != nil {
		return err
	}

	r.PatternsCounter, err = r.meter.Int64Counter(
		"dialplan.compression.patterns_total",
		metric.WithDescription("Patterns produced by the compressor"),
	)
	if err != nil {
		return err
	}

	r.CompressionRatio, err = r.meter.Float64ObservableGauge(
		"dialplan.compression.ratio",
		metric.WithDescription("Codes per pattern in the most recent run"),
		metric.WithFloat64Callback(func(ctx context.Context, o metric.Float64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			for _, c := range numbering.Categories {
				if p := r.snapshot.Patterns[c]; p > 0 {
					o.Observe(float64(r.snapshot.Codes[c])/float64(p),
						metric.WithAttributes(attribute.String("category", c.String())))
				}
			}
			return nil
		}),
	)
	return err
}

func (r *Registry) initRunMetrics() error {
	var err error

	r.RunDuration, err = r.meter.Float64Histogram(
		"dialplan.run.duration",
		metric.WithDescription("Duration of a complete generation run in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 50, 100, 500, 1000, 5000, 10000),
	)
	if err != nil {
		return err
	}

	r.RunSuccessCounter, err = r.meter.Int64Counter(
		"dialplan.run.success_total",
		metric.WithDescription("Total number of successful runs"),
	)
	if err != nil {
		return err
	}

	r.RunFailureCounter, err = r.meter.Int64Counter(
		"dialplan.run.failure_total",
		metric.WithDescription("Total number of failed runs"),
	)
	if err != nil {
		return err
	}

	r.LastRunRules, err = r.meter.Int64ObservableGauge(
		"dialplan.run.rules",
		metric.WithDescription("Rules emitted by the most recent successful run"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(int64(r.snapshot.Rules))
			return nil
		}),
	)
	return err
}

// RecordNormalized records normalization outcome counts
func (r *Registry) RecordNormalized(ctx context.Context, accepted, duplicates, skipped int) {
	add := func(outcome string, n int) {
		if n > 0 {
			r.RecordsCounter.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", outcome)))
		}
	}
	add("accepted", accepted)
	add("duplicate", duplicates)
	add("skipped", skipped)
}

// RecordCompression records one category's compression
func (r *Registry) RecordCompression(ctx context.Context, category numbering.Category, codes, patterns int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("category", category.String()))

	r.CompressionDuration.Record(ctx, float64(duration)/float64(time.Millisecond), attrs)
	r.CodesCounter.Add(ctx, int64(codes), attrs)
	r.PatternsCounter.Add(ctx, int64(patterns), attrs)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot.Codes[category] = codes
	r.snapshot.Patterns[category] = patterns
}

// RecordRunCompleted records a successful run
func (r *Registry) RecordRunCompleted(ctx context.Context, rules int, duration time.Duration) {
	r.RunDuration.Record(ctx, float64(duration)/float64(time.Millisecond),
		metric.WithAttributes(attribute.Bool("success", true)))
	r.RunSuccessCounter.Add(ctx, 1)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot.Rules = rules
	r.snapshot.Duration = duration
	r.snapshot.Succeeded = true
	r.snapshot.FailureReason = ""
}

// RecordRunFailed records a failed run by reason
func (r *Registry) RecordRunFailed(ctx context.Context, reason string) {
	r.RunFailureCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot.Succeeded = false
	r.snapshot.FailureReason = reason
}

// Snapshot returns a copy of the most recent run state
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := r.snapshot
	s.Codes = make(map[numbering.Category]int, len(r.snapshot.Codes))
	s.Patterns = make(map[numbering.Category]int, len(r.snapshot.Patterns))
	for c, n := range r.snapshot.Codes {
		s.Codes[c] = n
	}
	for c, n := range r.snapshot.Patterns {
		s.Patterns[c] = n
	}
	return s
}
