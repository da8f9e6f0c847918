package dialplan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/davidleathers/nanp-dialplan/internal/domain/errors"
	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
)

// Options configures the pipeline
type Options struct {
	Normalizer NormalizerOptions
	Compressor CompressorOptions
	Plans      PlanBook
	Dialect    Dialect
	Target     Target
	// Sequential compresses categories one after another instead of concurrently.
	Sequential bool
}

// service implements the Service interface
type service struct {
	source     RecordSource
	sink       RuleSink
	metrics    MetricsCollector
	normalizer *Normalizer
	compressor *Compressor
	opts       Options
	tracer     trace.Tracer
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a new dial-plan service. source and sink may be nil when only
// Generate is used; metrics may be nil.
func NewService(
	source RecordSource,
	sink RuleSink,
	metrics MetricsCollector,
	opts Options,
	logger *slog.Logger,
) Service {
	if opts.Dialect == nil {
		opts.Dialect = UCMDialect{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		source:     source,
		sink:       sink,
		metrics:    metrics,
		normalizer: NewNormalizer(opts.Normalizer),
		compressor: NewCompressor(opts.Compressor),
		opts:       opts,
		tracer:     otel.Tracer("dialplan"),
		logger:     logger,
		now:        time.Now,
	}
}

// Generate runs normalize, classify, compress and render, then verifies the result.
// Any error aborts the whole run; no partial rule set is returned.
func (s *service) Generate(ctx context.Context, home numbering.HomeContext, raw []numbering.RawRecord) (*GenerateResult, error) {
	ctx, span := s.tracer.Start(ctx, "dialplan.Generate", trace.WithAttributes(
		attribute.String("home", home.String()),
		attribute.Int("records", len(raw)),
	))
	defer span.End()

	start := s.now()
	result, err := s.generate(ctx, home, raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if s.metrics != nil {
			s.metrics.RecordRunFailed(ctx, failureReason(err))
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordRunCompleted(ctx, len(result.RuleSet.Rules), s.now().Sub(start))
	}
	span.SetAttributes(attribute.Int("rules", len(result.RuleSet.Rules)))
	return result, nil
}

func (s *service) generate(ctx context.Context, home numbering.HomeContext, raw []numbering.RawRecord) (*GenerateResult, error) {
	records, report, err := s.normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}
	for _, skipped := range report.Skipped {
		s.logger.WarnContext(ctx, "skipping malformed record", "error", skipped.Message, "details", skipped.Details)
	}
	if s.metrics != nil {
		s.metrics.RecordNormalized(ctx, report.Accepted, report.Duplicates, len(report.Skipped))
	}

	classified := Classify(home, records)

	patterns, err := s.compressAll(ctx, classified)
	if err != nil {
		return nil, err
	}

	plan := s.opts.Plans.Lookup(home.NPA)
	renderer := NewRenderer(home, plan, s.opts.Dialect, s.opts.Target)

	var rules []numbering.TransformationRule
	for i, c := range numbering.Categories {
		rendered, err := renderer.Render(c, patterns[i])
		if err != nil {
			return nil, err
		}
		rules = append(rules, rendered...)
	}

	if err := Verify(classified, s.opts.Dialect, rules); err != nil {
		return nil, err
	}

	ruleSet := &numbering.RuleSet{
		RunID:       uuid.New(),
		Home:        home,
		Dialect:     s.opts.Dialect.Name(),
		Partition:   renderer.Partition(),
		Kind:        s.opts.Target.Kind,
		RouteList:   renderer.RouteList(),
		GeneratedAt: s.now().UTC(),
		Rules:       rules,
	}

	s.logger.InfoContext(ctx, "rule set generated",
		"run_id", ruleSet.RunID.String(),
		"home", home.String(),
		"plan", plan.Name,
		"records", report.Accepted,
		"duplicates", report.Duplicates,
		"rules", len(rules),
		"digest", ruleSet.Digest())

	return &GenerateResult{RuleSet: ruleSet, Classified: classified, Report: report}, nil
}

// compressAll compresses the four categories independently. Results are indexed in
// category order so the merge is deterministic regardless of completion order.
func (s *service) compressAll(ctx context.Context, set *numbering.ClassifiedSet) ([][]numbering.DigitPattern, error) {
	results := make([][]numbering.DigitPattern, len(numbering.Categories))

	g, gctx := errgroup.WithContext(ctx)
	if s.opts.Sequential {
		g.SetLimit(1)
	}
	for i, c := range numbering.Categories {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, span := s.tracer.Start(gctx, "dialplan.Compress", trace.WithAttributes(
				attribute.String("category", c.String()),
				attribute.Int("codes", set.Len(c)),
			))
			defer span.End()

			start := s.now()
			patterns, err := s.compressor.Compress(c, set.Codes(c))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}
			span.SetAttributes(attribute.Int("patterns", len(patterns)))
			if s.metrics != nil {
				s.metrics.RecordCompression(gctx, c, set.Len(c), len(patterns), s.now().Sub(start))
			}
			results[i] = patterns
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Run fetches, generates and provisions. The sink is only called with a verified rule set.
func (s *service) Run(ctx context.Context, home numbering.HomeContext) (*RunResult, error) {
	if s.source == nil {
		return nil, errors.NewInternalError("no record source configured")
	}

	ctx, span := s.tracer.Start(ctx, "dialplan.Run", trace.WithAttributes(
		attribute.String("home", home.String()),
		attribute.String("source", s.source.Name()),
	))
	defer span.End()

	raw, err := s.source.Fetch(ctx, home)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if s.metrics != nil {
			s.metrics.RecordRunFailed(ctx, "source")
		}
		return nil, fmt.Errorf("fetching records from %s: %w", s.source.Name(), err)
	}
	s.logger.InfoContext(ctx, "records fetched", "source", s.source.Name(), "home", home.String(), "records", len(raw))

	generated, err := s.Generate(ctx, home, raw)
	if err != nil {
		return nil, err
	}

	result := &RunResult{GenerateResult: generated, Source: s.source.Name()}
	if s.sink == nil {
		return result, nil
	}

	applied, err := s.sink.Apply(ctx, generated.RuleSet)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if s.metrics != nil {
			s.metrics.RecordRunFailed(ctx, "sink")
		}
		return nil, fmt.Errorf("applying rules to %s: %w", s.sink.Name(), err)
	}
	result.Apply = applied

	s.logger.InfoContext(ctx, "rule set applied",
		"sink", s.sink.Name(),
		"run_id", generated.RuleSet.RunID.String(),
		"added", len(applied.Added),
		"removed", len(applied.Removed),
		"kept", applied.Kept,
		"read_only", applied.ReadOnly)

	return result, nil
}

func failureReason(err error) string {
	switch {
	case errors.IsType(err, errors.ErrorTypeMalformed):
		return "malformed_record"
	case errors.IsType(err, errors.ErrorTypeConflict):
		return "conflicting_billing_class"
	case errors.IsType(err, errors.ErrorTypeUnrepresentable):
		return "unrepresentable_pattern"
	default:
		return "internal"
	}
}
