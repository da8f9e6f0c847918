package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/davidleathers/nanp-dialplan/internal/domain/errors"
	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
	"github.com/davidleathers/nanp-dialplan/internal/infrastructure/config"
	"github.com/davidleathers/nanp-dialplan/internal/infrastructure/telemetry"
	"github.com/davidleathers/nanp-dialplan/internal/metrics"
	"github.com/davidleathers/nanp-dialplan/internal/service/dialplan"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// options are the command-line overrides applied on top of the configuration
type options struct {
	configPath    string
	npa           string
	nxx           string
	npanxx        string
	sourceFile    string
	sink          string
	dialect       string
	format        string
	readOnly      bool
	patternsOnly  bool
	hnpa10d       bool
	skipMalformed bool
	multiRange    bool
	routePattern  bool
	sequential    bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("dialplan", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.configPath, "config", config.DefaultPath, "Path to configuration file")
	fs.StringVar(&o.npa, "npa", "", "Home NPA")
	fs.StringVar(&o.nxx, "nxx", "", "Home NXX")
	fs.StringVar(&o.npanxx, "npanxx", "", "Home NPA-NXX in one value, e.g. 816-555")
	fs.StringVar(&o.sourceFile, "source-file", "", "Read destination records from a CSV file instead of the data source")
	fs.StringVar(&o.sink, "sink", "", "Provisioning sink: writer or store")
	fs.StringVar(&o.dialect, "dialect", "", "Platform dialect: ucm or ios")
	fs.StringVar(&o.format, "format", "", "Writer output format: text, json or patterns")
	fs.BoolVar(&o.readOnly, "readonly", false, "Compute and log provisioning changes without writing them")
	fs.BoolVar(&o.patternsOnly, "patterns-only", false, "Print the match patterns and exit")
	fs.BoolVar(&o.hnpa10d, "hnpa10d", false, "Send home-NPA local calls as 10D")
	fs.BoolVar(&o.skipMalformed, "skip-malformed", false, "Drop malformed records instead of failing")
	fs.BoolVar(&o.multiRange, "multi-range", false, "Allow several digit runs in one bracket")
	fs.BoolVar(&o.routePattern, "routepattern", false, "Provision route patterns through the route list instead of transformation patterns")
	fs.BoolVar(&o.sequential, "sequential", false, "Compress categories one at a time instead of concurrently")

	if err := fs.Parse(args); err != nil {
		return nil, errors.NewValidationError("USAGE", err.Error()).WithCause(err)
	}
	if fs.NArg() > 0 {
		return nil, errors.NewValidationError("USAGE", fmt.Sprintf("unexpected arguments %v", fs.Args()))
	}
	return &o, nil
}

// apply copies the flag overrides into cfg
func (o *options) apply(cfg *config.Config) {
	if o.npa != "" {
		cfg.Home.NPA = o.npa
	}
	if o.nxx != "" {
		cfg.Home.NXX = o.nxx
	}
	if o.sourceFile != "" {
		cfg.Source.Kind = "file"
		cfg.Source.File = o.sourceFile
	}
	if o.sink != "" {
		cfg.Provisioning.Sink = o.sink
	}
	if o.dialect != "" {
		cfg.Provisioning.Dialect = o.dialect
	}
	if o.format != "" {
		cfg.Provisioning.Format = o.format
	}
	if o.readOnly {
		cfg.Provisioning.ReadOnly = true
	}
	if o.patternsOnly {
		cfg.Provisioning.Sink = "writer"
		cfg.Provisioning.Format = "patterns"
	}
	if o.hnpa10d {
		cfg.Dialing.Preset = "hnpa10d"
	}
	if o.skipMalformed {
		cfg.Normalize.SkipMalformed = true
	}
	if o.multiRange {
		cfg.Dialing.MultiRange = true
	}
	if o.routePattern {
		cfg.Provisioning.PatternKind = "route"
	}
	if o.sequential {
		cfg.Dialing.Sequential = true
	}
}

// home resolves the home exchange from -npanxx, then -npa/-nxx and the configuration
func (o *options) home(cfg *config.Config) (numbering.HomeContext, error) {
	if o.npanxx != "" {
		home, err := numbering.ParseHomeNPANXX(o.npanxx)
		if err != nil {
			return home, errors.NewValidationError("HOME", err.Error())
		}
		return home, nil
	}
	if cfg.Home.NPA == "" || cfg.Home.NXX == "" {
		return numbering.HomeContext{}, errors.NewValidationError("HOME", "home npa and nxx are required (-npa/-nxx, -npanxx or home.* in config)")
	}
	home, err := numbering.NewHomeContext(cfg.Home.NPA, cfg.Home.NXX)
	if err != nil {
		return home, errors.NewValidationError("HOME", err.Error())
	}
	return home, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return errors.ExitOK
		}
		return reportError(stderr, err)
	}

	// flags override the file, so validation waits until they are applied
	cfg, err := config.Read(opts.configPath)
	if err != nil {
		return reportError(stderr, errors.NewValidationError("CONFIG", err.Error()))
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return reportError(stderr, errors.NewValidationError("CONFIG", err.Error()))
	}

	home, err := opts.home(cfg)
	if err != nil {
		return reportError(stderr, err)
	}

	logger := telemetry.NewLogger(cfg.Telemetry.LogLevel, stderr)
	slog.SetDefault(logger)

	zapLogger, err := telemetry.NewZapLogger(cfg.Telemetry.LogLevel)
	if err != nil {
		return reportError(stderr, errors.NewInternalError("building logger").WithCause(err))
	}
	defer zapLogger.Sync()

	provider, err := telemetry.InitializeOpenTelemetry(ctx, telemetryConfig(cfg))
	if err != nil {
		return reportError(stderr, errors.NewExternalError("otel", "initializing telemetry").WithCause(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to shutdown telemetry", "error", err)
		}
	}()

	if err := generate(ctx, cfg, home, stdout, logger, zapLogger); err != nil {
		return reportError(stderr, err)
	}
	return errors.ExitOK
}

func generate(ctx context.Context, cfg *config.Config, home numbering.HomeContext, stdout io.Writer, logger *slog.Logger, zapLogger *zap.Logger) error {
	svcOpts, err := serviceOptions(cfg)
	if err != nil {
		return err
	}

	source, closeSource, err := buildSource(cfg, zapLogger)
	if err != nil {
		return err
	}
	defer closeSource()

	sink, closeSink, err := buildSink(ctx, cfg, stdout, zapLogger)
	if err != nil {
		return err
	}
	defer closeSink()

	registry, err := metrics.NewRegistry("dialplan")
	if err != nil {
		return errors.NewInternalError("creating metrics").WithCause(err)
	}

	svc := dialplan.NewService(source, sink, registry, svcOpts, logger)

	logger.InfoContext(ctx, "run started",
		"home", home.String(),
		"source", source.Name(),
		"sink", sink.Name(),
		"dialect", svcOpts.Dialect.Name())

	started := time.Now()
	result, runErr := svc.Run(ctx, home)
	if err := pushRunMetrics(ctx, cfg.Metrics, home, registry.Snapshot(), time.Since(started)); err != nil {
		logger.WarnContext(ctx, "failed to push run metrics", "error", err)
	}
	if runErr != nil {
		return runErr
	}

	counts := result.RuleSet.CountByCategory()
	attrs := []any{
		"run_id", result.RuleSet.RunID.String(),
		"home", home.String(),
		"partition", result.RuleSet.Partition,
		"rules", len(result.RuleSet.Rules),
		"digest", result.RuleSet.Digest(),
	}
	for _, c := range numbering.Categories {
		attrs = append(attrs, c.Key(), counts[c])
	}
	if result.Apply != nil {
		attrs = append(attrs,
			"added", len(result.Apply.Added),
			"removed", len(result.Apply.Removed),
			"kept", result.Apply.Kept,
			"read_only", result.Apply.ReadOnly)
	}
	logger.InfoContext(ctx, "run finished", attrs...)
	return nil
}

func telemetryConfig(cfg *config.Config) *telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.ServiceName = cfg.Telemetry.ServiceName
	tc.ServiceVersion = version
	tc.Environment = cfg.Environment
	if cfg.Telemetry.Endpoint != "" {
		tc.OTLPEndpoint = cfg.Telemetry.Endpoint
	}
	tc.TracingEnabled = cfg.Telemetry.TracingEnabled
	tc.MetricsEnabled = cfg.Telemetry.MetricsEnabled
	tc.SamplingRate = cfg.Telemetry.SampleRate
	return tc
}

// reportError prints the error kind and its offending data to stderr and returns the exit code
func reportError(stderr io.Writer, err error) int {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		fmt.Fprintf(stderr, "error: %s: %v\n", appErr.Type, err)
		if len(appErr.Details) > 0 {
			if details, jerr := json.Marshal(appErr.Details); jerr == nil {
				fmt.Fprintf(stderr, "details: %s\n", details)
			}
		}
	} else {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return errors.GetExitCode(err)
}
