package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"

	"github.com/davidleathers/nanp-dialplan/internal/domain/errors"
	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
	"github.com/davidleathers/nanp-dialplan/internal/infrastructure/cache"
	"github.com/davidleathers/nanp-dialplan/internal/infrastructure/config"
	"github.com/davidleathers/nanp-dialplan/internal/infrastructure/database"
	"github.com/davidleathers/nanp-dialplan/internal/infrastructure/localcalling"
	"github.com/davidleathers/nanp-dialplan/internal/infrastructure/provisioning"
	"github.com/davidleathers/nanp-dialplan/internal/infrastructure/repository"
	"github.com/davidleathers/nanp-dialplan/internal/service/dialplan"
)

func serviceOptions(cfg *config.Config) (dialplan.Options, error) {
	plans, err := buildPlanBook(cfg.Dialing)
	if err != nil {
		return dialplan.Options{}, errors.NewValidationError("DIALING_PLAN", err.Error())
	}

	dialect, err := dialplan.DialectByName(cfg.Provisioning.Dialect)
	if err != nil {
		return dialplan.Options{}, errors.NewValidationError("DIALECT", err.Error())
	}

	kind, err := numbering.ParsePatternKind(cfg.Provisioning.PatternKind)
	if err != nil {
		return dialplan.Options{}, errors.NewValidationError("PATTERN_KIND", err.Error())
	}

	return dialplan.Options{
		Normalizer: dialplan.NormalizerOptions{SkipMalformed: cfg.Normalize.SkipMalformed},
		Compressor: dialplan.CompressorOptions{
			Grammar:     dialplan.Grammar{MultiRange: cfg.Dialing.MultiRange},
			MaxPatterns: cfg.Dialing.MaxPatterns,
		},
		Plans:   plans,
		Dialect: dialect,
		Target: dialplan.Target{
			Kind:              kind,
			PartitionTemplate: cfg.Provisioning.Partition,
			RouteListTemplate: cfg.Provisioning.RouteList,
		},
		Sequential: cfg.Dialing.Sequential,
	}, nil
}

// buildPlanBook resolves the default preset, the global category overrides and the per-NPA
// plans. A per-NPA plan starts from its own preset (or the default preset) and applies the
// global overrides before its own.
func buildPlanBook(dc config.DialingConfig) (dialplan.PlanBook, error) {
	base, err := planFrom(dc.Preset, dc.Categories, nil)
	if err != nil {
		return dialplan.PlanBook{}, err
	}

	book := dialplan.PlanBook{Default: base, ByNPA: make(map[string]dialplan.DialingPlan, len(dc.Plans))}
	npas := make([]string, 0, len(dc.Plans))
	for npa := range dc.Plans {
		npas = append(npas, npa)
	}
	sort.Strings(npas)

	for _, npa := range npas {
		pc := dc.Plans[npa]
		preset := pc.Preset
		if preset == "" {
			preset = dc.Preset
		}
		plan, err := planFrom(preset, dc.Categories, pc.Categories)
		if err != nil {
			return dialplan.PlanBook{}, fmt.Errorf("plan for npa %s: %w", npa, err)
		}
		plan.Name = preset + "/" + npa
		book.ByNPA[npa] = plan
	}

	if err := book.Validate(); err != nil {
		return dialplan.PlanBook{}, err
	}
	return book, nil
}

func planFrom(preset string, overrides ...map[string]config.CategoryPlanConfig) (dialplan.DialingPlan, error) {
	plan, err := dialplan.PresetPlan(preset)
	if err != nil {
		return plan, err
	}
	for _, set := range overrides {
		keys := make([]string, 0, len(set))
		for k := range set {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			category, err := numbering.ParseCategory(key)
			if err != nil {
				return plan, err
			}
			cc := set[key]
			result, err := numbering.ParseResultFormat(cc.Result)
			if err != nil {
				return plan, fmt.Errorf("%s: %w", key, err)
			}
			plan = plan.With(category, dialplan.CategoryPlan{
				StripDigits: cc.Strip,
				Prepend:     cc.Prepend,
				Result:      result,
			})
		}
	}
	return plan, nil
}

// buildSource returns the record source and a cleanup func
func buildSource(cfg *config.Config, logger *zap.Logger) (dialplan.RecordSource, func(), error) {
	noop := func() {}
	if cfg.Source.Kind == "file" {
		return localcalling.NewFileSource(cfg.Source.File), noop, nil
	}

	var lookup localcalling.Lookup = localcalling.NewClient(localcalling.ClientConfig{
		BaseURL:           cfg.Source.BaseURL,
		Timeout:           cfg.Source.Timeout,
		RequestsPerSecond: cfg.Source.RequestsPerSecond,
		Burst:             cfg.Source.Burst,
		MaxRetries:        cfg.Source.MaxRetries,
		RetryBackoff:      cfg.Source.RetryBackoff,
		UserAgent:         cfg.Source.UserAgent,
	}, logger)

	cleanup := noop
	if cfg.Redis.Enabled {
		c, err := cache.NewRedisCache(&cfg.Redis, logger)
		if err != nil {
			// run uncached
			logger.Warn("redis cache unavailable", zap.Error(err))
		} else {
			lookup = localcalling.NewCachedLookup(lookup, c, cfg.Source.CacheTTL, logger)
			cleanup = func() { _ = c.Close() }
		}
	}

	return localcalling.NewSource(lookup, cfg.Source.TollNPAs, logger), cleanup, nil
}

// buildSink returns the provisioning sink and a cleanup func
func buildSink(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *zap.Logger) (dialplan.RuleSink, func(), error) {
	if cfg.Provisioning.Sink != "store" {
		sink, err := provisioning.NewWriterSink(stdout, cfg.Provisioning.Format)
		if err != nil {
			return nil, nil, errors.NewValidationError("SINK", err.Error())
		}
		return sink, func() {}, nil
	}

	pool, err := database.NewPool(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, nil, errors.NewExternalError("postgres", "connecting to pattern store").WithCause(err)
	}
	repo := repository.NewPatternRepository(pool, logger)
	return provisioning.NewStoreSink(repo, cfg.Provisioning.ReadOnly, logger), pool.Close, nil
}
