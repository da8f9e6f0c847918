package provisioning

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/davidleathers/nanp-dialplan/internal/domain/errors"
	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
	"github.com/davidleathers/nanp-dialplan/internal/infrastructure/repository"
	"github.com/davidleathers/nanp-dialplan/internal/service/dialplan"
)

const storeServiceName = "pattern-store"

// StoreSink provisions rule sets into the Postgres pattern inventory
type StoreSink struct {
	repo     repository.PatternRepository
	readOnly bool
	logger   *zap.Logger
}

// NewStoreSink creates a store-backed sink. In read-only mode the plan is computed and
// logged but nothing is written.
func NewStoreSink(repo repository.PatternRepository, readOnly bool, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{repo: repo, readOnly: readOnly, logger: logger}
}

func (s *StoreSink) Name() string { return "store" }

// Apply diffs rules against the partition inventory and writes the changes in one
// transaction. A rule set identical to the inventory writes nothing.
func (s *StoreSink) Apply(ctx context.Context, rules *numbering.RuleSet) (*dialplan.ApplyResult, error) {
	existing, err := s.repo.ListPartition(ctx, rules.Partition)
	if err != nil {
		return nil, errors.NewExternalError(storeServiceName, "listing partition "+rules.Partition).WithCause(err)
	}

	delta := Plan(existing, rules.Rules)
	result := &dialplan.ApplyResult{
		Sink:     s.Name(),
		Added:    delta.AddedPatterns(),
		Removed:  delta.Remove,
		Kept:     delta.Keep,
		ReadOnly: s.readOnly,
	}

	logger := s.logger.With(
		zap.String("partition", rules.Partition),
		zap.String("run_id", rules.RunID.String()),
		zap.Int("add", len(delta.Add)),
		zap.Int("remove", len(delta.Remove)),
		zap.Int("keep", delta.Keep))

	if s.readOnly {
		for _, r := range delta.Add {
			logger.Info("would add pattern", zap.String("rule", r.Line()))
		}
		for _, p := range delta.Remove {
			logger.Info("would remove pattern", zap.String("match_pattern", p))
		}
		logger.Info("read-only mode, inventory not changed")
		return result, nil
	}

	if delta.IsEmpty() {
		s.logCurrent(ctx, logger, rules)
		return result, nil
	}

	run := repository.RunRecord{
		RunID:       rules.RunID,
		HomeNPA:     rules.Home.NPA.String(),
		HomeNXX:     rules.Home.NXX.String(),
		Partition:   rules.Partition,
		Dialect:     rules.Dialect,
		Kind:        rules.Kind,
		RouteList:   rules.RouteList,
		RuleCount:   len(rules.Rules),
		Added:       len(delta.Add),
		Removed:     len(delta.Remove),
		Kept:        delta.Keep,
		Digest:      rules.Digest(),
		GeneratedAt: rules.GeneratedAt,
	}
	if err := s.repo.ApplyChanges(ctx, run, delta.Add, delta.Remove); err != nil {
		return nil, errors.NewExternalError(storeServiceName, "applying changes to "+rules.Partition).WithCause(err)
	}

	logger.Info("partition provisioned")
	return result, nil
}

// logCurrent reports the run that last provisioned an unchanged partition. A lookup
// failure is logged and never fails the apply.
func (s *StoreSink) logCurrent(ctx context.Context, logger *zap.Logger, rules *numbering.RuleSet) {
	last, err := s.repo.LastRun(ctx, rules.Partition)
	switch {
	case stderrors.Is(err, repository.ErrNotFound):
		logger.Info("partition already current", zap.Bool("has_last_run", false))
	case err != nil:
		logger.Warn("partition already current, last run unavailable", zap.Error(err))
	default:
		logger.Info("partition already current",
			zap.Bool("has_last_run", true),
			zap.String("last_run_id", last.RunID.String()),
			zap.Time("last_applied_at", last.AppliedAt),
			zap.String("last_digest", last.Digest),
			zap.Bool("digest_matches", last.Digest == rules.Digest()))
	}
}
