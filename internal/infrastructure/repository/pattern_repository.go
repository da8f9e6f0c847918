package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
	"github.com/davidleathers/nanp-dialplan/internal/infrastructure/telemetry"
)

// PatternRepository is the inventory of provisioned patterns, keyed by partition and
// rendered match pattern
type PatternRepository interface {
	// ListPartition returns every stored rule of partition ordered by category then pattern
	ListPartition(ctx context.Context, partition string) ([]numbering.TransformationRule, error)

	// ApplyChanges upserts rules, deletes removals and records run in a single transaction
	ApplyChanges(ctx context.Context, run RunRecord, upserts []numbering.TransformationRule, removals []string) error

	// LastRun returns the most recently applied run of partition, or ErrNotFound
	LastRun(ctx context.Context, partition string) (*RunRecord, error)
}

// RunRecord is one applied generation run
type RunRecord struct {
	RunID       uuid.UUID
	HomeNPA     string
	HomeNXX     string
	Partition   string
	Dialect     string
	Kind        numbering.PatternKind
	RouteList   string
	RuleCount   int
	Added       int
	Removed     int
	Kept        int
	Digest      string
	GeneratedAt time.Time
	AppliedAt   time.Time
}

type patternRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPatternRepository creates a Postgres pattern inventory
func NewPatternRepository(pool *pgxpool.Pool, logger *zap.Logger) PatternRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &patternRepository{pool: pool, logger: logger}
}

const selectPartition = `
	SELECT category, pattern, match_pattern, match_length, strip_digits,
	       prepend_digits, result_format, partition, discard_instruction,
	       pattern_kind, route_list, urgent, network_location, description
	FROM dialplan_patterns
	WHERE partition = $1
	ORDER BY CASE category
	             WHEN 'HNPA_LOCAL' THEN 0
	             WHEN 'FNPA_LOCAL' THEN 1
	             WHEN 'HNPA_TOLL' THEN 2
	             ELSE 3
	         END, match_pattern`

func (r *patternRepository) ListPartition(ctx context.Context, partition string) (_ []numbering.TransformationRule, err error) {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "select", "dialplan_patterns")
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	rows, err := r.pool.Query(ctx, selectPartition, partition)
	if err != nil {
		return nil, fmt.Errorf("failed to list partition %s: %w", partition, WrapRepositoryError(err))
	}
	defer rows.Close()

	var rules []numbering.TransformationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read partition %s: %w", partition, err)
	}
	return rules, nil
}

func scanRule(row pgx.Row) (numbering.TransformationRule, error) {
	var rule numbering.TransformationRule
	var category, pattern, result, kind string
	var matchLen, stripLen int32
	if err := row.Scan(&category, &pattern, &rule.MatchPattern, &matchLen, &stripLen,
		&rule.PrependDigits, &result, &rule.Partition, &rule.Discard,
		&kind, &rule.RouteList, &rule.Urgent, &rule.NetworkLocation, &rule.Description); err != nil {
		return rule, fmt.Errorf("failed to scan pattern row: %w", err)
	}

	var err error
	if rule.Category, err = numbering.ParseCategory(category); err != nil {
		return rule, fmt.Errorf("stored pattern %s: %w", rule.MatchPattern, err)
	}
	if rule.Pattern, err = numbering.ParseDigitPattern(pattern); err != nil {
		return rule, fmt.Errorf("stored pattern %s: %w", rule.MatchPattern, err)
	}
	if rule.Result, err = numbering.ParseResultFormat(result); err != nil {
		return rule, fmt.Errorf("stored pattern %s: %w", rule.MatchPattern, err)
	}
	if rule.Kind, err = numbering.ParsePatternKind(kind); err != nil {
		return rule, fmt.Errorf("stored pattern %s: %w", rule.MatchPattern, err)
	}
	rule.MatchLength = int(matchLen)
	rule.StripDigits = int(stripLen)
	return rule, nil
}

const upsertPattern = `
	INSERT INTO dialplan_patterns (
		partition, match_pattern, category, pattern, match_length,
		strip_digits, prepend_digits, result_format, discard_instruction, run_id,
		pattern_kind, route_list, urgent, network_location, description
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (partition, match_pattern) DO UPDATE SET
		category            = EXCLUDED.category,
		pattern             = EXCLUDED.pattern,
		match_length        = EXCLUDED.match_length,
		strip_digits        = EXCLUDED.strip_digits,
		prepend_digits      = EXCLUDED.prepend_digits,
		result_format       = EXCLUDED.result_format,
		discard_instruction = EXCLUDED.discard_instruction,
		run_id              = EXCLUDED.run_id,
		pattern_kind        = EXCLUDED.pattern_kind,
		route_list          = EXCLUDED.route_list,
		urgent              = EXCLUDED.urgent,
		network_location    = EXCLUDED.network_location,
		description         = EXCLUDED.description,
		updated_at          = NOW()`

const deletePatterns = `
	DELETE FROM dialplan_patterns
	WHERE partition = $1 AND match_pattern = ANY($2)`

const insertRun = `
	INSERT INTO dialplan_runs (
		run_id, home_npa, home_nxx, partition, dialect, pattern_kind, route_list,
		rule_count, added, removed, kept, digest, generated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

func (r *patternRepository) ApplyChanges(ctx context.Context, run RunRecord, upserts []numbering.TransformationRule, removals []string) error {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "apply", "dialplan_patterns")
	defer span.End()

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if len(removals) > 0 {
			if _, err := tx.Exec(ctx, deletePatterns, run.Partition, removals); err != nil {
				return fmt.Errorf("failed to delete stale patterns: %w", err)
			}
		}

		if len(upserts) > 0 {
			batch := &pgx.Batch{}
			for _, rule := range upserts {
				batch.Queue(upsertPattern,
					run.Partition, rule.MatchPattern, rule.Category.String(), rule.Pattern.String(),
					rule.MatchLength, rule.StripDigits, rule.PrependDigits, rule.Result.String(),
					rule.Discard, run.RunID,
					rule.Kind.String(), rule.RouteList, rule.Urgent, rule.NetworkLocation, rule.Description)
			}
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("failed to upsert patterns: %w", err)
			}
		}

		if _, err := tx.Exec(ctx, insertRun,
			run.RunID, run.HomeNPA, run.HomeNXX, run.Partition, run.Dialect,
			run.Kind.String(), run.RouteList, run.RuleCount, run.Added, run.Removed, run.Kept, run.Digest, run.GeneratedAt); err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return WrapRepositoryError(err)
	}

	r.logger.Info("pattern inventory updated",
		zap.String("partition", run.Partition),
		zap.String("run_id", run.RunID.String()),
		zap.Int("upserted", len(upserts)),
		zap.Int("removed", len(removals)))
	return nil
}

const selectLastRun = `
	SELECT run_id, home_npa, home_nxx, partition, dialect, pattern_kind, route_list,
	       rule_count, added, removed, kept, digest, generated_at, applied_at
	FROM dialplan_runs
	WHERE partition = $1
	ORDER BY applied_at DESC
	LIMIT 1`

func (r *patternRepository) LastRun(ctx context.Context, partition string) (*RunRecord, error) {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "select", "dialplan_runs")
	defer span.End()

	var run RunRecord
	var kind string
	var ruleCount, added, removed, kept int32
	err := r.pool.QueryRow(ctx, selectLastRun, partition).Scan(
		&run.RunID, &run.HomeNPA, &run.HomeNXX, &run.Partition, &run.Dialect, &kind, &run.RouteList,
		&ruleCount, &added, &removed, &kept, &run.Digest, &run.GeneratedAt, &run.AppliedAt)
	if err != nil {
		return nil, WrapRepositoryError(err)
	}
	if run.Kind, err = numbering.ParsePatternKind(kind); err != nil {
		return nil, fmt.Errorf("stored run %s: %w", run.RunID, err)
	}
	run.RuleCount = int(ruleCount)
	run.Added = int(added)
	run.Removed = int(removed)
	run.Kept = int(kept)
	return &run, nil
}
