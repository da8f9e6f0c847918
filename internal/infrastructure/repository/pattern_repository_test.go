package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
	"github.com/davidleathers/nanp-dialplan/internal/infrastructure/config"
	"github.com/davidleathers/nanp-dialplan/internal/infrastructure/database"
	"github.com/davidleathers/nanp-dialplan/internal/testutil/containers"
)

func setupRepository(t *testing.T) PatternRepository {
	t.Helper()
	pg := containers.StartPostgres(t)

	m, err := database.NewMigrator(pg.ConnectionString, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, m.Up(0))
	require.NoError(t, m.Close())

	pool, err := database.NewPool(context.Background(), &config.DatabaseConfig{URL: pg.ConnectionString}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewPatternRepository(pool, zaptest.NewLogger(t))
}

func testRule(t *testing.T, category numbering.Category, pattern, match string) numbering.TransformationRule {
	t.Helper()
	p, err := numbering.ParseDigitPattern(pattern)
	require.NoError(t, err)
	return numbering.TransformationRule{
		Category:     category,
		Pattern:      p,
		MatchPattern: match,
		MatchLength:  category.MatchLength(),
		Result:       numbering.SevenDigit,
		Partition:    "local816555",
		Discard:      "PreDot",
	}
}

func testRun(rules int) RunRecord {
	return RunRecord{
		RunID:       uuid.New(),
		HomeNPA:     "816",
		HomeNXX:     "555",
		Partition:   "local816555",
		Dialect:     "ucm",
		RuleCount:   rules,
		Added:       rules,
		Digest:      "0000000000000000000000000000000000000000000000000000000000000000",
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestPatternRepository(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	local := testRule(t, numbering.HNPALocal, "2[0-9][0-9]", `\+1816.2XXXXXX`)
	toll := testRule(t, numbering.FNPAToll, "417555", `\+1.417555XXXX`)
	toll.Result = numbering.TenPlusTen
	toll.PrependDigits = "1"

	t.Run("empty partition", func(t *testing.T) {
		rules, err := repo.ListPartition(ctx, "local816555")
		require.NoError(t, err)
		assert.Empty(t, rules)

		_, err = repo.LastRun(ctx, "local816555")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("insert", func(t *testing.T) {
		run := testRun(2)
		require.NoError(t, repo.ApplyChanges(ctx, run, []numbering.TransformationRule{toll, local}, nil))

		rules, err := repo.ListPartition(ctx, "local816555")
		require.NoError(t, err)
		require.Len(t, rules, 2)
		assert.Equal(t, local.Line(), rules[0].Line())
		assert.Equal(t, toll.Line(), rules[1].Line())
		assert.Equal(t, "2[0-9][0-9]", rules[0].Pattern.String())

		last, err := repo.LastRun(ctx, "local816555")
		require.NoError(t, err)
		assert.Equal(t, run.RunID, last.RunID)
		assert.Equal(t, 2, last.RuleCount)
		assert.True(t, run.GeneratedAt.Equal(last.GeneratedAt))
	})

	t.Run("update and remove", func(t *testing.T) {
		changed := local
		changed.Result = numbering.TenDigit
		changed.PrependDigits = "816"

		run := testRun(1)
		run.Added, run.Removed = 1, 1
		require.NoError(t, repo.ApplyChanges(ctx, run, []numbering.TransformationRule{changed}, []string{toll.MatchPattern}))

		rules, err := repo.ListPartition(ctx, "local816555")
		require.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, numbering.TenDigit, rules[0].Result)
		assert.Equal(t, "816", rules[0].PrependDigits)

		last, err := repo.LastRun(ctx, "local816555")
		require.NoError(t, err)
		assert.Equal(t, run.RunID, last.RunID)
	})

	t.Run("route pattern attributes round trip", func(t *testing.T) {
		route := testRule(t, numbering.HNPAToll, "9[0-9][0-9]", `\+1816.9XXXXXX`)
		route.Result = numbering.TenPlusTen
		route.PrependDigits = "1"
		route.Kind = numbering.KindRoute
		route.RouteList = "local816555"
		route.Urgent = true
		route.NetworkLocation = numbering.NetworkOffNet
		route.Description = "local destination in NPA-NXX 816-555"

		run := testRun(2)
		run.Kind = numbering.KindRoute
		run.RouteList = "local816555"
		require.NoError(t, repo.ApplyChanges(ctx, run, []numbering.TransformationRule{route}, nil))

		rules, err := repo.ListPartition(ctx, "local816555")
		require.NoError(t, err)
		require.Len(t, rules, 2)
		got := rules[1]
		assert.Equal(t, route.Line(), got.Line())
		assert.Equal(t, numbering.KindRoute, got.Kind)
		assert.True(t, got.Urgent)
		assert.Equal(t, route.Description, got.Description)
		assert.Equal(t, numbering.KindTransformation, rules[0].Kind)

		last, err := repo.LastRun(ctx, "local816555")
		require.NoError(t, err)
		assert.Equal(t, numbering.KindRoute, last.Kind)
		assert.Equal(t, "local816555", last.RouteList)

		require.NoError(t, repo.ApplyChanges(ctx, testRun(1), nil, []string{route.MatchPattern}))
	})

	t.Run("failed transaction leaves inventory unchanged", func(t *testing.T) {
		bad := testRule(t, numbering.HNPAToll, "9[0-9][0-9]", `\+1816.9XXXXXX`)
		bad.StripDigits = -1

		err := repo.ApplyChanges(ctx, testRun(1), []numbering.TransformationRule{bad}, []string{local.MatchPattern})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCheckViolation)

		rules, err := repo.ListPartition(ctx, "local816555")
		require.NoError(t, err)
		assert.Len(t, rules, 1)
	})

	t.Run("duplicate run id", func(t *testing.T) {
		run := testRun(0)
		require.NoError(t, repo.ApplyChanges(ctx, run, nil, nil))
		err := repo.ApplyChanges(ctx, run, nil, nil)
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})
}

func TestWrapRepositoryError(t *testing.T) {
	assert.NoError(t, WrapRepositoryError(nil))
	assert.ErrorIs(t, WrapRepositoryError(ErrNotFound), ErrNotFound)
	assert.False(t, IsConnectionError(assert.AnError))
	assert.True(t, IsConnectionError(ErrConnectionClosed))
}
