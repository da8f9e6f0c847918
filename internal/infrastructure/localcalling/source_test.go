package localcalling

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
	"github.com/davidleathers/nanp-dialplan/internal/infrastructure/cache"
	"github.com/davidleathers/nanp-dialplan/internal/infrastructure/config"
)

// fakeLookup serves canned prefix data and counts calls
type fakeLookup struct {
	mu       sync.Mutex
	local    []Prefix
	assigned map[string][]Prefix
	calls    map[string]int
	err      error
}

func (f *fakeLookup) count(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[key]++
}

func (f *fakeLookup) LocalPrefixes(_ context.Context, npa, nxx string) ([]Prefix, error) {
	f.count("lca:" + npa + nxx)
	return f.local, nil
}

func (f *fakeLookup) Prefixes(_ context.Context, npa string) ([]Prefix, error) {
	f.count("npa:" + npa)
	if f.err != nil {
		return nil, f.err
	}
	return f.assigned[npa], nil
}

func mustHome(t *testing.T) numbering.HomeContext {
	t.Helper()
	home, err := numbering.NewHomeContext("816", "555")
	require.NoError(t, err)
	return home
}

func TestSource_Fetch(t *testing.T) {
	lookup := &fakeLookup{
		local: []Prefix{
			{NPA: "816", NXX: "200"},
			{NPA: "816", NXX: "201"},
			{NPA: "913", NXX: "555"},
		},
		assigned: map[string][]Prefix{
			"816": {{NPA: "816", NXX: "200"}, {NPA: "816", NXX: "201"}, {NPA: "816", NXX: "900"}},
			"913": {{NPA: "913", NXX: "555"}, {NPA: "913", NXX: "556"}},
			"417": {{NXX: "555"}},
		},
	}

	records, err := NewSource(lookup, []string{"417"}, zaptest.NewLogger(t)).Fetch(context.Background(), mustHome(t))
	require.NoError(t, err)

	assert.Equal(t, []numbering.RawRecord{
		{NPA: "816", NXX: "200", BillingClass: "local"},
		{NPA: "816", NXX: "201", BillingClass: "local"},
		{NPA: "913", NXX: "555", BillingClass: "local"},
		{NPA: "417", NXX: "555", BillingClass: "toll"},
		{NPA: "816", NXX: "900", BillingClass: "toll"},
		{NPA: "913", NXX: "556", BillingClass: "toll"},
	}, records)
	assert.Equal(t, 1, lookup.calls["npa:816"])
	assert.Equal(t, 1, lookup.calls["npa:913"])
	assert.Equal(t, 1, lookup.calls["npa:417"])
}

func TestSource_FetchError(t *testing.T) {
	lookup := &fakeLookup{
		local: []Prefix{{NPA: "816", NXX: "200"}},
		err:   stderrors.New("upstream down"),
	}

	_, err := NewSource(lookup, nil, nil).Fetch(context.Background(), mustHome(t))
	assert.EqualError(t, err, "upstream down")
}

func TestCachedLookup(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	c, err := cache.NewRedisCache(&config.RedisConfig{URL: mr.Addr()}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer c.Close()

	upstream := &fakeLookup{
		local:    []Prefix{{NPA: "816", NXX: "200"}},
		assigned: map[string][]Prefix{"816": {{NPA: "816", NXX: "200"}, {NPA: "816", NXX: "900"}}},
	}
	lookup := NewCachedLookup(upstream, c, time.Hour, zaptest.NewLogger(t))

	for i := 0; i < 3; i++ {
		local, err := lookup.LocalPrefixes(ctx, "816", "555")
		require.NoError(t, err)
		assert.Equal(t, upstream.local, local)

		assigned, err := lookup.Prefixes(ctx, "816")
		require.NoError(t, err)
		assert.Len(t, assigned, 2)
	}
	assert.Equal(t, 1, upstream.calls["lca:816555"])
	assert.Equal(t, 1, upstream.calls["npa:816"])

	mr.FastForward(2 * time.Hour)
	_, err = lookup.Prefixes(ctx, "816")
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.calls["npa:816"])
}

func TestCachedLookup_CacheDownFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := cache.NewRedisCache(&config.RedisConfig{URL: mr.Addr()}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer c.Close()
	mr.Close()

	upstream := &fakeLookup{assigned: map[string][]Prefix{"417": {{NPA: "417", NXX: "555"}}}}
	prefixes, err := NewCachedLookup(upstream, c, time.Hour, nil).Prefixes(context.Background(), "417")
	require.NoError(t, err)
	assert.Len(t, prefixes, 1)
}

func TestReadRecords(t *testing.T) {
	input := strings.Join([]string{
		"npa,nxx,class",
		"# exported from the billing system",
		"816,200,local",
		"913, 555, L",
		"417,555",
		"",
		"417,556,toll,extra",
	}, "\n")

	records, err := ReadRecords(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []numbering.RawRecord{
		{NPA: "816", NXX: "200", BillingClass: "local"},
		{NPA: "913", NXX: "555", BillingClass: "L"},
		{NPA: "417", NXX: "555"},
		{NPA: "417", NXX: "556", BillingClass: "toll"},
	}, records)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")
	require.NoError(t, os.WriteFile(path, []byte("816,200,local\n417,555,toll\n"), 0o600))

	src := NewFileSource(path)
	assert.Equal(t, "file:"+path, src.Name())

	records, err := src.Fetch(context.Background(), mustHome(t))
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing.csv")).Fetch(context.Background(), mustHome(t))
	assert.Error(t, err)
}
