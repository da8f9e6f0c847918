package localcalling

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/davidleathers/nanp-dialplan/internal/infrastructure/cache"
)

// CachedLookup serves repeated lookups from a cache. Cache errors never fail a lookup;
// they fall through to the upstream source.
type CachedLookup struct {
	next   Lookup
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedLookup wraps next with a response cache
func NewCachedLookup(next Lookup, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedLookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedLookup{next: next, cache: c, ttl: ttl, logger: logger}
}

func (l *CachedLookup) LocalPrefixes(ctx context.Context, npa, nxx string) ([]Prefix, error) {
	return l.cached(ctx, cache.LocalPrefixesKey(npa, nxx), func() ([]Prefix, error) {
		return l.next.LocalPrefixes(ctx, npa, nxx)
	})
}

func (l *CachedLookup) Prefixes(ctx context.Context, npa string) ([]Prefix, error) {
	return l.cached(ctx, cache.PrefixesKey(npa), func() ([]Prefix, error) {
		return l.next.Prefixes(ctx, npa)
	})
}

func (l *CachedLookup) cached(ctx context.Context, key string, fetch func() ([]Prefix, error)) ([]Prefix, error) {
	var prefixes []Prefix
	err := l.cache.GetJSON(ctx, key, &prefixes)
	switch {
	case err == nil:
		l.logger.Debug("data source cache hit", zap.String("key", key), zap.Int("prefixes", len(prefixes)))
		return prefixes, nil
	case !cache.IsNotFound(err):
		l.logger.Warn("data source cache unavailable", zap.String("key", key), zap.Error(err))
	}

	prefixes, err = fetch()
	if err != nil {
		return nil, err
	}

	if err := l.cache.SetJSON(ctx, key, prefixes, l.ttl); err != nil {
		l.logger.Warn("caching data source response failed", zap.String("key", key), zap.Error(err))
	}
	return prefixes, nil
}
