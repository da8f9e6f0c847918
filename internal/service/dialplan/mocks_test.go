package dialplan

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
)

type MockRecordSource struct {
	mock.Mock
}

func (m *MockRecordSource) Fetch(ctx context.Context, home numbering.HomeContext) ([]numbering.RawRecord, error) {
	args := m.Called(ctx, home)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]numbering.RawRecord), args.Error(1)
}

func (m *MockRecordSource) Name() string { return "mock-source" }

type MockRuleSink struct {
	mock.Mock
}

func (m *MockRuleSink) Apply(ctx context.Context, rules *numbering.RuleSet) (*ApplyResult, error) {
	args := m.Called(ctx, rules)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ApplyResult), args.Error(1)
}

func (m *MockRuleSink) Name() string { return "mock-sink" }

// MetricsCollector mock for tests
type MockMetricsCollector struct {
	mock.Mock
}

func (m *MockMetricsCollector) RecordNormalized(ctx context.Context, accepted, duplicates, skipped int) {
	m.Called(ctx, accepted, duplicates, skipped)
}

func (m *MockMetricsCollector) RecordCompression(ctx context.Context, category numbering.Category, codes, patterns int, duration time.Duration) {
	m.Called(ctx, category, codes, patterns, duration)
}

func (m *MockMetricsCollector) RecordRunCompleted(ctx context.Context, rules int, duration time.Duration) {
	m.Called(ctx, rules, duration)
}

func (m *MockMetricsCollector) RecordRunFailed(ctx context.Context, reason string) {
	m.Called(ctx, reason)
}

func mustHome(t interface{ Fatalf(string, ...interface{}) }, npa, nxx string) numbering.HomeContext {
	home, err := numbering.NewHomeContext(npa, nxx)
	if err != nil {
		t.Fatalf("home %s-%s: %v", npa, nxx, err)
	}
	return home
}

// block returns NXX codes lo..hi as local or toll records under npa
func block(npa string, lo, hi int, class string) []numbering.RawRecord {
	out := make([]numbering.RawRecord, 0, hi-lo+1)
	for n := lo; n <= hi; n++ {
		out = append(out, numbering.RawRecord{NPA: npa, NXX: threeDigits(n), BillingClass: class})
	}
	return out
}

func threeDigits(n int) string {
	return string([]byte{byte('0' + n/100), byte('0' + n/10%10), byte('0' + n%10)})
}
