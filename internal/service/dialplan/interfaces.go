package dialplan

import (
	"context"
	"time"

	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
)

// Service defines the dial-plan generation service
type Service interface {
	// Generate turns raw destination records into a verified, ordered rule set
	Generate(ctx context.Context, home numbering.HomeContext, raw []numbering.RawRecord) (*GenerateResult, error)
	// Run fetches records from the source, generates the rule set and hands it to the sink
	Run(ctx context.Context, home numbering.HomeContext) (*RunResult, error)
}

// RecordSource supplies the raw destination records for a home exchange
type RecordSource interface {
	// Fetch returns every destination NPA-NXX with its billing class relative to home
	Fetch(ctx context.Context, home numbering.HomeContext) ([]numbering.RawRecord, error)
	// Name identifies the source in logs
	Name() string
}

// RuleSink accepts a complete rule set for provisioning
type RuleSink interface {
	// Apply provisions rules. Applying the same set twice must leave the platform unchanged.
	Apply(ctx context.Context, rules *numbering.RuleSet) (*ApplyResult, error)
	// Name identifies the sink in logs
	Name() string
}

// MetricsCollector records pipeline metrics
type MetricsCollector interface {
	RecordNormalized(ctx context.Context, accepted, duplicates, skipped int)
	RecordCompression(ctx context.Context, category numbering.Category, codes, patterns int, duration time.Duration)
	RecordRunCompleted(ctx context.Context, rules int, duration time.Duration)
	RecordRunFailed(ctx context.Context, reason string)
}

// ApplyResult summarizes what a sink changed
type ApplyResult struct {
	Sink     string   `json:"sink"`
	Added    []string `json:"added"`
	Removed  []string `json:"removed"`
	Kept     int      `json:"kept"`
	ReadOnly bool     `json:"read_only"`
}

// GenerateResult is the output of Generate
type GenerateResult struct {
	RuleSet    *numbering.RuleSet
	Classified *numbering.ClassifiedSet
	Report     *NormalizeReport
}

// RunResult is the output of Run
type RunResult struct {
	*GenerateResult
	Source string
	Apply  *ApplyResult
}
