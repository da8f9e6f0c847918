package provisioning

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
	"github.com/davidleathers/nanp-dialplan/internal/service/dialplan"
)

// Output formats of WriterSink
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatPatterns = "patterns"
)

// WriterSink prints the rule stream instead of provisioning it
type WriterSink struct {
	w      io.Writer
	format string
}

// NewWriterSink creates a sink writing to w. format is text (one rule line each), json
// (one JSON object per line) or patterns (match patterns only).
func NewWriterSink(w io.Writer, format string) (*WriterSink, error) {
	switch format {
	case "":
		format = FormatText
	case FormatText, FormatJSON, FormatPatterns:
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return &WriterSink{w: w, format: format}, nil
}

func (s *WriterSink) Name() string { return "writer" }

// Apply writes every rule. The output does not depend on RunID or GeneratedAt.
func (s *WriterSink) Apply(ctx context.Context, rules *numbering.RuleSet) (*dialplan.ApplyResult, error) {
	bw := bufio.NewWriter(s.w)
	enc := json.NewEncoder(bw)

	for _, rule := range rules.Rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var err error
		switch s.format {
		case FormatJSON:
			err = enc.Encode(rule)
		case FormatPatterns:
			_, err = fmt.Fprintln(bw, rule.MatchPattern)
		default:
			_, err = fmt.Fprintln(bw, rule.Line())
		}
		if err != nil {
			return nil, fmt.Errorf("writing rule %s: %w", rule.MatchPattern, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("flushing rules: %w", err)
	}

	return &dialplan.ApplyResult{
		Sink:  s.Name(),
		Added: rules.MatchPatterns(),
	}, nil
}
