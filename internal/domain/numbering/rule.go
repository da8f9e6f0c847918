package numbering

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ResultFormat is the called-number format a rule produces
type ResultFormat int

const (
	ResultUnknown ResultFormat = iota
	SevenDigit
	TenDigit
	OnePlusTen
	TenPlusTen
)

func (f ResultFormat) String() string {
	switch f {
	case SevenDigit:
		return "7D"
	case TenDigit:
		return "10D"
	case OnePlusTen:
		return "1+10D"
	case TenPlusTen:
		return "10+10D"
	default:
		return "unknown"
	}
}

// ParseResultFormat accepts "7D", "10D", "1+10D", "10+10D" and the snake_case names.
func ParseResultFormat(s string) (ResultFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "7d", "seven_digit", "sevendigit":
		return SevenDigit, nil
	case "10d", "ten_digit", "tendigit":
		return TenDigit, nil
	case "1+10d", "one_plus_ten", "oneplusten":
		return OnePlusTen, nil
	case "10+10d", "ten_plus_ten", "tenplusten":
		return TenPlusTen, nil
	default:
		return ResultUnknown, fmt.Errorf("unknown result format %q", s)
	}
}

func (f ResultFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *ResultFormat) UnmarshalText(text []byte) error {
	v, err := ParseResultFormat(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// PatternKind is the platform object a rule is provisioned as
type PatternKind int

const (
	// KindTransformation is a called-party transformation pattern
	KindTransformation PatternKind = iota
	// KindRoute is a route pattern sending matches off-net through a route list
	KindRoute
)

func (k PatternKind) String() string {
	if k == KindRoute {
		return "route"
	}
	return "transformation"
}

// ParsePatternKind accepts "transformation" and "route"; empty means transformation.
func ParsePatternKind(s string) (PatternKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "transformation":
		return KindTransformation, nil
	case "route":
		return KindRoute, nil
	default:
		return KindTransformation, fmt.Errorf("unknown pattern kind %q", s)
	}
}

func (k PatternKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PatternKind) UnmarshalText(text []byte) error {
	v, err := ParsePatternKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// NetworkOffNet is the network location of route patterns
const NetworkOffNet = "OffNet"

// TransformationRule is one rendered digit-manipulation rule for the call-control platform.
// Route-kind rules also name the route list they send matches to.
type TransformationRule struct {
	Category        Category     `json:"category"`
	Kind            PatternKind  `json:"kind"`
	Pattern         DigitPattern `json:"-"`
	MatchPattern    string       `json:"match_pattern"`
	MatchLength     int          `json:"match_length"`
	StripDigits     int          `json:"strip_digits"`
	PrependDigits   string       `json:"prepend_digits"`
	Result          ResultFormat `json:"result"`
	Partition       string       `json:"partition"`
	Discard         string       `json:"discard_instruction,omitempty"`
	RouteList       string       `json:"route_list,omitempty"`
	Urgent          bool         `json:"urgent,omitempty"`
	NetworkLocation string       `json:"network_location,omitempty"`
	Description     string       `json:"description,omitempty"`
}

// Line is the canonical single-line form of the rule used for the rule stream. The
// description is free text and is left out.
func (r TransformationRule) Line() string {
	var b strings.Builder
	b.WriteString(r.Category.String())
	b.WriteByte('\t')
	b.WriteString(r.MatchPattern)
	b.WriteString("\tstrip=")
	b.WriteString(strconv.Itoa(r.StripDigits))
	b.WriteString("\tprepend=")
	b.WriteString(r.PrependDigits)
	b.WriteString("\tresult=")
	b.WriteString(r.Result.String())
	if r.Partition != "" {
		b.WriteString("\tpartition=")
		b.WriteString(r.Partition)
	}
	if r.Discard != "" {
		b.WriteString("\tdiscard=")
		b.WriteString(r.Discard)
	}
	if r.Kind == KindRoute {
		b.WriteString("\tkind=route\troute_list=")
		b.WriteString(r.RouteList)
		if r.Urgent {
			b.WriteString("\turgent")
		}
		if r.NetworkLocation != "" {
			b.WriteString("\tnetwork=")
			b.WriteString(r.NetworkLocation)
		}
	}
	return b.String()
}

// RuleSet is the complete, ordered output of one run
type RuleSet struct {
	RunID       uuid.UUID
	Home        HomeContext
	Dialect     string
	Partition   string
	Kind        PatternKind
	RouteList   string
	GeneratedAt time.Time
	Rules       []TransformationRule
}

// Lines returns the rule stream. RunID and GeneratedAt are not part of it, so unchanged
// input always yields the same lines.
func (s *RuleSet) Lines() []string {
	lines := make([]string, len(s.Rules))
	for i, r := range s.Rules {
		lines[i] = r.Line()
	}
	return lines
}

// Digest is the hex SHA-256 of the newline-terminated rule stream
func (s *RuleSet) Digest() string {
	h := sha256.New()
	for _, line := range s.Lines() {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MatchPatterns lists the rendered match patterns in stream order
func (s *RuleSet) MatchPatterns() []string {
	out := make([]string, len(s.Rules))
	for i, r := range s.Rules {
		out[i] = r.MatchPattern
	}
	return out
}

// CountByCategory returns the number of rules per category
func (s *RuleSet) CountByCategory() map[Category]int {
	counts := make(map[Category]int, len(Categories))
	for _, r := range s.Rules {
		counts[r.Category]++
	}
	return counts
}
