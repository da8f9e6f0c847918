package dialplan

import (
	"fmt"
	"strings"

	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
)

// Dialect renders digit patterns in a call-control platform's match syntax and reads them back.
type Dialect interface {
	Name() string
	// MatchPattern renders an E.164 match pattern for a category-relative pattern
	MatchPattern(home numbering.HomeContext, category numbering.Category, p numbering.DigitPattern) string
	// ParsePattern recovers the category-relative pattern from a rendered match pattern
	ParsePattern(home numbering.HomeContext, category numbering.Category, s string) (numbering.DigitPattern, error)
	// DiscardInstruction names the platform's digit discard applied before strip/prepend
	DiscardInstruction() string
}

// DialectByName returns the dialect registered under name
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "ucm":
		return UCMDialect{}, nil
	case "ios":
		return IOSDialect{}, nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", name)
	}
}

// UCMDialect renders called-party transformation and route patterns. The dot separates
// the E.164 lead discarded by PreDot from the 7 or 10 digits the rule keeps.
//
//	home:    \+1816.[2-9]XXXXXX
//	foreign: \+1.417555XXXX
type UCMDialect struct{}

func (UCMDialect) Name() string { return "ucm" }

func (UCMDialect) DiscardInstruction() string { return "PreDot" }

func (UCMDialect) MatchPattern(home numbering.HomeContext, category numbering.Category, p numbering.DigitPattern) string {
	var b strings.Builder
	b.WriteString(`\+1`)
	if category.IsHome() {
		b.WriteString(home.NPA.String())
	}
	b.WriteByte('.')
	for i := 0; i < p.Len(); i++ {
		b.WriteString(ucmCell(p.At(i)))
	}
	b.WriteString("XXXX")
	return b.String()
}

func (UCMDialect) ParsePattern(home numbering.HomeContext, category numbering.Category, s string) (numbering.DigitPattern, error) {
	lead := `\+1`
	if category.IsHome() {
		lead += home.NPA.String()
	}
	lead += "."
	if !strings.HasPrefix(s, lead) {
		return numbering.DigitPattern{}, fmt.Errorf("ucm pattern %q: expected lead %q", s, lead)
	}
	return parseBody(s, strings.TrimPrefix(s, lead), "XXXX", category)
}

func ucmCell(c numbering.Cell) string {
	if c.IsLiteral() {
		return string(rune('0' + c.Min()))
	}
	if c.IsAny() {
		return "X"
	}
	var b strings.Builder
	b.WriteByte('[')
	for _, r := range c.Runs() {
		switch r.Hi - r.Lo {
		case 0:
			b.WriteByte(byte('0' + r.Lo))
		case 1:
			b.WriteByte(byte('0' + r.Lo))
			b.WriteByte(byte('0' + r.Hi))
		default:
			b.WriteByte(byte('0' + r.Lo))
			b.WriteByte('-')
			b.WriteByte(byte('0' + r.Hi))
		}
	}
	b.WriteByte(']')
	return b.String()
}

// IOSDialect renders e164-pattern-map entries. Entries only match; they carry no transformation.
//
//	e164 +1816[2-9]......
type IOSDialect struct{}

func (IOSDialect) Name() string { return "ios" }

func (IOSDialect) DiscardInstruction() string { return "" }

func (IOSDialect) MatchPattern(home numbering.HomeContext, category numbering.Category, p numbering.DigitPattern) string {
	var b strings.Builder
	b.WriteString("e164 +1")
	if category.IsHome() {
		b.WriteString(home.NPA.String())
	}
	for i := 0; i < p.Len(); i++ {
		b.WriteString(iosCell(p.At(i)))
	}
	b.WriteString("....")
	return b.String()
}

func (IOSDialect) ParsePattern(home numbering.HomeContext, category numbering.Category, s string) (numbering.DigitPattern, error) {
	lead := "e164 +1"
	if category.IsHome() {
		lead += home.NPA.String()
	}
	if !strings.HasPrefix(s, lead) {
		return numbering.DigitPattern{}, fmt.Errorf("ios pattern %q: expected lead %q", s, lead)
	}
	return parseBody(s, strings.TrimPrefix(s, lead), "....", category)
}

func iosCell(c numbering.Cell) string {
	if c.IsLiteral() {
		return string(rune('0' + c.Min()))
	}
	if c.IsAny() {
		return "."
	}
	items := make([]string, 0, 4)
	for _, r := range c.Runs() {
		switch r.Hi - r.Lo {
		case 0:
			items = append(items, string(rune('0'+r.Lo)))
		case 1:
			items = append(items, string(rune('0'+r.Lo)), string(rune('0'+r.Hi)))
		default:
			items = append(items, fmt.Sprintf("%d-%d", r.Lo, r.Hi))
		}
	}
	return "[" + strings.Join(items, ",") + "]"
}

func parseBody(full, body, subscriber string, category numbering.Category) (numbering.DigitPattern, error) {
	if !strings.HasSuffix(body, subscriber) {
		return numbering.DigitPattern{}, fmt.Errorf("pattern %q: expected subscriber digits %q", full, subscriber)
	}
	p, err := numbering.ParseDigitPattern(strings.TrimSuffix(body, subscriber))
	if err != nil {
		return numbering.DigitPattern{}, err
	}
	if p.Len() != category.CodeLength() {
		return numbering.DigitPattern{}, fmt.Errorf("pattern %q: %s needs %d code digits, got %d",
			full, category, category.CodeLength(), p.Len())
	}
	return p, nil
}
