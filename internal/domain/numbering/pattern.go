package numbering

import (
	"fmt"
	"math/bits"
	"strings"
)

// Cell is the set of digits one pattern position accepts, as a bitmask over 0-9.
type Cell uint16

// AnyDigit accepts 0 through 9
const AnyDigit Cell = 1<<10 - 1

// Digit returns the cell accepting only d
func Digit(d int) Cell {
	if d < 0 || d > 9 {
		return 0
	}
	return 1 << uint(d)
}

// DigitRange returns the cell accepting lo through hi inclusive
func DigitRange(lo, hi int) Cell {
	var c Cell
	for d := lo; d <= hi; d++ {
		c |= Digit(d)
	}
	return c
}

// Run is an inclusive span of consecutive digits inside a cell
type Run struct {
	Lo, Hi int
}

func (c Cell) Has(d int) bool { return c&Digit(d) != 0 }

func (c Cell) Count() int { return bits.OnesCount16(uint16(c)) }

func (c Cell) IsEmpty() bool { return c&AnyDigit == 0 }

func (c Cell) IsLiteral() bool { return c.Count() == 1 }

func (c Cell) IsAny() bool { return c&AnyDigit == AnyDigit }

// Min returns the lowest accepted digit, or -1 for an empty cell
func (c Cell) Min() int {
	if c.IsEmpty() {
		return -1
	}
	return bits.TrailingZeros16(uint16(c))
}

// Max returns the highest accepted digit, or -1 for an empty cell
func (c Cell) Max() int {
	if c.IsEmpty() {
		return -1
	}
	return 15 - bits.LeadingZeros16(uint16(c&AnyDigit))
}

// IsContiguous reports whether the accepted digits form a single run
func (c Cell) IsContiguous() bool {
	if c.IsEmpty() {
		return false
	}
	shifted := c >> uint(c.Min())
	return shifted&(shifted+1) == 0
}

// Runs splits the cell into ascending runs of consecutive digits
func (c Cell) Runs() []Run {
	var runs []Run
	for d := 0; d <= 9; d++ {
		if !c.Has(d) {
			continue
		}
		if n := len(runs); n > 0 && runs[n-1].Hi == d-1 {
			runs[n-1].Hi = d
			continue
		}
		runs = append(runs, Run{Lo: d, Hi: d})
	}
	return runs
}

// Digits lists the accepted digits in ascending order
func (c Cell) Digits() []int {
	digits := make([]int, 0, c.Count())
	for d := 0; d <= 9; d++ {
		if c.Has(d) {
			digits = append(digits, d)
		}
	}
	return digits
}

// String renders the cell in the neutral bracket syntax: "5", "[0-9]", "[2-46]".
func (c Cell) String() string {
	if c.IsLiteral() {
		return string(rune('0' + c.Min()))
	}
	var b strings.Builder
	b.WriteByte('[')
	for _, r := range c.Runs() {
		b.WriteByte(byte('0' + r.Lo))
		if r.Hi > r.Lo {
			b.WriteByte('-')
			b.WriteByte(byte('0' + r.Hi))
		}
	}
	b.WriteByte(']')
	return b.String()
}

// DigitPattern is a fixed-length sequence of cells. A code matches when each of its
// digits is accepted by the cell at the same position.
type DigitPattern struct {
	cells []Cell
}

// NewDigitPattern copies cells into a new pattern
func NewDigitPattern(cells ...Cell) DigitPattern {
	c := make([]Cell, len(cells))
	copy(c, cells)
	return DigitPattern{cells: c}
}

// LiteralPattern builds the pattern matching exactly code
func LiteralPattern(code string) (DigitPattern, error) {
	cells := make([]Cell, len(code))
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return DigitPattern{}, fmt.Errorf("code %q: non-digit at position %d", code, i)
		}
		cells[i] = Digit(int(code[i] - '0'))
	}
	return DigitPattern{cells: cells}, nil
}

// ParseDigitPattern reads the neutral syntax produced by String. It also accepts X for
// any digit and commas between bracket items.
func ParseDigitPattern(s string) (DigitPattern, error) {
	var cells []Cell
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= '0' && ch <= '9':
			cells = append(cells, Digit(int(ch-'0')))
		case ch == 'X' || ch == 'x' || ch == '.':
			cells = append(cells, AnyDigit)
		case ch == '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return DigitPattern{}, fmt.Errorf("pattern %q: unterminated bracket at %d", s, i)
			}
			cell, err := parseBracket(s[i+1 : i+end])
			if err != nil {
				return DigitPattern{}, fmt.Errorf("pattern %q: %w", s, err)
			}
			cells = append(cells, cell)
			i += end
		default:
			return DigitPattern{}, fmt.Errorf("pattern %q: unexpected %q at %d", s, ch, i)
		}
	}
	return DigitPattern{cells: cells}, nil
}

func parseBracket(body string) (Cell, error) {
	var c Cell
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if ch == ',' {
			continue
		}
		if ch < '0' || ch > '9' {
			return 0, fmt.Errorf("bad bracket item %q", ch)
		}
		lo := int(ch - '0')
		if i+2 < len(body) && body[i+1] == '-' {
			hi := int(body[i+2] - '0')
			if body[i+2] < '0' || body[i+2] > '9' || hi < lo {
				return 0, fmt.Errorf("bad bracket range %q", body[i:i+3])
			}
			c |= DigitRange(lo, hi)
			i += 2
			continue
		}
		c |= Digit(lo)
	}
	if c.IsEmpty() {
		return 0, fmt.Errorf("empty bracket")
	}
	return c, nil
}

func (p DigitPattern) Len() int { return len(p.cells) }

func (p DigitPattern) IsZero() bool { return len(p.cells) == 0 }

// At returns the cell at position i
func (p DigitPattern) At(i int) Cell { return p.cells[i] }

// Cells returns a copy of the pattern's cells
func (p DigitPattern) Cells() []Cell {
	c := make([]Cell, len(p.cells))
	copy(c, p.cells)
	return c
}

// Matches reports whether code is accepted by the pattern
func (p DigitPattern) Matches(code string) bool {
	if len(code) != len(p.cells) {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' || !p.cells[i].Has(int(code[i]-'0')) {
			return false
		}
	}
	return true
}

// Size returns the number of distinct codes the pattern matches
func (p DigitPattern) Size() int {
	if len(p.cells) == 0 {
		return 0
	}
	n := 1
	for _, c := range p.cells {
		n *= c.Count()
	}
	return n
}

// Expand lists every matched code in ascending order
func (p DigitPattern) Expand() []string {
	size := p.Size()
	if size == 0 {
		return nil
	}
	digits := make([][]int, len(p.cells))
	for i, c := range p.cells {
		digits[i] = c.Digits()
	}
	out := make([]string, 0, size)
	idx := make([]int, len(p.cells))
	buf := make([]byte, len(p.cells))
	for {
		for i := range idx {
			buf[i] = byte('0' + digits[i][idx[i]])
		}
		out = append(out, string(buf))

		pos := len(idx) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < len(digits[pos]) {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			return out
		}
	}
}

// MinCode returns the lowest code the pattern matches
func (p DigitPattern) MinCode() string {
	buf := make([]byte, len(p.cells))
	for i, c := range p.cells {
		buf[i] = byte('0' + c.Min())
	}
	return string(buf)
}

// Overlaps reports whether some code matches both patterns
func (p DigitPattern) Overlaps(q DigitPattern) bool {
	if len(p.cells) != len(q.cells) || len(p.cells) == 0 {
		return false
	}
	for i := range p.cells {
		if p.cells[i]&q.cells[i] == 0 {
			return false
		}
	}
	return true
}

// Compare orders patterns by length, then by lowest digit per position, then by cell value.
func (p DigitPattern) Compare(q DigitPattern) int {
	if len(p.cells) != len(q.cells) {
		if len(p.cells) < len(q.cells) {
			return -1
		}
		return 1
	}
	for i := range p.cells {
		if a, b := p.cells[i].Min(), q.cells[i].Min(); a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	for i := range p.cells {
		if a, b := p.cells[i], q.cells[i]; a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Prefixed returns a new pattern with cells placed before p's
func (p DigitPattern) Prefixed(cells ...Cell) DigitPattern {
	c := make([]Cell, 0, len(cells)+len(p.cells))
	c = append(c, cells...)
	c = append(c, p.cells...)
	return DigitPattern{cells: c}
}

// Reversed returns the pattern with its positions in reverse order
func (p DigitPattern) Reversed() DigitPattern {
	c := make([]Cell, len(p.cells))
	for i, cell := range p.cells {
		c[len(c)-1-i] = cell
	}
	return DigitPattern{cells: c}
}

// Slice returns positions [from, to)
func (p DigitPattern) Slice(from, to int) DigitPattern {
	return NewDigitPattern(p.cells[from:to]...)
}

func (p DigitPattern) String() string {
	var b strings.Builder
	for _, c := range p.cells {
		b.WriteString(c.String())
	}
	return b.String()
}
