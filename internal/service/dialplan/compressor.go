package dialplan

import (
	"fmt"
	"sort"

	"github.com/davidleathers/nanp-dialplan/internal/domain/errors"
	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
)

// DefaultMaxPatterns bounds the patterns emitted for a single category.
const DefaultMaxPatterns = 5000

const leftoverSampleSize = 10

// Grammar describes what a single pattern position may express on the target platform.
type Grammar struct {
	// MultiRange allows one bracket to hold several runs, e.g. [2-46]. Without it every
	// cell is a literal digit or one contiguous range.
	MultiRange bool
}

// split turns a digit set into the cells the grammar can express
func (g Grammar) split(c numbering.Cell) []numbering.Cell {
	if g.MultiRange || c.IsContiguous() {
		return []numbering.Cell{c}
	}
	runs := c.Runs()
	cells := make([]numbering.Cell, len(runs))
	for i, r := range runs {
		cells[i] = numbering.DigitRange(r.Lo, r.Hi)
	}
	return cells
}

// CompressorOptions configures the compressor
type CompressorOptions struct {
	Grammar     Grammar
	MaxPatterns int
}

// Compressor reduces a category's code set to digit patterns that match exactly that set.
type Compressor struct {
	grammar     Grammar
	maxPatterns int
}

// NewCompressor creates a compressor. A non-positive MaxPatterns uses DefaultMaxPatterns.
func NewCompressor(opts CompressorOptions) *Compressor {
	if opts.MaxPatterns <= 0 {
		opts.MaxPatterns = DefaultMaxPatterns
	}
	return &Compressor{grammar: opts.Grammar, maxPatterns: opts.MaxPatterns}
}

// Compress returns the patterns for one category's codes, ordered by lowest matched code.
// Patterns never overlap and together match exactly codes. An empty input yields no patterns.
func (c *Compressor) Compress(category numbering.Category, codes []string) ([]numbering.DigitPattern, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	length := category.CodeLength()

	forward, err := buildTrie(codes, length, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", category, err)
	}
	backward, err := buildTrie(codes, length, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", category, err)
	}

	fwd := forward.reduce(c.grammar)
	bwd := backward.reduce(c.grammar)

	best, reversed := fwd, false
	if bwd.count() < fwd.count() {
		best, reversed = bwd, true
	}

	if best.count() > c.maxPatterns {
		return nil, errors.NewUnrepresentablePatternError(category.String(), errors.LeftoverSummary{
			Codes:       len(codes),
			Patterns:    best.count(),
			MaxPatterns: c.maxPatterns,
			SampleCodes: sampleCodes(codes),
			TrieNodes:   len(forward.nodes),
		})
	}

	patterns := best.materialize()
	if reversed {
		for i := range patterns {
			patterns[i] = patterns[i].Reversed()
		}
	}
	sort.Slice(patterns, func(i, j int) bool {
		return patterns[i].Compare(patterns[j]) < 0
	})
	return patterns, nil
}

// trie is an arena of fixed-depth nodes. Node 0 is the root; a zero child index means absent.
// Children are always appended after their parent, so walking the arena backwards visits
// every child before its parent.
type trie struct {
	length int
	nodes  []trieNode
}

type trieNode struct {
	children [10]int32
}

func buildTrie(codes []string, length int, reverse bool) (*trie, error) {
	t := &trie{
		length: length,
		nodes:  make([]trieNode, 1, len(codes)+1),
	}
	for _, code := range codes {
		if len(code) != length {
			return nil, fmt.Errorf("code %q: want %d digits", code, length)
		}
		cur := int32(0)
		for pos := 0; pos < length; pos++ {
			i := pos
			if reverse {
				i = length - 1 - pos
			}
			ch := code[i]
			if ch < '0' || ch > '9' {
				return nil, fmt.Errorf("code %q: non-digit at position %d", code, i)
			}
			d := ch - '0'
			next := t.nodes[cur].children[d]
			if next == 0 {
				t.nodes = append(t.nodes, trieNode{})
				next = int32(len(t.nodes) - 1)
				t.nodes[cur].children[d] = next
			}
			cur = next
		}
	}
	return t, nil
}

// suffix is an interned pattern: a leading cell followed by the pattern next. Id 0 is
// the empty pattern that ends every chain.
type suffix struct {
	cell numbering.Cell
	next int32
}

type reduction struct {
	suffixes []suffix
	interned map[suffix]int32
	// shapes holds the pattern ids of each distinct subtree
	shapes [][]int32
	root   int32
}

// reduce hash-conses subtrees bottom-up. A node's patterns are its children's patterns,
// each prefixed with the union of the digits whose subtree produces it, so siblings share
// a cell whenever they share a suffix pattern even when their subtrees differ. Patterns
// stay interned (cell, next) chains until materialize, so oversized sets are rejected
// before any DigitPattern is built.
func (t *trie) reduce(g Grammar) *reduction {
	r := &reduction{
		suffixes: make([]suffix, 1),
		interned: make(map[suffix]int32),
	}
	index := make(map[[10]int32]int32)
	sig := make([]int32, len(t.nodes))
	digits := make(map[int32]numbering.Cell)
	var order []int32

	for i := len(t.nodes) - 1; i >= 0; i-- {
		var key [10]int32
		for d, child := range t.nodes[i].children {
			if child != 0 {
				key[d] = sig[child] + 1
			}
		}
		if s, ok := index[key]; ok {
			sig[i] = s
			continue
		}

		var ids []int32
		if key == ([10]int32{}) {
			ids = []int32{0}
		} else {
			// suffixes keep the order of their lowest producing digit
			order = order[:0]
			for d, k := range key {
				if k == 0 {
					continue
				}
				for _, p := range r.shapes[k-1] {
					if _, seen := digits[p]; !seen {
						order = append(order, p)
					}
					digits[p] |= numbering.Digit(d)
				}
			}
			for _, p := range order {
				for _, cell := range g.split(digits[p]) {
					ids = append(ids, r.intern(suffix{cell: cell, next: p}))
				}
				delete(digits, p)
			}
		}

		s := int32(len(r.shapes))
		r.shapes = append(r.shapes, ids)
		index[key] = s
		sig[i] = s
	}

	r.root = sig[0]
	return r
}

func (r *reduction) intern(s suffix) int32 {
	if id, ok := r.interned[s]; ok {
		return id
	}
	id := int32(len(r.suffixes))
	r.suffixes = append(r.suffixes, s)
	r.interned[s] = id
	return id
}

func (r *reduction) count() int {
	return len(r.shapes[r.root])
}

func (r *reduction) materialize() []numbering.DigitPattern {
	ids := r.shapes[r.root]
	out := make([]numbering.DigitPattern, 0, len(ids))
	cells := make([]numbering.Cell, 0, 8)
	for _, id := range ids {
		cells = cells[:0]
		for ; id != 0; id = r.suffixes[id].next {
			cells = append(cells, r.suffixes[id].cell)
		}
		out = append(out, numbering.NewDigitPattern(cells...))
	}
	return out
}

func sampleCodes(codes []string) []string {
	n := len(codes)
	if n > leftoverSampleSize {
		n = leftoverSampleSize
	}
	sample := make([]string, n)
	copy(sample, codes[:n])
	return sample
}
