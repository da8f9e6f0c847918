package numbering

import "sort"

// ClassifiedSet maps each category to its destination codes. Home categories hold 3-digit
// NXX codes, foreign categories hold 6-digit NPA+NXX codes. Codes are sorted and unique.
type ClassifiedSet struct {
	home  HomeContext
	codes map[Category][]string
}

// NewClassifiedSet builds a set from per-category code lists. Input slices are copied.
func NewClassifiedSet(home HomeContext, codes map[Category][]string) *ClassifiedSet {
	s := &ClassifiedSet{
		home:  home,
		codes: make(map[Category][]string, len(Categories)),
	}
	for _, c := range Categories {
		s.codes[c] = sortedUnique(codes[c])
	}
	return s
}

// Home returns the home context the set was classified against
func (s *ClassifiedSet) Home() HomeContext {
	return s.home
}

// Codes returns a copy of the codes in category c
func (s *ClassifiedSet) Codes(c Category) []string {
	out := make([]string, len(s.codes[c]))
	copy(out, s.codes[c])
	return out
}

// Len returns the number of codes in category c
func (s *ClassifiedSet) Len(c Category) int {
	return len(s.codes[c])
}

// Total returns the number of codes across all categories
func (s *ClassifiedSet) Total() int {
	n := 0
	for _, c := range Categories {
		n += len(s.codes[c])
	}
	return n
}

// Contains reports whether code belongs to category c
func (s *ClassifiedSet) Contains(c Category, code string) bool {
	codes := s.codes[c]
	i := sort.SearchStrings(codes, code)
	return i < len(codes) && codes[i] == code
}

func sortedUnique(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	n := 0
	for i, code := range out {
		if i > 0 && code == out[n-1] {
			continue
		}
		out[n] = code
		n++
	}
	return out[:n]
}
