package provisioning

import (
	"sort"

	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
)

// Delta is the set of changes that turns an existing partition into the desired one
type Delta struct {
	// Add holds new or changed rules in rule-stream order
	Add []numbering.TransformationRule
	// Remove holds match patterns present only in the existing partition, sorted
	Remove []string
	// Keep counts rules already provisioned with identical attributes
	Keep int
}

// IsEmpty reports whether applying d would change nothing
func (d Delta) IsEmpty() bool {
	return len(d.Add) == 0 && len(d.Remove) == 0
}

// AddedPatterns lists the match patterns of Add
func (d Delta) AddedPatterns() []string {
	out := make([]string, len(d.Add))
	for i, r := range d.Add {
		out[i] = r.MatchPattern
	}
	return out
}

// Plan compares existing and desired rules by match pattern. A rule whose match pattern
// exists with a different category, transformation or partition is re-added.
func Plan(existing, desired []numbering.TransformationRule) Delta {
	current := make(map[string]string, len(existing))
	for _, r := range existing {
		current[r.MatchPattern] = r.Line()
	}

	var d Delta
	wanted := make(map[string]bool, len(desired))
	for _, r := range desired {
		wanted[r.MatchPattern] = true
		if line, ok := current[r.MatchPattern]; ok && line == r.Line() {
			d.Keep++
			continue
		}
		d.Add = append(d.Add, r)
	}

	for pattern := range current {
		if !wanted[pattern] {
			d.Remove = append(d.Remove, pattern)
		}
	}
	sort.Strings(d.Remove)
	return d
}
