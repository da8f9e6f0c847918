package dialplan

import (
	"fmt"

	"github.com/davidleathers/nanp-dialplan/internal/domain/errors"
	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
)

// Verify checks a rendered rule list against the classified set it came from: every pattern
// decodes back to itself, each category's patterns match exactly its codes, and no NPA-NXX
// is matched by two rules.
func Verify(set *numbering.ClassifiedSet, dialect Dialect, rules []numbering.TransformationRule) error {
	home := set.Home()
	owner := make(map[string]numbering.Category, set.Total())
	covered := make(map[numbering.Category]int, len(numbering.Categories))

	for _, rule := range rules {
		c := rule.Category

		decoded, err := dialect.ParsePattern(home, c, rule.MatchPattern)
		if err != nil {
			return errors.NewInternalError("rendered pattern does not decode").WithCause(err)
		}
		if decoded.Compare(rule.Pattern) != 0 {
			return errors.NewInternalError(fmt.Sprintf("pattern %s decodes to %s", rule.MatchPattern, decoded))
		}

		for _, code := range rule.Pattern.Expand() {
			if !set.Contains(c, code) {
				return errors.NewInternalError(fmt.Sprintf("%s pattern %s matches %s outside the category", c, rule.Pattern, code))
			}
			full := code
			if c.IsHome() {
				full = home.NPA.String() + code
			}
			if prev, dup := owner[full]; dup {
				return errors.NewInternalError(fmt.Sprintf("%s matched by both %s and %s", full, prev, c))
			}
			owner[full] = c
			covered[c]++
		}
	}

	for _, c := range numbering.Categories {
		if covered[c] != set.Len(c) {
			return errors.NewInternalError(fmt.Sprintf("%s patterns cover %d of %d codes", c, covered[c], set.Len(c)))
		}
	}
	return nil
}
