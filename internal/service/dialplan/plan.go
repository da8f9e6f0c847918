package dialplan

import (
	"fmt"
	"strings"

	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
	"github.com/davidleathers/nanp-dialplan/internal/domain/values"
)

// HomeNPAPlaceholder in a prepend string is replaced with the caller's NPA.
const HomeNPAPlaceholder = "{hnpa}"

// CategoryPlan is the digit manipulation applied to one category's matches
type CategoryPlan struct {
	StripDigits int
	Prepend     string
	Result      numbering.ResultFormat
}

// DialingPlan maps every category to its digit manipulation. Carriers differ by region,
// so plans can be overridden per home NPA.
type DialingPlan struct {
	Name       string
	Categories map[numbering.Category]CategoryPlan
}

// StandardPlan: HNPA local 7D, FNPA local 10D, HNPA toll 1+10D, FNPA toll 10+10D.
func StandardPlan() DialingPlan {
	return DialingPlan{
		Name: "standard",
		Categories: map[numbering.Category]CategoryPlan{
			numbering.HNPALocal: {Result: numbering.SevenDigit},
			numbering.FNPALocal: {Result: numbering.TenDigit},
			numbering.HNPAToll:  {Prepend: "1" + HomeNPAPlaceholder, Result: numbering.OnePlusTen},
			numbering.FNPAToll:  {Prepend: "1", Result: numbering.TenPlusTen},
		},
	}
}

// HNPA10DPlan is StandardPlan with home local calls sent as 10D, used in overlay regions.
func HNPA10DPlan() DialingPlan {
	p := StandardPlan()
	p.Name = "hnpa10d"
	p.Categories[numbering.HNPALocal] = CategoryPlan{Prepend: HomeNPAPlaceholder, Result: numbering.TenDigit}
	return p
}

// PresetPlan returns a built-in plan by name
func PresetPlan(name string) (DialingPlan, error) {
	switch strings.ToLower(name) {
	case "", "standard":
		return StandardPlan(), nil
	case "hnpa10d":
		return HNPA10DPlan(), nil
	default:
		return DialingPlan{}, fmt.Errorf("unknown dialing plan preset %q", name)
	}
}

// With returns a copy of the plan with category c replaced
func (p DialingPlan) With(c numbering.Category, cp CategoryPlan) DialingPlan {
	out := DialingPlan{Name: p.Name, Categories: make(map[numbering.Category]CategoryPlan, len(p.Categories))}
	for k, v := range p.Categories {
		out.Categories[k] = v
	}
	out.Categories[c] = cp
	return out
}

// Validate checks that every category is covered and its manipulation is well formed.
func (p DialingPlan) Validate() error {
	for _, c := range numbering.Categories {
		cp, ok := p.Categories[c]
		if !ok {
			return fmt.Errorf("plan %q: no entry for %s", p.Name, c)
		}
		if cp.StripDigits < 0 || cp.StripDigits > c.MatchLength() {
			return fmt.Errorf("plan %q: %s strip %d outside 0..%d", p.Name, c, cp.StripDigits, c.MatchLength())
		}
		if cp.Result == numbering.ResultUnknown {
			return fmt.Errorf("plan %q: %s has no result format", p.Name, c)
		}
		prepend := strings.ReplaceAll(cp.Prepend, HomeNPAPlaceholder, "")
		for i := 0; i < len(prepend); i++ {
			if prepend[i] < '0' || prepend[i] > '9' {
				return fmt.Errorf("plan %q: %s prepend %q must be digits", p.Name, c, cp.Prepend)
			}
		}
	}
	return nil
}

// PlanBook holds the default plan and per-NPA overrides
type PlanBook struct {
	Default DialingPlan
	ByNPA   map[string]DialingPlan
}

// Lookup returns the plan for a home NPA
func (b PlanBook) Lookup(npa values.NPA) DialingPlan {
	if p, ok := b.ByNPA[npa.String()]; ok {
		return p
	}
	if b.Default.Categories == nil {
		return StandardPlan()
	}
	return b.Default
}

// Validate checks every plan in the book
func (b PlanBook) Validate() error {
	if b.Default.Categories != nil {
		if err := b.Default.Validate(); err != nil {
			return err
		}
	}
	for npa, p := range b.ByNPA {
		if !values.IsValidCode(npa) {
			return fmt.Errorf("plan override key %q is not an NPA", npa)
		}
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func expandPrepend(prepend string, home numbering.HomeContext) string {
	return strings.ReplaceAll(prepend, HomeNPAPlaceholder, home.NPA.String())
}
