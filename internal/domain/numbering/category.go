package numbering

import "fmt"

// Category is the call type of a destination: home or foreign NPA, local or toll.
type Category int

const (
	HNPALocal Category = iota
	FNPALocal
	HNPAToll
	FNPAToll
)

// Categories lists every category in rule-stream order.
var Categories = []Category{HNPALocal, FNPALocal, HNPAToll, FNPAToll}

func (c Category) String() string {
	switch c {
	case HNPALocal:
		return "HNPA_LOCAL"
	case FNPALocal:
		return "FNPA_LOCAL"
	case HNPAToll:
		return "HNPA_TOLL"
	case FNPAToll:
		return "FNPA_TOLL"
	default:
		return "UNKNOWN"
	}
}

// Key is the lowercase form used in configuration files.
func (c Category) Key() string {
	switch c {
	case HNPALocal:
		return "hnpa_local"
	case FNPALocal:
		return "fnpa_local"
	case HNPAToll:
		return "hnpa_toll"
	case FNPAToll:
		return "fnpa_toll"
	default:
		return "unknown"
	}
}

// ParseCategory accepts either the String or the Key spelling
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if s == c.String() || s == c.Key() {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	v, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// IsHome reports whether destinations in c share the caller's NPA
func (c Category) IsHome() bool {
	return c == HNPALocal || c == HNPAToll
}

// CodeLength is the number of digits the compressor sees: NXX for home, NPA+NXX for foreign.
func (c Category) CodeLength() int {
	if c.IsHome() {
		return 3
	}
	return 6
}

// MatchLength is the digit count of the dialed portion a rule matches after the E.164 lead.
func (c Category) MatchLength() int {
	return c.CodeLength() + 4
}

// CategoryOf assigns a normalized record to exactly one category.
func CategoryOf(home HomeContext, r NumberRecord) Category {
	if r.NPA().Equal(home.NPA) {
		if r.BillingClass() == BillingLocal {
			return HNPALocal
		}
		return HNPAToll
	}
	if r.BillingClass() == BillingLocal {
		return FNPALocal
	}
	return FNPAToll
}
