package numbering

import (
	"fmt"
	"strings"

	"github.com/davidleathers/nanp-dialplan/internal/domain/values"
)

// BillingClass is the billing classification of a destination relative to the caller
type BillingClass int

const (
	BillingUnknown BillingClass = iota
	BillingLocal
	BillingToll
)

func (b BillingClass) String() string {
	switch b {
	case BillingLocal:
		return "local"
	case BillingToll:
		return "toll"
	default:
		return "unknown"
	}
}

// ParseBillingClass accepts the spellings seen in upstream data: local/l, toll/t/ld.
func ParseBillingClass(s string) (BillingClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local", "l":
		return BillingLocal, nil
	case "toll", "t", "ld":
		return BillingToll, nil
	default:
		return BillingUnknown, fmt.Errorf("unrecognized billing class %q", s)
	}
}

// RawRecord is a destination tuple as delivered by a data source, before normalization.
type RawRecord struct {
	NPA          string `json:"npa"`
	NXX          string `json:"nxx"`
	BillingClass string `json:"billing_class"`
}

// NumberRecord is a normalized destination NPA-NXX with its billing class.
// The zero value is not valid; records are built by the normalizer.
type NumberRecord struct {
	npa   values.NPA
	nxx   values.NXX
	class BillingClass
}

// NewNumberRecord creates a record from already validated parts
func NewNumberRecord(npa values.NPA, nxx values.NXX, class BillingClass) NumberRecord {
	return NumberRecord{npa: npa, nxx: nxx, class: class}
}

func (r NumberRecord) NPA() values.NPA { return r.npa }

func (r NumberRecord) NXX() values.NXX { return r.nxx }

func (r NumberRecord) BillingClass() BillingClass { return r.class }

// Code returns the 6-digit NPA-NXX
func (r NumberRecord) Code() string {
	return r.npa.String() + r.nxx.String()
}

func (r NumberRecord) String() string {
	return fmt.Sprintf("%s/%s(%s)", r.npa, r.nxx, r.class)
}

// HomeContext identifies the caller's own exchange. It is fixed for one run and passed
// explicitly so several home exchanges can be processed side by side.
type HomeContext struct {
	NPA values.NPA
	NXX values.NXX
}

// NewHomeContext validates the home NPA and NXX
func NewHomeContext(npa, nxx string) (HomeContext, error) {
	n, err := values.NewNPA(npa)
	if err != nil {
		return HomeContext{}, fmt.Errorf("home npa: %w", err)
	}
	x, err := values.NewNXX(nxx)
	if err != nil {
		return HomeContext{}, fmt.Errorf("home nxx: %w", err)
	}
	return HomeContext{NPA: n, NXX: x}, nil
}

// ParseHomeNPANXX accepts a combined "816555", "816-555" or "816 555" form.
func ParseHomeNPANXX(s string) (HomeContext, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		if r == '-' || r == ' ' || r == '/' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if len(digits) != 6 {
		return HomeContext{}, fmt.Errorf("home npa-nxx %q must have 6 digits", s)
	}
	return NewHomeContext(digits[:3], digits[3:])
}

func (h HomeContext) String() string {
	return h.NPA.String() + "-" + h.NXX.String()
}
