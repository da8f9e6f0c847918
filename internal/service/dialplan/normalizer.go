package dialplan

import (
	"sort"

	"github.com/davidleathers/nanp-dialplan/internal/domain/errors"
	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
	"github.com/davidleathers/nanp-dialplan/internal/domain/values"
)

// NormalizerOptions controls how bad input is handled
type NormalizerOptions struct {
	// SkipMalformed drops malformed tuples and reports them instead of failing the run.
	SkipMalformed bool
}

// NormalizeReport describes what normalization did to the input
type NormalizeReport struct {
	Received   int
	Accepted   int
	Duplicates int
	Skipped    []*errors.AppError
}

// Normalizer validates raw tuples and produces canonical records
type Normalizer struct {
	opts NormalizerOptions
}

// NewNormalizer creates a normalizer
func NewNormalizer(opts NormalizerOptions) *Normalizer {
	return &Normalizer{opts: opts}
}

// Normalize validates, deduplicates and sorts raw records. Records are returned ordered by
// NPA-NXX. The same NPA-NXX listed with two billing classes fails with a
// CONFLICTING_BILLING_CLASS error naming every conflict; that is never resolved here.
func (n *Normalizer) Normalize(raw []numbering.RawRecord) ([]numbering.NumberRecord, *NormalizeReport, error) {
	report := &NormalizeReport{Received: len(raw)}

	byCode := make(map[string]numbering.NumberRecord, len(raw))
	conflicts := make(map[string]*errors.BillingConflict)

	for _, r := range raw {
		rec, err := normalizeOne(r)
		if err != nil {
			if !n.opts.SkipMalformed {
				return nil, report, err
			}
			report.Skipped = append(report.Skipped, err)
			continue
		}

		code := rec.Code()
		prev, seen := byCode[code]
		switch {
		case !seen:
			byCode[code] = rec
		case prev.BillingClass() == rec.BillingClass():
			report.Duplicates++
		default:
			c, ok := conflicts[code]
			if !ok {
				c = &errors.BillingConflict{
					NPA:     rec.NPA().String(),
					NXX:     rec.NXX().String(),
					Classes: []string{prev.BillingClass().String()},
				}
				conflicts[code] = c
			}
			if !containsString(c.Classes, rec.BillingClass().String()) {
				c.Classes = append(c.Classes, rec.BillingClass().String())
			}
		}
	}

	if len(conflicts) > 0 {
		list := make([]errors.BillingConflict, 0, len(conflicts))
		for _, c := range conflicts {
			sort.Strings(c.Classes)
			list = append(list, *c)
		}
		sort.Slice(list, func(i, j int) bool {
			return list[i].NPA+list[i].NXX < list[j].NPA+list[j].NXX
		})
		return nil, report, errors.NewConflictingBillingClassError(list)
	}

	records := make([]numbering.NumberRecord, 0, len(byCode))
	for _, rec := range byCode {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Code() < records[j].Code()
	})
	report.Accepted = len(records)

	return records, report, nil
}

func normalizeOne(r numbering.RawRecord) (numbering.NumberRecord, *errors.AppError) {
	raw := errors.RawTuple{NPA: r.NPA, NXX: r.NXX, BillingClass: r.BillingClass}

	npa, err := values.NewNPA(r.NPA)
	if err != nil {
		return numbering.NumberRecord{}, errors.NewMalformedRecordError(raw, err.Error())
	}
	nxx, err := values.NewNXX(r.NXX)
	if err != nil {
		return numbering.NumberRecord{}, errors.NewMalformedRecordError(raw, err.Error())
	}
	class, err := numbering.ParseBillingClass(r.BillingClass)
	if err != nil {
		return numbering.NumberRecord{}, errors.NewMalformedRecordError(raw, err.Error())
	}

	return numbering.NewNumberRecord(npa, nxx, class), nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
