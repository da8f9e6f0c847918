package dialplan

import (
	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
)

// Classify buckets normalized records into the four call-type categories. Home categories
// keep only the NXX since the NPA is fixed; foreign categories keep NPA+NXX.
func Classify(home numbering.HomeContext, records []numbering.NumberRecord) *numbering.ClassifiedSet {
	codes := make(map[numbering.Category][]string, len(numbering.Categories))
	for _, r := range records {
		c := numbering.CategoryOf(home, r)
		if c.IsHome() {
			codes[c] = append(codes[c], r.NXX().String())
		} else {
			codes[c] = append(codes[c], r.Code())
		}
	}
	return numbering.NewClassifiedSet(home, codes)
}
