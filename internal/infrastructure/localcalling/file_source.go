package localcalling

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/davidleathers/nanp-dialplan/internal/domain/errors"
	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
)

// FileSource reads destination records from a CSV file of npa,nxx,class rows. A header row
// and # comments are allowed. Rows are passed through as-is; bad values are reported by the
// normalizer like any other malformed record.
type FileSource struct {
	path string
}

// NewFileSource creates a source reading path
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return "file:" + s.path }

// Fetch reads the file. The home context is not used: the file already carries billing
// classes relative to the exchange it was exported for.
func (s *FileSource) Fetch(ctx context.Context, _ numbering.HomeContext) ([]numbering.RawRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.NewValidationError("SOURCE_FILE", fmt.Sprintf("opening %s", s.path)).WithCause(err)
	}
	defer f.Close()

	return ReadRecords(ctx, f)
}

// ReadRecords parses CSV npa,nxx,class rows from r
func ReadRecords(ctx context.Context, r io.Reader) ([]numbering.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records []numbering.RawRecord
	for line := 0; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewValidationError("SOURCE_FILE", "reading csv").WithCause(err)
		}
		if line == 0 && len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "npa") {
			continue
		}

		var rec numbering.RawRecord
		if len(row) > 0 {
			rec.NPA = row[0]
		}
		if len(row) > 1 {
			rec.NXX = row[1]
		}
		if len(row) > 2 {
			rec.BillingClass = row[2]
		}
		records = append(records, rec)
	}
	return records, nil
}
