package numbering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/nanp-dialplan/internal/domain/values"
)

func TestParseBillingClass(t *testing.T) {
	tests := []struct {
		input   string
		want    BillingClass
		wantErr bool
	}{
		{input: "Local", want: BillingLocal},
		{input: " l ", want: BillingLocal},
		{input: "TOLL", want: BillingToll},
		{input: "ld", want: BillingToll},
		{input: "", wantErr: true},
		{input: "free", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBillingClass(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, BillingUnknown, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseHomeNPANXX(t *testing.T) {
	for _, input := range []string{"816555", "816-555", "816 555", "816/555"} {
		home, err := ParseHomeNPANXX(input)
		require.NoError(t, err, input)
		assert.Equal(t, "816-555", home.String())
	}

	_, err := ParseHomeNPANXX("81655")
	assert.Error(t, err)
	_, err = ParseHomeNPANXX("816155")
	assert.Error(t, err)
}

func TestCategoryOf(t *testing.T) {
	home, err := NewHomeContext("816", "555")
	require.NoError(t, err)

	rec := func(npa string, class BillingClass) NumberRecord {
		return NewNumberRecord(values.MustNewNPA(npa), values.MustNewNXX("200"), class)
	}

	assert.Equal(t, HNPALocal, CategoryOf(home, rec("816", BillingLocal)))
	assert.Equal(t, HNPAToll, CategoryOf(home, rec("816", BillingToll)))
	assert.Equal(t, FNPALocal, CategoryOf(home, rec("913", BillingLocal)))
	assert.Equal(t, FNPAToll, CategoryOf(home, rec("417", BillingToll)))
}

func TestCategoryLengths(t *testing.T) {
	assert.Equal(t, 3, HNPALocal.CodeLength())
	assert.Equal(t, 7, HNPAToll.MatchLength())
	assert.Equal(t, 6, FNPALocal.CodeLength())
	assert.Equal(t, 10, FNPAToll.MatchLength())

	for _, c := range Categories {
		parsed, err := ParseCategory(c.Key())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
		parsed, err = ParseCategory(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
}

func TestClassifiedSet(t *testing.T) {
	home, _ := NewHomeContext("816", "555")
	set := NewClassifiedSet(home, map[Category][]string{
		HNPALocal: {"300", "200", "300"},
		FNPAToll:  {"417555"},
	})

	assert.Equal(t, []string{"200", "300"}, set.Codes(HNPALocal))
	assert.Equal(t, 3, set.Total())
	assert.True(t, set.Contains(FNPAToll, "417555"))
	assert.False(t, set.Contains(FNPAToll, "417556"))
	assert.Equal(t, 0, set.Len(HNPAToll))
}

func TestRuleSetDigestIgnoresRunMetadata(t *testing.T) {
	rules := []TransformationRule{
		{Category: HNPALocal, MatchPattern: `\+1816.2XXXXXX`, Result: SevenDigit, Discard: "PreDot"},
		{Category: FNPAToll, MatchPattern: `\+1.417555XXXX`, PrependDigits: "1", Result: TenPlusTen},
	}
	a := &RuleSet{Rules: rules}
	b := &RuleSet{Rules: rules, Dialect: "ucm"}

	assert.Equal(t, a.Digest(), b.Digest())
	assert.Equal(t, "HNPA_LOCAL\t\\+1816.2XXXXXX\tstrip=0\tprepend=\tresult=7D\tdiscard=PreDot", a.Lines()[0])
	assert.Equal(t, map[Category]int{HNPALocal: 1, FNPAToll: 1}, a.CountByCategory())
}

func TestParseResultFormat(t *testing.T) {
	for _, f := range []ResultFormat{SevenDigit, TenDigit, OnePlusTen, TenPlusTen} {
		parsed, err := ParseResultFormat(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}
	_, err := ParseResultFormat("11D")
	assert.Error(t, err)
}
