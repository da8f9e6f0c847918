package dialplan

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/nanp-dialplan/internal/domain/errors"
	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
	"github.com/davidleathers/nanp-dialplan/internal/domain/values"
)

func TestPresetPlans(t *testing.T) {
	standard, err := PresetPlan("standard")
	require.NoError(t, err)
	require.NoError(t, standard.Validate())
	assert.Equal(t, numbering.SevenDigit, standard.Categories[numbering.HNPALocal].Result)
	assert.Equal(t, numbering.TenDigit, standard.Categories[numbering.FNPALocal].Result)
	assert.Equal(t, numbering.OnePlusTen, standard.Categories[numbering.HNPAToll].Result)
	assert.Equal(t, numbering.TenPlusTen, standard.Categories[numbering.FNPAToll].Result)

	overlay, err := PresetPlan("HNPA10D")
	require.NoError(t, err)
	require.NoError(t, overlay.Validate())
	assert.Equal(t, CategoryPlan{Prepend: "{hnpa}", Result: numbering.TenDigit}, overlay.Categories[numbering.HNPALocal])
	assert.Equal(t, standard.Categories[numbering.FNPAToll], overlay.Categories[numbering.FNPAToll])

	// presets do not share state
	assert.Equal(t, numbering.SevenDigit, StandardPlan().Categories[numbering.HNPALocal].Result)

	_, err = PresetPlan("metro")
	assert.Error(t, err)
}

func TestDialingPlan_Validate(t *testing.T) {
	missing := StandardPlan()
	delete(missing.Categories, numbering.FNPAToll)

	tests := []struct {
		name    string
		plan    DialingPlan
		wantErr string
	}{
		{
			name: "standard is valid",
			plan: StandardPlan(),
		},
		{
			name:    "missing category",
			plan:    missing,
			wantErr: "no entry for FNPA_TOLL",
		},
		{
			name:    "strip beyond match length",
			plan:    StandardPlan().With(numbering.HNPALocal, CategoryPlan{StripDigits: 8, Result: numbering.SevenDigit}),
			wantErr: "strip 8",
		},
		{
			name:    "negative strip",
			plan:    StandardPlan().With(numbering.FNPALocal, CategoryPlan{StripDigits: -1, Result: numbering.TenDigit}),
			wantErr: "strip -1",
		},
		{
			name:    "no result",
			plan:    StandardPlan().With(numbering.HNPAToll, CategoryPlan{Prepend: "1"}),
			wantErr: "no result format",
		},
		{
			name:    "non digit prepend",
			plan:    StandardPlan().With(numbering.FNPAToll, CategoryPlan{Prepend: "+1", Result: numbering.TenPlusTen}),
			wantErr: "must be digits",
		},
		{
			name: "strip within foreign match length",
			plan: StandardPlan().With(numbering.FNPALocal, CategoryPlan{StripDigits: 10, Result: numbering.TenDigit}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDialingPlan_WithCopies(t *testing.T) {
	base := StandardPlan()
	changed := base.With(numbering.HNPALocal, CategoryPlan{Result: numbering.TenDigit})

	assert.Equal(t, numbering.SevenDigit, base.Categories[numbering.HNPALocal].Result)
	assert.Equal(t, numbering.TenDigit, changed.Categories[numbering.HNPALocal].Result)
}

func TestPlanBook(t *testing.T) {
	book := PlanBook{
		ByNPA: map[string]DialingPlan{"913": HNPA10DPlan()},
	}
	require.NoError(t, book.Validate())

	assert.Equal(t, "standard", book.Lookup(values.MustNewNPA("816")).Name)
	assert.Equal(t, "hnpa10d", book.Lookup(values.MustNewNPA("913")).Name)

	book.Default = HNPA10DPlan()
	assert.Equal(t, "hnpa10d", book.Lookup(values.MustNewNPA("816")).Name)

	bad := PlanBook{ByNPA: map[string]DialingPlan{"13": StandardPlan()}}
	assert.Error(t, bad.Validate())
}

func TestRenderer_Render(t *testing.T) {
	home := mustHome(t, "816", "555")
	r := NewRenderer(home, StandardPlan(), nil, Target{})
	assert.Equal(t, "local816555", r.Partition())

	rules, err := r.Render(numbering.HNPAToll, []numbering.DigitPattern{mustPattern(t, "9[0-9][0-9]")})
	require.NoError(t, err)
	require.Len(t, rules, 1)

	rule := rules[0]
	assert.Equal(t, numbering.HNPAToll, rule.Category)
	assert.Equal(t, `\+1816.9XXXXXX`, rule.MatchPattern)
	assert.Equal(t, 7, rule.MatchLength)
	assert.Equal(t, "1816", rule.PrependDigits)
	assert.Equal(t, numbering.OnePlusTen, rule.Result)
	assert.Equal(t, "local816555", rule.Partition)
	assert.Equal(t, "PreDot", rule.Discard)
	assert.Equal(t, "HNPA_TOLL\t\\+1816.9XXXXXX\tstrip=0\tprepend=1816\tresult=1+10D\tpartition=local816555\tdiscard=PreDot", rule.Line())
	assert.Equal(t, numbering.KindTransformation, rule.Kind)
	assert.Equal(t, "local destination in NPA-NXX 816-555", rule.Description)
	assert.Empty(t, rule.RouteList)
	assert.Empty(t, r.RouteList())
}

func TestRenderer_RoutePatterns(t *testing.T) {
	home := mustHome(t, "816", "555")

	tests := []struct {
		name          string
		target        Target
		wantRouteList string
		wantLine      string
	}{
		{
			name:          "default route list",
			target:        Target{Kind: numbering.KindRoute},
			wantRouteList: "local816555",
			wantLine:      "FNPA_TOLL\t\\+1.417555XXXX\tstrip=0\tprepend=1\tresult=10+10D\tpartition=local816555\tdiscard=PreDot\tkind=route\troute_list=local816555\turgent\tnetwork=OffNet",
		},
		{
			name:          "templated route list",
			target:        Target{Kind: numbering.KindRoute, PartitionTemplate: "pt{npa}", RouteListTemplate: "rl-{npa}-{nxx}"},
			wantRouteList: "rl-816-555",
			wantLine:      "FNPA_TOLL\t\\+1.417555XXXX\tstrip=0\tprepend=1\tresult=10+10D\tpartition=pt816\tdiscard=PreDot\tkind=route\troute_list=rl-816-555\turgent\tnetwork=OffNet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRenderer(home, StandardPlan(), UCMDialect{}, tt.target)
			assert.Equal(t, tt.wantRouteList, r.RouteList())

			rules, err := r.Render(numbering.FNPAToll, []numbering.DigitPattern{mustPattern(t, "417555")})
			require.NoError(t, err)
			require.Len(t, rules, 1)

			rule := rules[0]
			assert.Equal(t, numbering.KindRoute, rule.Kind)
			assert.Equal(t, tt.wantRouteList, rule.RouteList)
			assert.True(t, rule.Urgent)
			assert.Equal(t, numbering.NetworkOffNet, rule.NetworkLocation)
			assert.Equal(t, "local destination in NPA-NXX 816-555", rule.Description)
			assert.Equal(t, tt.wantLine, rule.Line())
		})
	}
}

func TestRenderer_KeepsPatternOrder(t *testing.T) {
	home := mustHome(t, "816", "555")
	r := NewRenderer(home, HNPA10DPlan(), IOSDialect{}, Target{PartitionTemplate: "pt-{npa}"})

	rules, err := r.Render(numbering.HNPALocal, []numbering.DigitPattern{
		mustPattern(t, "2[0-9][0-9]"),
		mustPattern(t, "300"),
	})
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "e164 +18162......", rules[0].MatchPattern)
	assert.Equal(t, "e164 +1816300....", rules[1].MatchPattern)
	assert.Equal(t, "816", rules[0].PrependDigits)
	assert.Equal(t, numbering.TenDigit, rules[0].Result)
	assert.Equal(t, "pt-816", rules[0].Partition)
	assert.Empty(t, rules[0].Discard)
}

func TestRenderer_Errors(t *testing.T) {
	home := mustHome(t, "816", "555")

	r := NewRenderer(home, StandardPlan(), UCMDialect{}, Target{})
	_, err := r.Render(numbering.FNPALocal, []numbering.DigitPattern{mustPattern(t, "555")})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))

	partial := DialingPlan{Name: "partial", Categories: map[numbering.Category]CategoryPlan{}}
	_, err = NewRenderer(home, partial, UCMDialect{}, Target{}).Render(numbering.HNPALocal, nil)
	require.Error(t, err)
	var appErr *errors.AppError
	require.True(t, stderrors.As(err, &appErr))
	assert.Contains(t, appErr.Message, "HNPA_LOCAL")
}
