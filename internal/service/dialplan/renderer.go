package dialplan

import (
	"fmt"
	"strings"

	"github.com/davidleathers/nanp-dialplan/internal/domain/errors"
	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
)

// DefaultPartitionTemplate names the partition holding a home exchange's patterns.
const DefaultPartitionTemplate = "local{npa}{nxx}"

// DefaultRouteListTemplate names the route list route patterns send matches to.
const DefaultRouteListTemplate = "local{npa}{nxx}"

// Target is the platform object rules are provisioned as and where they live
type Target struct {
	Kind              numbering.PatternKind
	PartitionTemplate string
	RouteListTemplate string
}

// Renderer turns compressed patterns into platform transformation rules
type Renderer struct {
	home        numbering.HomeContext
	plan        DialingPlan
	dialect     Dialect
	kind        numbering.PatternKind
	partition   string
	routeList   string
	description string
}

// NewRenderer creates a renderer for one home exchange
func NewRenderer(home numbering.HomeContext, plan DialingPlan, dialect Dialect, target Target) *Renderer {
	if dialect == nil {
		dialect = UCMDialect{}
	}
	r := &Renderer{
		home:        home,
		plan:        plan,
		dialect:     dialect,
		kind:        target.Kind,
		partition:   PartitionName(target.PartitionTemplate, home),
		description: fmt.Sprintf("local destination in NPA-NXX %s-%s", home.NPA, home.NXX),
	}
	if target.Kind == numbering.KindRoute {
		tmpl := target.RouteListTemplate
		if tmpl == "" {
			tmpl = DefaultRouteListTemplate
		}
		r.routeList = expandHome(tmpl, home)
	}
	return r
}

// PartitionName expands {npa} and {nxx} in template
func PartitionName(template string, home numbering.HomeContext) string {
	if template == "" {
		template = DefaultPartitionTemplate
	}
	return expandHome(template, home)
}

func expandHome(template string, home numbering.HomeContext) string {
	r := strings.NewReplacer("{npa}", home.NPA.String(), "{nxx}", home.NXX.String())
	return r.Replace(template)
}

// RouteList returns the expanded route list name; empty unless rendering route patterns
func (r *Renderer) RouteList() string {
	return r.routeList
}

// Partition returns the expanded partition name
func (r *Renderer) Partition() string {
	return r.partition
}

// Render builds one rule per pattern, keeping the pattern order.
func (r *Renderer) Render(category numbering.Category, patterns []numbering.DigitPattern) ([]numbering.TransformationRule, error) {
	cp, ok := r.plan.Categories[category]
	if !ok {
		return nil, errors.NewInternalError(fmt.Sprintf("dialing plan %q has no entry for %s", r.plan.Name, category))
	}
	prepend := expandPrepend(cp.Prepend, r.home)

	rules := make([]numbering.TransformationRule, 0, len(patterns))
	for _, p := range patterns {
		if p.Len() != category.CodeLength() {
			return nil, errors.NewInternalError(fmt.Sprintf("%s pattern %s has %d digits, want %d",
				category, p, p.Len(), category.CodeLength()))
		}
		rule := numbering.TransformationRule{
			Category:      category,
			Kind:          r.kind,
			Pattern:       p,
			MatchPattern:  r.dialect.MatchPattern(r.home, category, p),
			MatchLength:   category.MatchLength(),
			StripDigits:   cp.StripDigits,
			PrependDigits: prepend,
			Result:        cp.Result,
			Partition:     r.partition,
			Discard:       r.dialect.DiscardInstruction(),
			Description:   r.description,
		}
		if r.kind == numbering.KindRoute {
			rule.RouteList = r.routeList
			rule.Urgent = true
			rule.NetworkLocation = numbering.NetworkOffNet
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
