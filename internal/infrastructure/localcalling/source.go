package localcalling

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/davidleathers/nanp-dialplan/internal/domain/numbering"
	"github.com/davidleathers/nanp-dialplan/internal/domain/values"
)

const prefixFetchConcurrency = 4

// Source builds destination records from the data source. Everything in the home
// exchange's local calling area is local. Every other assigned prefix of the home NPA, of
// each foreign NPA that appears in the local calling area, and of each extra toll NPA is toll.
type Source struct {
	lookup   Lookup
	tollNPAs []string
	logger   *zap.Logger
}

// NewSource creates a source. tollNPAs names NPAs whose prefixes are toll destinations even
// when none of them is local.
func NewSource(lookup Lookup, tollNPAs []string, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{lookup: lookup, tollNPAs: tollNPAs, logger: logger}
}

// Name identifies the source in logs
func (s *Source) Name() string { return serviceName }

// Fetch returns local records first, then toll records grouped by NPA in ascending order.
func (s *Source) Fetch(ctx context.Context, home numbering.HomeContext) ([]numbering.RawRecord, error) {
	locals, err := s.lookup.LocalPrefixes(ctx, home.NPA.String(), home.NXX.String())
	if err != nil {
		return nil, err
	}

	local := make(map[string]bool, len(locals))
	npaSet := map[string]bool{home.NPA.String(): true}
	records := make([]numbering.RawRecord, 0, len(locals))
	for _, p := range locals {
		local[p.NPA+p.NXX] = true
		if values.IsValidCode(p.NPA) {
			npaSet[p.NPA] = true
		}
		records = append(records, numbering.RawRecord{NPA: p.NPA, NXX: p.NXX, BillingClass: numbering.BillingLocal.String()})
	}
	for _, npa := range s.tollNPAs {
		npaSet[npa] = true
	}

	npas := make([]string, 0, len(npaSet))
	for npa := range npaSet {
		npas = append(npas, npa)
	}
	sort.Strings(npas)

	assigned := make([][]Prefix, len(npas))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prefixFetchConcurrency)
	for i, npa := range npas {
		g.Go(func() error {
			prefixes, err := s.lookup.Prefixes(gctx, npa)
			if err != nil {
				return err
			}
			assigned[i] = prefixes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tolls := 0
	for i, npa := range npas {
		for _, p := range assigned[i] {
			if p.NPA == "" {
				p.NPA = npa
			}
			if local[p.NPA+p.NXX] {
				continue
			}
			records = append(records, numbering.RawRecord{NPA: p.NPA, NXX: p.NXX, BillingClass: numbering.BillingToll.String()})
			tolls++
		}
	}

	s.logger.Info("fetched calling area",
		zap.String("home", home.String()),
		zap.Int("local", len(locals)),
		zap.Int("toll", tolls),
		zap.Strings("npas", npas))

	return records, nil
}
