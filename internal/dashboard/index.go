// Package dashboard serves the monthly spending trends of the top billing
// providers as a navigable set of chart pages backed by the summary CSVs.
package dashboard

import (
	"sort"

	"github.com/mzhao577/medicaidspend/internal/registry"
	"github.com/mzhao577/medicaidspend/internal/summary"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// unknownName labels providers the names file has no row for.
const unknownName = "Unknown"

// ProviderSeries is the chart-ready monthly payment series for one ranked
// billing provider. Rank is 1-based in descending total-paid order and
// TotalPaid is the sum over every month.
type ProviderSeries struct {
	Rank      int
	NPI       string
	Name      string
	City      string
	State     string
	Specialty string
	TotalPaid float64
	Months    []string
	Paid      []float64
}

// Location returns "CITY, STATE" or whichever part is known.
func (p ProviderSeries) Location() string {
	switch {
	case p.City != "" && p.State != "":
		return p.City + ", " + p.State
	case p.City != "":
		return p.City
	default:
		return p.State
	}
}

// Index holds every provider series in rank order.
type Index struct {
	providers []ProviderSeries
}

// LoadIndex builds the dashboard index from the monthly summary CSV,
// ranking providers by their summed paid totals. When namesPath is
// non-empty the enriched provider CSV supplies display details, taken as
// written there; providers without a row are shown as Unknown. A missing
// or unreadable names file degrades to Unknown for everyone.
func LoadIndex(summaryPath, namesPath string, logger *zap.Logger) (*Index, error) {
	points, err := summary.ReadMonthlyCSV(summaryPath)
	if err != nil {
		return nil, errors.Wrap(err, "load monthly summary")
	}
	if len(points) == 0 {
		return nil, errors.Errorf("no monthly rows in %s", summaryPath)
	}

	byNPI := make(map[string]int)
	series := make([]ProviderSeries, 0)
	for _, pt := range points {
		i, ok := byNPI[pt.NPI]
		if !ok {
			i = len(series)
			byNPI[pt.NPI] = i
			series = append(series, ProviderSeries{NPI: pt.NPI, Name: unknownName})
		}
		series[i].Months = append(series[i].Months, pt.Month)
		series[i].Paid = append(series[i].Paid, pt.Paid)
		series[i].TotalPaid += pt.Paid
	}
	sort.Slice(series, func(i, j int) bool {
		if series[i].TotalPaid != series[j].TotalPaid {
			return series[i].TotalPaid > series[j].TotalPaid
		}
		return series[i].NPI < series[j].NPI
	})
	for i := range series {
		series[i].Rank = i + 1
		byNPI[series[i].NPI] = i
		sortSeriesByMonth(&series[i])
	}

	named := 0
	if namesPath != "" {
		providers, err := registry.ReadEnrichedCSV(namesPath)
		if err != nil {
			logger.Warn("provider names unavailable",
				zap.String("path", namesPath),
				zap.Error(err))
		} else {
			for _, p := range providers {
				i, ok := byNPI[p.NPI]
				if !ok {
					continue
				}
				if p.Name != "" {
					series[i].Name = p.Name
				}
				series[i].City = p.City
				series[i].State = p.State
				series[i].Specialty = p.Specialty
				named++
			}
		}
	}

	logger.Info("dashboard index loaded",
		zap.String("summary", summaryPath),
		zap.Int("providers", len(series)),
		zap.Int("named", named))

	return &Index{providers: series}, nil
}

// Len returns the number of ranked providers.
func (i *Index) Len() int {
	return len(i.providers)
}

// ByRank returns the series for a 1-based rank.
func (i *Index) ByRank(rank int) (ProviderSeries, bool) {
	if rank < 1 || rank > len(i.providers) {
		return ProviderSeries{}, false
	}
	return i.providers[rank-1], true
}

// sortSeriesByMonth orders one provider's points chronologically, keeping
// the paid values aligned with their months.
func sortSeriesByMonth(p *ProviderSeries) {
	idx := make([]int, len(p.Months))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return p.Months[idx[a]] < p.Months[idx[b]]
	})
	months := make([]string, len(idx))
	paid := make([]float64, len(idx))
	for i, j := range idx {
		months[i] = p.Months[j]
		paid[i] = p.Paid[j]
	}
	p.Months = months
	p.Paid = paid
}
