package dashboard

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// yearColors pins each claim year to a fixed line color so a year keeps
// its color across providers.
var yearColors = map[string]string{
	"2018": "#1f77b4",
	"2019": "#ff7f0e",
	"2020": "#2ca02c",
	"2021": "#d62728",
	"2022": "#9467bd",
	"2023": "#8c564b",
	"2024": "#e377c2",
}

// fallbackColor is used for years outside the pinned palette.
const fallbackColor = "#7f7f7f"

func colorForYear(year string) string {
	if c, ok := yearColors[year]; ok {
		return c
	}
	return fallbackColor
}

var monthLabels = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// monthSlot splits a YYYY-MM key into its year and 0-based month index.
func monthSlot(month string) (string, int, bool) {
	year, num, found := strings.Cut(month, "-")
	if !found {
		return "", 0, false
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 || n > 12 {
		return "", 0, false
	}
	return year, n - 1, true
}

// RenderChart writes a standalone HTML page charting one provider's monthly
// paid totals in millions of dollars, with the years overlaid on a shared
// January to December axis. total is the number of ranked providers, shown
// alongside the provider's own rank.
func RenderChart(w io.Writer, p ProviderSeries, total int) error {
	// One 12-slot series per year. Slots without claims stay null so the
	// line breaks instead of dropping to zero.
	years := make([]string, 0)
	perYear := make(map[string][]opts.LineData)
	for i, m := range p.Months {
		year, slot, ok := monthSlot(m)
		if !ok {
			continue
		}
		data, seen := perYear[year]
		if !seen {
			data = make([]opts.LineData, len(monthLabels))
			perYear[year] = data
			years = append(years, year)
		}
		data[slot] = opts.LineData{Value: p.Paid[i] / 1e6}
	}

	colors := make(opts.Colors, 0, len(years))
	for _, y := range years {
		colors = append(colors, colorForYear(y))
	}

	span := ""
	if len(years) > 0 {
		span = years[0]
		if last := years[len(years)-1]; last != span {
			span += "-" + last
		}
	}
	subtitle := fmt.Sprintf("NPI: %s | Rank: %d/%d | Total Paid (%s): $%s",
		p.NPI, p.Rank, total, span, humanize.CommafWithDigits(p.TotalPaid, 0))

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: fmt.Sprintf("#%d %s", p.Rank, p.Name),
			Width:     "1150px",
			Height:    "560px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    p.Name,
			Subtitle: subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "Total Paid (Millions $)",
		}),
		charts.WithColorsOpts(colors),
	)

	line.SetXAxis(monthLabels)
	for _, year := range years {
		line.AddSeries(year, perYear[year])
	}

	return line.Render(w)
}
