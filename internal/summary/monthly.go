package summary

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mzhao577/medicaidspend/internal/dataset"
	"github.com/pkg/errors"
)

// MonthlyPoint aggregates one billing provider's claims in one month.
type MonthlyPoint struct {
	NPI    string
	Month  string // YYYY-MM
	Claims int64
	Paid   float64
}

// MonthlyForProviders aggregates claims per provider and month in one pass
// over the reader, keeping only claims billed by the given providers.
// Points come back sorted by NPI ascending, then month ascending.
func MonthlyForProviders(r dataset.Reader, npis []string) ([]MonthlyPoint, error) {
	keep := make(map[string]bool, len(npis))
	for _, npi := range npis {
		keep[npi] = true
	}

	type key struct{ npi, month string }
	totals := make(map[key]*MonthlyPoint)
	for {
		claim, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !keep[claim.BillingNPI] {
			continue
		}
		k := key{claim.BillingNPI, claim.Month}
		p, ok := totals[k]
		if !ok {
			p = &MonthlyPoint{NPI: k.npi, Month: k.month}
			totals[k] = p
		}
		p.Claims += claim.Claims
		p.Paid += claim.Paid
	}

	points := make([]MonthlyPoint, 0, len(totals))
	for _, p := range totals {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].NPI != points[j].NPI {
			return points[i].NPI < points[j].NPI
		}
		return points[i].Month < points[j].Month
	})
	return points, nil
}

// WriteMonthlyCSV writes one row per provider and month.
func WriteMonthlyCSV(path string, points []MonthlyPoint) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create monthly csv")
	}

	w := csv.NewWriter(file)
	if err := w.Write([]string{colNPI, colMonth, colClaims, colPaid}); err != nil {
		file.Close()
		return errors.Wrap(err, "write monthly csv")
	}
	for _, p := range points {
		record := []string{
			p.NPI,
			p.Month,
			strconv.FormatInt(p.Claims, 10),
			formatAmount(p.Paid),
		}
		if err := w.Write(record); err != nil {
			file.Close()
			return errors.Wrap(err, "write monthly csv")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return errors.Wrap(err, "flush monthly csv")
	}
	return errors.Wrap(file.Close(), "close monthly csv")
}

// ReadMonthlyCSV loads a file written by WriteMonthlyCSV, preserving row
// order.
func ReadMonthlyCSV(path string) ([]MonthlyPoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open monthly csv")
	}
	defer file.Close()

	r := csv.NewReader(file)
	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read monthly header")
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range []string{colNPI, colMonth, colClaims, colPaid} {
		if _, ok := cols[name]; !ok {
			return nil, errors.Errorf("missing column %q", name)
		}
	}

	var points []MonthlyPoint
	for {
		record, err := r.Read()
		if err == io.EOF {
			return points, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "read monthly record")
		}
		claims, err := strconv.ParseInt(strings.TrimSpace(record[cols[colClaims]]), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d column %s", len(points)+1, colClaims)
		}
		paid, err := strconv.ParseFloat(strings.TrimSpace(record[cols[colPaid]]), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d column %s", len(points)+1, colPaid)
		}
		points = append(points, MonthlyPoint{
			NPI:    strings.TrimSpace(record[cols[colNPI]]),
			Month:  strings.TrimSpace(record[cols[colMonth]]),
			Claims: claims,
			Paid:   paid,
		})
	}
}

// WriteTrendCSV writes the chart-ready long form of the monthly series: one
// row per provider and month carrying the provider's rank and overall total
// plus the month split into year and month number. Rows are ordered by
// rank, then year, then month. Points for providers outside the top list
// are dropped.
func WriteTrendCSV(path string, top []BillingSummary, points []MonthlyPoint) error {
	type provider struct {
		rank int
		paid float64
	}
	ranked := make(map[string]provider, len(top))
	for i, s := range top {
		ranked[s.NPI] = provider{rank: i + 1, paid: s.Paid}
	}

	type trendRow struct {
		rank     int
		npi      string
		npiTotal float64
		year     string
		monthNum int
		claims   int64
		paid     float64
	}
	rows := make([]trendRow, 0, len(points))
	for _, p := range points {
		prov, ok := ranked[p.NPI]
		if !ok {
			continue
		}
		year, monthNum, err := splitMonth(p.Month)
		if err != nil {
			return err
		}
		rows = append(rows, trendRow{
			rank:     prov.rank,
			npi:      p.NPI,
			npiTotal: prov.paid,
			year:     year,
			monthNum: monthNum,
			claims:   p.Claims,
			paid:     p.Paid,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].rank != rows[j].rank {
			return rows[i].rank < rows[j].rank
		}
		if rows[i].year != rows[j].year {
			return rows[i].year < rows[j].year
		}
		return rows[i].monthNum < rows[j].monthNum
	})

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create trend csv")
	}

	w := csv.NewWriter(file)
	header := []string{colRank, colNPI, colNPITotal, colYear, colMonthNum, colClaims, colPaid}
	if err := w.Write(header); err != nil {
		file.Close()
		return errors.Wrap(err, "write trend csv")
	}
	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.rank),
			row.npi,
			formatAmount(row.npiTotal),
			row.year,
			strconv.Itoa(row.monthNum),
			strconv.FormatInt(row.claims, 10),
			formatAmount(row.paid),
		}
		if err := w.Write(record); err != nil {
			file.Close()
			return errors.Wrap(err, "write trend csv")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return errors.Wrap(err, "flush trend csv")
	}
	return errors.Wrap(file.Close(), "close trend csv")
}

// splitMonth splits a YYYY-MM month key into its year and month number.
func splitMonth(month string) (string, int, error) {
	year, num, ok := strings.Cut(month, "-")
	if !ok {
		return "", 0, errors.Errorf("malformed month %q", month)
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return "", 0, errors.Wrapf(err, "malformed month %q", month)
	}
	return year, n, nil
}
