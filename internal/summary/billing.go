// Package summary aggregates claims into the spending reports: per-provider
// totals, the ranked top spenders, and per-provider monthly series.
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

// Report CSV column names. The dataset columns are uppercase, the derived
// reports use these lowercase names.
const (
	colRank     = "rank"
	colNPI      = "billing_npi"
	colNPITotal = "npi_total_paid"
	colMonth    = "month"
	colYear     = "year"
	colMonthNum = "month_num"
	colClaims   = "total_claims"
	colPaid     = "total_paid"
)

// BillingSummary aggregates every claim billed by one provider.
type BillingSummary struct {
	NPI    string
	Claims int64
	Paid   float64
}

// ByBillingNPI aggregates claims by billing provider in one pass over the
// reader and returns providers sorted by total paid, highest first. Ties
// break by NPI so the order is stable.
func ByBillingNPI(r dataset.Reader) ([]BillingSummary, error) {
	totals := make(map[string]*BillingSummary)
	for {
		claim, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		s, ok := totals[claim.BillingNPI]
		if !ok {
			s = &BillingSummary{NPI: claim.BillingNPI}
			totals[claim.BillingNPI] = s
		}
		s.Claims += claim.Claims
		s.Paid += claim.Paid
	}

	result := make([]BillingSummary, 0, len(totals))
	for _, s := range totals {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Paid != result[j].Paid {
			return result[i].Paid > result[j].Paid
		}
		return result[i].NPI < result[j].NPI
	})
	return result, nil
}

// TopN returns the first n summaries, or all of them when fewer exist.
func TopN(rows []BillingSummary, n int) []BillingSummary {
	if n <= 0 || n >= len(rows) {
		return rows
	}
	return rows[:n]
}

// WriteBillingCSV writes provider totals to path, one row per provider in
// the given order.
func WriteBillingCSV(path string, rows []BillingSummary) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create summary csv")
	}

	w := csv.NewWriter(file)
	if err := w.Write([]string{colNPI, colClaims, colPaid}); err != nil {
		file.Close()
		return errors.Wrap(err, "write summary csv")
	}
	for _, row := range rows {
		record := []string{
			row.NPI,
			strconv.FormatInt(row.Claims, 10),
			formatAmount(row.Paid),
		}
		if err := w.Write(record); err != nil {
			file.Close()
			return errors.Wrap(err, "write summary csv")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return errors.Wrap(err, "flush summary csv")
	}
	return errors.Wrap(file.Close(), "close summary csv")
}

// TopEntry is one row of the ranked top-provider file. Rank starts at 1.
type TopEntry struct {
	Rank   int
	NPI    string
	Claims int64
	Paid   float64
}

// WriteTopCSV writes the ranked top-provider file. Ranks are assigned from
// the slice order, 1 first.
func WriteTopCSV(path string, rows []BillingSummary) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create top csv")
	}

	w := csv.NewWriter(file)
	if err := w.Write([]string{colRank, colNPI, colClaims, colPaid}); err != nil {
		file.Close()
		return errors.Wrap(err, "write top csv")
	}
	for i, row := range rows {
		record := []string{
			strconv.Itoa(i + 1),
			row.NPI,
			strconv.FormatInt(row.Claims, 10),
			formatAmount(row.Paid),
		}
		if err := w.Write(record); err != nil {
			file.Close()
			return errors.Wrap(err, "write top csv")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return errors.Wrap(err, "flush top csv")
	}
	return errors.Wrap(file.Close(), "close top csv")
}

// ReadTopCSV loads a file written by WriteTopCSV, preserving row order.
func ReadTopCSV(path string) ([]TopEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open top csv")
	}
	defer file.Close()

	r := csv.NewReader(file)
	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read top header")
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range []string{colRank, colNPI, colClaims, colPaid} {
		if _, ok := cols[name]; !ok {
			return nil, errors.Errorf("missing column %q", name)
		}
	}

	var entries []TopEntry
	for {
		record, err := r.Read()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "read top record")
		}
		rank, err := strconv.Atoi(strings.TrimSpace(record[cols[colRank]]))
		if err != nil {
			return nil, errors.Wrapf(err, "row %d column %s", len(entries)+1, colRank)
		}
		claims, err := strconv.ParseInt(strings.TrimSpace(record[cols[colClaims]]), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d column %s", len(entries)+1, colClaims)
		}
		paid, err := strconv.ParseFloat(strings.TrimSpace(record[cols[colPaid]]), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d column %s", len(entries)+1, colPaid)
		}
		entries = append(entries, TopEntry{
			Rank:   rank,
			NPI:    strings.TrimSpace(record[cols[colNPI]]),
			Claims: claims,
			Paid:   paid,
		})
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
