package dataset

import (
	"archive/zip"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
)

// Column describes one column of a dataset file. Number is 1-based.
type Column struct {
	Number int
	Name   string
	Type   string
}

// Columns returns the columns of the file at path without scanning its rows.
// Parquet names and types come from the file schema; CSV and zip read the
// header row and sniff types from the first data row.
func Columns(path string) ([]Column, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return parquetColumns(path)
	case ".zip":
		return zipColumns(path)
	case ".csv":
		return csvColumns(path)
	}
	return nil, errors.Errorf("unsupported dataset file %q", path)
}

// ParquetRowCount returns the row count recorded in the parquet footer.
func ParquetRowCount(path string) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open parquet file")
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "stat parquet file")
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return 0, errors.Wrap(err, "parse parquet file")
	}
	return pf.NumRows(), nil
}

func parquetColumns(path string) ([]Column, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open parquet file")
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat parquet file")
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, errors.Wrap(err, "parse parquet file")
	}

	fields := pf.Schema().Fields()
	columns := make([]Column, 0, len(fields))
	for i, f := range fields {
		typ := "string"
		if f.Leaf() {
			typ = kindType(f.Type().Kind())
		}
		columns = append(columns, Column{Number: i + 1, Name: f.Name(), Type: typ})
	}
	return columns, nil
}

func kindType(k parquet.Kind) string {
	switch k {
	case parquet.Boolean:
		return "bool"
	case parquet.Int32:
		return "int32"
	case parquet.Int64:
		return "int64"
	case parquet.Float:
		return "float32"
	case parquet.Double:
		return "float64"
	}
	return "string"
}

func csvColumns(path string) ([]Column, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open csv file")
	}
	defer file.Close()

	return headerColumns(file)
}

func zipColumns(path string) ([]Column, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(err, "open zip archive")
	}
	defer archive.Close()

	for _, f := range archive.File {
		if !strings.EqualFold(filepath.Ext(f.Name), ".csv") {
			continue
		}
		entry, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "open zip entry %q", f.Name)
		}
		columns, err := headerColumns(entry)
		entry.Close()
		return columns, err
	}
	return nil, errors.Errorf("no csv entry in %q", path)
}

func headerColumns(r io.Reader) ([]Column, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}

	columns := make([]Column, 0, len(header))
	for i, name := range header {
		columns = append(columns, Column{Number: i + 1, Name: strings.TrimSpace(name), Type: "string"})
	}

	// Type sniffing uses the first data row. A header-only file keeps
	// every column as string.
	sample, err := cr.Read()
	if err == nil {
		for i := range columns {
			if i < len(sample) {
				columns[i].Type = sniffType(sample[i])
			}
		}
	}
	return columns, nil
}

func sniffType(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "string"
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return "int64"
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return "float64"
	}
	return "string"
}

// WriteColumnsCSV writes the column inventory to path.
func WriteColumnsCSV(path string, columns []Column) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create columns csv")
	}

	w := csv.NewWriter(file)
	if err := w.Write([]string{"column_number", "column_name", "data_type"}); err != nil {
		file.Close()
		return errors.Wrap(err, "write columns csv")
	}
	for _, col := range columns {
		if err := w.Write([]string{strconv.Itoa(col.Number), col.Name, col.Type}); err != nil {
			file.Close()
			return errors.Wrap(err, "write columns csv")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return errors.Wrap(err, "flush columns csv")
	}
	return errors.Wrap(file.Close(), "close columns csv")
}

// ColumnStats aggregates one numeric claim measure.
type ColumnStats struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
}

func (s *ColumnStats) add(v float64) {
	if s.Count == 0 || v < s.Min {
		s.Min = v
	}
	if s.Count == 0 || v > s.Max {
		s.Max = v
	}
	s.Count++
	s.Sum += v
}

// Mean returns the arithmetic mean, or zero for an empty column.
func (s ColumnStats) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// Stats summarizes the numeric claim measures of a dataset file.
type Stats struct {
	Rows          int64
	Beneficiaries ColumnStats
	Claims        ColumnStats
	Paid          ColumnStats
}

// Describe scans every remaining row of r and aggregates column statistics.
func Describe(r Reader) (Stats, error) {
	var stats Stats
	for {
		claim, err := r.Next()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return Stats{}, err
		}
		stats.Rows++
		stats.Beneficiaries.add(float64(claim.Beneficiaries))
		stats.Claims.add(float64(claim.Claims))
		stats.Paid.add(claim.Paid)
	}
}
