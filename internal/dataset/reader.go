package dataset

import (
	"archive/zip"
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Reader streams claims from one dataset file in row order. Next returns
// io.EOF after the last row. Skipped reports how many malformed rows were
// dropped so far; parquet files never produce any.
type Reader interface {
	Next() (Claim, error)
	Skipped() int64
	Close() error
}

// Open opens the file at path with a reader chosen by its extension:
// .parquet, .zip (holding the CSV), or .csv.
func Open(path string) (Reader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return openParquet(path)
	case ".zip":
		return openZip(path)
	case ".csv":
		return openCSV(path)
	}
	return nil, errors.Errorf("unsupported dataset file %q", path)
}

// claimColumns holds the record index of each claim column.
type claimColumns struct {
	billing       int
	servicing     int
	hcpcs         int
	month         int
	beneficiaries int
	claims        int
	paid          int
}

func resolveColumns(header []string) (claimColumns, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	cols := claimColumns{}
	for _, col := range []struct {
		name string
		dst  *int
	}{
		{ColBillingNPI, &cols.billing},
		{ColServicingNPI, &cols.servicing},
		{ColHCPCS, &cols.hcpcs},
		{ColMonth, &cols.month},
		{ColBeneficiaries, &cols.beneficiaries},
		{ColClaims, &cols.claims},
		{ColPaid, &cols.paid},
	} {
		i, ok := index[col.name]
		if !ok {
			return claimColumns{}, errors.Errorf("missing column %q", col.name)
		}
		*col.dst = i
	}
	return cols, nil
}

// csvDecoder turns CSV records into claims. Malformed records (bad quoting,
// wrong field count, unparseable numeric cells) are skipped and counted
// rather than ending the stream. Closing the underlying input is the
// caller's concern.
type csvDecoder struct {
	csv     *csv.Reader
	cols    claimColumns
	skipped int64
}

func newCSVDecoder(r io.Reader) (*csvDecoder, error) {
	cr := csv.NewReader(bufio.NewReaderSize(r, 256*1024))
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}
	return &csvDecoder{csv: cr, cols: cols}, nil
}

func (d *csvDecoder) next() (Claim, error) {
	for {
		record, err := d.csv.Read()
		if err == io.EOF {
			return Claim{}, io.EOF
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				d.skipped++
				continue
			}
			return Claim{}, errors.Wrap(err, "read csv record")
		}

		beneficiaries, err := parseCount(record[d.cols.beneficiaries])
		if err != nil {
			d.skipped++
			continue
		}
		claims, err := parseCount(record[d.cols.claims])
		if err != nil {
			d.skipped++
			continue
		}
		paid, err := parseAmount(record[d.cols.paid])
		if err != nil {
			d.skipped++
			continue
		}

		return Claim{
			BillingNPI:    strings.TrimSpace(record[d.cols.billing]),
			ServicingNPI:  strings.TrimSpace(record[d.cols.servicing]),
			HCPCS:         strings.TrimSpace(record[d.cols.hcpcs]),
			Month:         strings.TrimSpace(record[d.cols.month]),
			Beneficiaries: beneficiaries,
			Claims:        claims,
			Paid:          paid,
		}, nil
	}
}

func parseCount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

type csvFileReader struct {
	file *os.File
	dec  *csvDecoder
}

var _ Reader = (*csvFileReader)(nil)

func openCSV(path string) (Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open csv file")
	}
	dec, err := newCSVDecoder(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &csvFileReader{file: file, dec: dec}, nil
}

func (r *csvFileReader) Next() (Claim, error) {
	return r.dec.next()
}

func (r *csvFileReader) Skipped() int64 {
	return r.dec.skipped
}

func (r *csvFileReader) Close() error {
	return r.file.Close()
}

type zipFileReader struct {
	archive *zip.ReadCloser
	entry   io.ReadCloser
	dec     *csvDecoder
}

var _ Reader = (*zipFileReader)(nil)

func openZip(path string) (Reader, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(err, "open zip archive")
	}

	var target *zip.File
	for _, f := range archive.File {
		if strings.EqualFold(filepath.Ext(f.Name), ".csv") {
			target = f
			break
		}
	}
	if target == nil {
		archive.Close()
		return nil, errors.Errorf("no csv entry in %q", path)
	}

	entry, err := target.Open()
	if err != nil {
		archive.Close()
		return nil, errors.Wrapf(err, "open zip entry %q", target.Name)
	}

	dec, err := newCSVDecoder(entry)
	if err != nil {
		entry.Close()
		archive.Close()
		return nil, err
	}
	return &zipFileReader{archive: archive, entry: entry, dec: dec}, nil
}

func (r *zipFileReader) Next() (Claim, error) {
	return r.dec.next()
}

func (r *zipFileReader) Skipped() int64 {
	return r.dec.skipped
}

func (r *zipFileReader) Close() error {
	r.entry.Close()
	return r.archive.Close()
}
