package dataset

import (
	"io"
	"os"
	"strconv"

	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
)

// spendingRow mirrors the parquet schema of the dataset. NPI columns are
// stored as integers in the parquet encoding and carried as strings in the
// claim model.
type spendingRow struct {
	BillingNPI    int64   `parquet:"BILLING_PROVIDER_NPI_NUM"`
	ServicingNPI  int64   `parquet:"SERVICING_PROVIDER_NPI_NUM"`
	HCPCS         string  `parquet:"HCPCS_CODE"`
	Month         string  `parquet:"CLAIM_FROM_MONTH"`
	Beneficiaries int64   `parquet:"TOTAL_UNIQUE_BENEFICIARIES"`
	Claims        int64   `parquet:"TOTAL_CLAIMS"`
	Paid          float64 `parquet:"TOTAL_PAID"`
}

func (r spendingRow) claim() Claim {
	return Claim{
		BillingNPI:    strconv.FormatInt(r.BillingNPI, 10),
		ServicingNPI:  strconv.FormatInt(r.ServicingNPI, 10),
		HCPCS:         r.HCPCS,
		Month:         r.Month,
		Beneficiaries: r.Beneficiaries,
		Claims:        r.Claims,
		Paid:          r.Paid,
	}
}

const parquetBatchSize = 1024

type parquetFileReader struct {
	file   *os.File
	reader *parquet.GenericReader[spendingRow]
	buf    []spendingRow
	pos    int
	n      int
	eof    bool
}

var _ Reader = (*parquetFileReader)(nil)

func openParquet(path string) (Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open parquet file")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, "stat parquet file")
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, "parse parquet file")
	}

	return &parquetFileReader{
		file:   file,
		reader: parquet.NewGenericReader[spendingRow](pf),
		buf:    make([]spendingRow, parquetBatchSize),
	}, nil
}

func (r *parquetFileReader) Next() (Claim, error) {
	if r.pos >= r.n {
		if r.eof {
			return Claim{}, io.EOF
		}
		n, err := r.reader.Read(r.buf)
		if err != nil && err != io.EOF {
			return Claim{}, errors.Wrap(err, "read parquet rows")
		}
		if err == io.EOF {
			r.eof = true
		}
		if n == 0 {
			return Claim{}, io.EOF
		}
		r.pos, r.n = 0, n
	}

	row := r.buf[r.pos]
	r.pos++
	return row.claim(), nil
}

// Skipped always reports zero. Parquet decoding either yields a typed row
// or fails the whole read.
func (r *parquetFileReader) Skipped() int64 {
	return 0
}

func (r *parquetFileReader) Close() error {
	err := r.reader.Close()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}
