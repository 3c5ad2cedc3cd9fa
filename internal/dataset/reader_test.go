package dataset

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const claimsCSV = `BILLING_PROVIDER_NPI_NUM,SERVICING_PROVIDER_NPI_NUM,HCPCS_CODE,CLAIM_FROM_MONTH,TOTAL_UNIQUE_BENEFICIARIES,TOTAL_CLAIMS,TOTAL_PAID
1234567890,1093712345,99213,2023-01,10,25,1500.50
1234567890,1093712345,99214,2023-02,8,12,2200.00
9876543210,1558312000,J0135,2024-03,3,3,18750.25
`

var claimsWant = []Claim{
	{BillingNPI: "1234567890", ServicingNPI: "1093712345", HCPCS: "99213", Month: "2023-01", Beneficiaries: 10, Claims: 25, Paid: 1500.50},
	{BillingNPI: "1234567890", ServicingNPI: "1093712345", HCPCS: "99214", Month: "2023-02", Beneficiaries: 8, Claims: 12, Paid: 2200.00},
	{BillingNPI: "9876543210", ServicingNPI: "1558312000", HCPCS: "J0135", Month: "2024-03", Beneficiaries: 3, Claims: 3, Paid: 18750.25},
}

// readAll drains a reader and closes it.
func readAll(t *testing.T, r Reader) []Claim {
	t.Helper()
	defer r.Close()

	var claims []Claim
	for {
		claim, err := r.Next()
		if err == io.EOF {
			return claims
		}
		require.NoError(t, err)
		claims = append(claims, claim)
	}
}

func TestOpen_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spending.csv")
	require.NoError(t, os.WriteFile(path, []byte(claimsCSV), 0o644))

	r, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, claimsWant, readAll(t, r))
}

func TestOpen_Zip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spending.zip")
	writeZip(t, path, "medicaid-provider-spending.csv", claimsCSV)

	r, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, claimsWant, readAll(t, r))
}

func TestOpen_ZipWithoutCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spending.zip")
	writeZip(t, path, "readme.txt", "nothing here")

	_, err := Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no csv entry")
}

func TestOpen_UnsupportedExtension(t *testing.T) {
	_, err := Open("spending.xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported dataset file")
}

func TestCSVReader_HeaderOrderIndependent(t *testing.T) {
	const shuffled = `TOTAL_PAID,CLAIM_FROM_MONTH,BILLING_PROVIDER_NPI_NUM,HCPCS_CODE,TOTAL_CLAIMS,SERVICING_PROVIDER_NPI_NUM,TOTAL_UNIQUE_BENEFICIARIES
99.75,2022-11,1111111111,99213,4,2222222222,2
`
	path := filepath.Join(t.TempDir(), "spending.csv")
	require.NoError(t, os.WriteFile(path, []byte(shuffled), 0o644))

	r, err := Open(path)
	require.NoError(t, err)

	claims := readAll(t, r)
	require.Len(t, claims, 1)
	assert.Equal(t, Claim{
		BillingNPI:    "1111111111",
		ServicingNPI:  "2222222222",
		HCPCS:         "99213",
		Month:         "2022-11",
		Beneficiaries: 2,
		Claims:        4,
		Paid:          99.75,
	}, claims[0])
}

func TestCSVReader_MissingColumn(t *testing.T) {
	const noMonth = `BILLING_PROVIDER_NPI_NUM,SERVICING_PROVIDER_NPI_NUM,HCPCS_CODE,TOTAL_UNIQUE_BENEFICIARIES,TOTAL_CLAIMS,TOTAL_PAID
1234567890,1093712345,99213,10,25,1500.50
`
	path := filepath.Join(t.TempDir(), "spending.csv")
	require.NoError(t, os.WriteFile(path, []byte(noMonth), 0o644))

	_, err := Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLAIM_FROM_MONTH")
}

func TestCSVReader_EmptyNumericCells(t *testing.T) {
	const sparse = `BILLING_PROVIDER_NPI_NUM,SERVICING_PROVIDER_NPI_NUM,HCPCS_CODE,CLAIM_FROM_MONTH,TOTAL_UNIQUE_BENEFICIARIES,TOTAL_CLAIMS,TOTAL_PAID
1234567890,,99213,2023-01,,,
`
	path := filepath.Join(t.TempDir(), "spending.csv")
	require.NoError(t, os.WriteFile(path, []byte(sparse), 0o644))

	r, err := Open(path)
	require.NoError(t, err)

	claims := readAll(t, r)
	require.Len(t, claims, 1)
	assert.Equal(t, int64(0), claims[0].Beneficiaries)
	assert.Equal(t, int64(0), claims[0].Claims)
	assert.Equal(t, float64(0), claims[0].Paid)
}

func TestCSVReader_SkipsMalformedRows(t *testing.T) {
	// Row 2 has a non-numeric count, row 4 is truncated. Both are dropped
	// and counted, the clean rows still come through in order.
	const mixed = `BILLING_PROVIDER_NPI_NUM,SERVICING_PROVIDER_NPI_NUM,HCPCS_CODE,CLAIM_FROM_MONTH,TOTAL_UNIQUE_BENEFICIARIES,TOTAL_CLAIMS,TOTAL_PAID
1234567890,1093712345,99213,2023-01,ten,25,1500.50
1234567890,1093712345,99214,2023-02,8,12,2200.00
9876543210,1558312000,J0135,2024-03
9876543210,1558312000,J0135,2024-03,3,3,18750.25
`
	path := filepath.Join(t.TempDir(), "spending.csv")
	require.NoError(t, os.WriteFile(path, []byte(mixed), 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	var months []string
	for {
		claim, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		months = append(months, claim.Month)
	}
	assert.Equal(t, []string{"2023-02", "2024-03"}, months)
	assert.Equal(t, int64(2), r.Skipped())
}

func TestCSVReader_CleanFileSkipsNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spending.csv")
	require.NoError(t, os.WriteFile(path, []byte(claimsCSV), 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	for {
		_, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, int64(0), r.Skipped())
}

func writeZip(t *testing.T, path, entryName, content string) {
	t.Helper()

	file, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(file)
	entry, err := zw.Create(entryName)
	require.NoError(t, err)
	_, err = entry.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, file.Close())
}
