package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumns_CSV(t *testing.T) {
	const sample = `BILLING_PROVIDER_NPI_NUM,SERVICING_PROVIDER_NPI_NUM,HCPCS_CODE,CLAIM_FROM_MONTH,TOTAL_UNIQUE_BENEFICIARIES,TOTAL_CLAIMS,TOTAL_PAID
1234567890,1093712345,J0135,2023-01,10,25,1500.50
`
	path := filepath.Join(t.TempDir(), "spending.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	columns, err := Columns(path)
	require.NoError(t, err)
	assert.Equal(t, []Column{
		{1, ColBillingNPI, "int64"},
		{2, ColServicingNPI, "int64"},
		{3, ColHCPCS, "string"},
		{4, ColMonth, "string"},
		{5, ColBeneficiaries, "int64"},
		{6, ColClaims, "int64"},
		{7, ColPaid, "float64"},
	}, columns)
}

func TestColumns_Zip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spending.zip")
	writeZip(t, path, "medicaid-provider-spending.csv", claimsCSV)

	columns, err := Columns(path)
	require.NoError(t, err)

	names := make([]string, 0, len(columns))
	for _, c := range columns {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{
		ColBillingNPI, ColServicingNPI, ColHCPCS, ColMonth,
		ColBeneficiaries, ColClaims, ColPaid,
	}, names)
}

func TestColumns_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spending.csv")
	require.NoError(t, os.WriteFile(path, []byte("A,B\n"), 0o644))

	columns, err := Columns(path)
	require.NoError(t, err)
	assert.Equal(t, []Column{
		{1, "A", "string"},
		{2, "B", "string"},
	}, columns)
}

func TestWriteColumnsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "column_names.csv")
	require.NoError(t, WriteColumnsCSV(path, []Column{
		{1, "ALPHA", "int64"},
		{2, "BETA", "string"},
	}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "column_number,column_name,data_type\n1,ALPHA,int64\n2,BETA,string\n", string(content))
}

func TestDescribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spending.csv")
	require.NoError(t, os.WriteFile(path, []byte(claimsCSV), 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	stats, err := Describe(r)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Rows)
	assert.Equal(t, int64(3), stats.Paid.Count)
	assert.Equal(t, 1500.50, stats.Paid.Min)
	assert.Equal(t, 18750.25, stats.Paid.Max)
	assert.InDelta(t, (1500.50+2200.00+18750.25)/3, stats.Paid.Mean(), 1e-9)
	assert.Equal(t, float64(3), stats.Beneficiaries.Min)
	assert.Equal(t, float64(10), stats.Beneficiaries.Max)
	assert.Equal(t, float64(3), stats.Claims.Min)
	assert.Equal(t, float64(25), stats.Claims.Max)
}

func TestColumnStats_EmptyMean(t *testing.T) {
	assert.Equal(t, float64(0), ColumnStats{}.Mean())
}
