package summary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mzhao577/medicaidspend/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthlyForProviders(t *testing.T) {
	reader := &fakeReader{claims: []dataset.Claim{
		{BillingNPI: "2222222222", Month: "2023-02", Claims: 2, Paid: 50},
		{BillingNPI: "1111111111", Month: "2023-01", Claims: 1, Paid: 10},
		{BillingNPI: "9999999999", Month: "2023-01", Claims: 9, Paid: 1000}, // not selected
		{BillingNPI: "1111111111", Month: "2023-01", Claims: 3, Paid: 15},
		{BillingNPI: "1111111111", Month: "2023-03", Claims: 1, Paid: 20},
		{BillingNPI: "2222222222", Month: "2023-01", Claims: 4, Paid: 40},
	}}

	got, err := MonthlyForProviders(reader, []string{"2222222222", "1111111111"})
	require.NoError(t, err)

	// NPIs ascend, months ascend within one NPI, same-month claims sum.
	want := []MonthlyPoint{
		{NPI: "1111111111", Month: "2023-01", Claims: 4, Paid: 25},
		{NPI: "1111111111", Month: "2023-03", Claims: 1, Paid: 20},
		{NPI: "2222222222", Month: "2023-01", Claims: 4, Paid: 40},
		{NPI: "2222222222", Month: "2023-02", Claims: 2, Paid: 50},
	}
	assert.Equal(t, want, got)
}

func TestMonthlyForProviders_ReaderError(t *testing.T) {
	reader := &fakeReader{err: assert.AnError}

	_, err := MonthlyForProviders(reader, []string{"1111111111"})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestWriteMonthlyCSV_RoundTrip(t *testing.T) {
	points := []MonthlyPoint{
		{NPI: "1111111111", Month: "2023-01", Claims: 4, Paid: 25},
		{NPI: "2222222222", Month: "2023-03", Claims: 1, Paid: 20.25},
	}
	path := filepath.Join(t.TempDir(), "monthly_summary.csv")
	require.NoError(t, WriteMonthlyCSV(path, points))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "billing_npi,month,total_claims,total_paid\n" +
		"1111111111,2023-01,4,25.00\n" +
		"2222222222,2023-03,1,20.25\n"
	assert.Equal(t, want, string(content))

	got, err := ReadMonthlyCSV(path)
	require.NoError(t, err)
	assert.Equal(t, points, got)
}

func TestReadMonthlyCSV_MissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("billing_npi,total_paid\n1,2\n"), 0o644))

	_, err := ReadMonthlyCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "month")
}

func TestWriteTrendCSV(t *testing.T) {
	top := []BillingSummary{
		{NPI: "2222222222", Claims: 6, Paid: 90},
		{NPI: "1111111111", Claims: 5, Paid: 45},
	}
	points := []MonthlyPoint{
		{NPI: "1111111111", Month: "2022-12", Claims: 4, Paid: 25},
		{NPI: "1111111111", Month: "2023-03", Claims: 1, Paid: 20},
		{NPI: "2222222222", Month: "2023-01", Claims: 4, Paid: 40},
		{NPI: "2222222222", Month: "2023-02", Claims: 2, Paid: 50},
		{NPI: "9999999999", Month: "2023-01", Claims: 1, Paid: 5}, // not ranked
	}
	path := filepath.Join(t.TempDir(), "monthly_trend.csv")
	require.NoError(t, WriteTrendCSV(path, top, points))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "rank,billing_npi,npi_total_paid,year,month_num,total_claims,total_paid\n" +
		"1,2222222222,90.00,2023,1,4,40.00\n" +
		"1,2222222222,90.00,2023,2,2,50.00\n" +
		"2,1111111111,45.00,2022,12,4,25.00\n" +
		"2,1111111111,45.00,2023,3,1,20.00\n"
	assert.Equal(t, want, string(content))
}

func TestWriteTrendCSV_MalformedMonth(t *testing.T) {
	top := []BillingSummary{{NPI: "1111111111", Paid: 10}}
	points := []MonthlyPoint{{NPI: "1111111111", Month: "202301", Paid: 10}}

	err := WriteTrendCSV(filepath.Join(t.TempDir(), "trend.csv"), top, points)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed month")
}
