package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "parquet", want: FormatParquet},
		{in: "ZIP", want: FormatZip},
		{in: "Csv", want: FormatCSV},
		{in: "xlsx", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalog_URL(t *testing.T) {
	catalog := DefaultCatalog("https://example.com/release/2026-02-09/")

	url, err := catalog.URL(FormatParquet)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/release/2026-02-09/medicaid-provider-spending.parquet", url)

	_, err = catalog.URL(Format("xlsx"))
	require.Error(t, err)
}

func TestCatalog_Formats(t *testing.T) {
	catalog := DefaultCatalog("https://example.com")
	assert.Equal(t, []Format{FormatParquet, FormatZip, FormatCSV}, catalog.Formats())
}

func TestCatalog_File(t *testing.T) {
	catalog := DefaultCatalog("https://example.com")

	info, err := catalog.File(FormatZip)
	require.NoError(t, err)
	assert.Equal(t, "medicaid-provider-spending.csv.zip", info.Name)
	assert.NotEmpty(t, info.Size)
	assert.NotEmpty(t, info.Desc)

	_, err = catalog.File(Format("xlsx"))
	require.Error(t, err)
}
