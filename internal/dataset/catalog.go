package dataset

import (
	"fmt"
	"strings"
)

// Format identifies one of the published encodings of the dataset.
type Format string

const (
	FormatParquet Format = "parquet"
	FormatZip     Format = "zip"
	FormatCSV     Format = "csv"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatParquet:
		return FormatParquet, nil
	case FormatZip:
		return FormatZip, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unknown format %q (choose parquet, zip, or csv)", s)
}

// FileInfo describes one published dataset file. Size is the size label
// from the release listing; the authoritative byte count comes from the
// server at download time.
type FileInfo struct {
	Name string
	Size string
	Desc string
}

// Catalog lists the files of one dataset release.
type Catalog struct {
	BaseURL string
	Files   map[Format]FileInfo
}

// DefaultCatalog returns the catalog for the Medicaid provider spending
// release rooted at baseURL.
func DefaultCatalog(baseURL string) Catalog {
	return Catalog{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Files: map[Format]FileInfo{
			FormatParquet: {
				Name: "medicaid-provider-spending.parquet",
				Size: "2.9 GB",
				Desc: "Columnar format - best for analytics (recommended)",
			},
			FormatZip: {
				Name: "medicaid-provider-spending.csv.zip",
				Size: "3.6 GB",
				Desc: "Compressed CSV - good balance of size and compatibility",
			},
			FormatCSV: {
				Name: "medicaid-provider-spending.csv",
				Size: "11.1 GB",
				Desc: "Raw CSV - largest file, universal compatibility",
			},
		},
	}
}

// Formats returns the known formats in a stable order.
func (c Catalog) Formats() []Format {
	order := []Format{FormatParquet, FormatZip, FormatCSV}
	formats := make([]Format, 0, len(order))
	for _, f := range order {
		if _, ok := c.Files[f]; ok {
			formats = append(formats, f)
		}
	}
	return formats
}

// File returns the published file for a format.
func (c Catalog) File(format Format) (FileInfo, error) {
	info, ok := c.Files[format]
	if !ok {
		return FileInfo{}, fmt.Errorf("no file published for format %q", format)
	}
	return info, nil
}

// URL returns the download URL for a format.
func (c Catalog) URL(format Format) (string, error) {
	info, err := c.File(format)
	if err != nil {
		return "", err
	}
	return c.BaseURL + "/" + info.Name, nil
}
