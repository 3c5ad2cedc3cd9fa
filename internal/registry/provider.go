// Package registry resolves NPI numbers to provider details using the CMS
// NPI Registry API, with a local cache so re-runs skip the network.
package registry

// Provider holds the registry details for one NPI. Found is false when the
// registry had no record for the number.
type Provider struct {
	NPI       string
	Name      string
	Type      string // Organization or Individual
	Specialty string
	Address   string
	City      string
	State     string
	Zip       string
	Found     bool
}
