package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client queries the CMS NPI Registry API.
type Client struct {
	rest   *resty.Client
	url    string
	logger *zap.Logger
}

// NewClient creates a new registry client for the given API endpoint.
func NewClient(apiURL string, timeout time.Duration, logger *zap.Logger) *Client {
	rest := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		rest:   rest,
		url:    apiURL,
		logger: logger,
	}
}

type lookupResponse struct {
	ResultCount int            `json:"result_count"`
	Results     []lookupResult `json:"results"`
}

type lookupResult struct {
	EnumerationType string           `json:"enumeration_type"`
	Basic           lookupBasic      `json:"basic"`
	Addresses       []lookupAddress  `json:"addresses"`
	Taxonomies      []lookupTaxonomy `json:"taxonomies"`
}

type lookupBasic struct {
	OrganizationName string `json:"organization_name"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Credential       string `json:"credential"`
}

type lookupAddress struct {
	AddressPurpose string `json:"address_purpose"`
	Address1       string `json:"address_1"`
	City           string `json:"city"`
	State          string `json:"state"`
	PostalCode     string `json:"postal_code"`
}

type lookupTaxonomy struct {
	Desc    string `json:"desc"`
	Primary bool   `json:"primary"`
}

// Lookup resolves one NPI. A number the registry does not know comes back
// with Found false and no error; errors are reserved for transport and
// server failures.
func (c *Client) Lookup(ctx context.Context, npi string) (Provider, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"number":  npi,
			"version": "2.1",
		}).
		SetResult(&lookupResponse{}).
		Get(c.url)
	if err != nil {
		return Provider{}, fmt.Errorf("registry request failed: %w", err)
	}
	if resp.IsError() {
		return Provider{}, fmt.Errorf("registry returned status %s", resp.Status())
	}

	result, ok := resp.Result().(*lookupResponse)
	if !ok || result == nil {
		return Provider{}, fmt.Errorf("registry returned an unexpected payload")
	}
	if result.ResultCount < 1 || len(result.Results) == 0 {
		c.logger.Debug("npi not in registry", zap.String("npi", npi))
		return Provider{NPI: npi}, nil
	}

	return parseProvider(npi, result.Results[0]), nil
}

// parseProvider flattens one registry record. NPI-2 records are
// organizations and report their name directly; anything else is an
// individual named "First Last, CREDENTIAL". Only the practice location
// address is taken, a record with just a mailing address keeps its address
// fields empty.
func parseProvider(npi string, r lookupResult) Provider {
	p := Provider{NPI: npi, Found: true}

	if r.EnumerationType == "NPI-2" {
		p.Type = "Organization"
		p.Name = strings.TrimSpace(r.Basic.OrganizationName)
	} else {
		p.Type = "Individual"
		p.Name = strings.TrimSpace(r.Basic.FirstName + " " + r.Basic.LastName)
		if cred := strings.TrimSpace(r.Basic.Credential); cred != "" {
			p.Name += ", " + cred
		}
	}

	for _, a := range r.Addresses {
		if !strings.EqualFold(a.AddressPurpose, "LOCATION") {
			continue
		}
		p.Address = strings.TrimSpace(a.Address1)
		p.City = strings.TrimSpace(a.City)
		p.State = strings.TrimSpace(a.State)
		p.Zip = a.PostalCode
		if len(p.Zip) > 5 {
			p.Zip = p.Zip[:5]
		}
		break
	}

	if len(r.Taxonomies) > 0 {
		p.Specialty = r.Taxonomies[0].Desc
		for _, t := range r.Taxonomies {
			if t.Primary {
				p.Specialty = t.Desc
				break
			}
		}
	}

	return p
}
