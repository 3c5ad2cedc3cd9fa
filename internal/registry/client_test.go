package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func registryServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("version"); got != "2.1" {
			t.Errorf("version = %q, want 2.1", got)
		}
		body, ok := responses[r.URL.Query().Get("number")]
		if !ok {
			body = `{"result_count":0,"results":[]}`
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
}

func TestClient_Lookup_Organization(t *testing.T) {
	server := registryServer(t, map[string]string{
		"1234567893": `{
			"result_count": 1,
			"results": [{
				"enumeration_type": "NPI-2",
				"basic": {"organization_name": "DETROIT GENERAL HOSPITAL"},
				"addresses": [
					{"address_purpose": "MAILING", "address_1": "PO BOX 100", "city": "DETROIT", "state": "MI", "postal_code": "482010100"},
					{"address_purpose": "LOCATION", "address_1": "100 MAIN ST", "city": "DETROIT", "state": "MI", "postal_code": "482011234"}
				],
				"taxonomies": [
					{"desc": "Internal Medicine", "primary": false},
					{"desc": "General Acute Care Hospital", "primary": true}
				]
			}]
		}`,
	})
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second, zap.NewNop())
	p, err := c.Lookup(context.Background(), "1234567893")
	require.NoError(t, err)

	assert.Equal(t, Provider{
		NPI:       "1234567893",
		Name:      "DETROIT GENERAL HOSPITAL",
		Type:      "Organization",
		Specialty: "General Acute Care Hospital",
		Address:   "100 MAIN ST",
		City:      "DETROIT",
		State:     "MI",
		Zip:       "48201",
		Found:     true,
	}, p)
}

func TestClient_Lookup_Individual(t *testing.T) {
	server := registryServer(t, map[string]string{
		"1093712345": `{
			"result_count": 1,
			"results": [{
				"enumeration_type": "NPI-1",
				"basic": {"first_name": "JANE", "last_name": "DOE", "credential": "M.D."},
				"addresses": [
					{"address_purpose": "LOCATION", "address_1": "42 ELM AVE", "city": "LANSING", "state": "MI", "postal_code": "48901"}
				],
				"taxonomies": [
					{"desc": "Family Medicine", "primary": true}
				]
			}]
		}`,
	})
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second, zap.NewNop())
	p, err := c.Lookup(context.Background(), "1093712345")
	require.NoError(t, err)

	assert.Equal(t, "JANE DOE, M.D.", p.Name)
	assert.Equal(t, "Individual", p.Type)
	assert.Equal(t, "42 ELM AVE", p.Address)
	assert.Equal(t, "48901", p.Zip)
	assert.Equal(t, "Family Medicine", p.Specialty)
	assert.True(t, p.Found)
}

func TestClient_Lookup_IndividualWithoutCredential(t *testing.T) {
	server := registryServer(t, map[string]string{
		"1093712345": `{
			"result_count": 1,
			"results": [{
				"enumeration_type": "NPI-1",
				"basic": {"first_name": "JOHN", "last_name": "SMITH", "credential": ""}
			}]
		}`,
	})
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second, zap.NewNop())
	p, err := c.Lookup(context.Background(), "1093712345")
	require.NoError(t, err)
	assert.Equal(t, "JOHN SMITH", p.Name)
}

func TestClient_Lookup_MailingOnlyAddress(t *testing.T) {
	// Only the practice location address counts. A record with nothing but
	// a mailing address keeps empty address fields, and without a primary
	// taxonomy the first one wins.
	server := registryServer(t, map[string]string{
		"1558312000": `{
			"result_count": 1,
			"results": [{
				"enumeration_type": "NPI-2",
				"basic": {"organization_name": "ACME PHARMACY"},
				"addresses": [
					{"address_purpose": "MAILING", "address_1": "PO BOX 7", "city": "FLINT", "state": "MI", "postal_code": "48501"}
				],
				"taxonomies": [
					{"desc": "Community Pharmacy", "primary": false},
					{"desc": "Mail Order Pharmacy", "primary": false}
				]
			}]
		}`,
	})
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second, zap.NewNop())
	p, err := c.Lookup(context.Background(), "1558312000")
	require.NoError(t, err)
	assert.Empty(t, p.Address)
	assert.Empty(t, p.City)
	assert.Empty(t, p.State)
	assert.Empty(t, p.Zip)
	assert.Equal(t, "Community Pharmacy", p.Specialty)
}

func TestClient_Lookup_NotFound(t *testing.T) {
	server := registryServer(t, nil)
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second, zap.NewNop())
	p, err := c.Lookup(context.Background(), "9999999999")
	require.NoError(t, err)

	assert.False(t, p.Found)
	assert.Equal(t, "9999999999", p.NPI)
	assert.Empty(t, p.Name)
}

func TestClient_Lookup_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second, zap.NewNop())
	_, err := c.Lookup(context.Background(), "1234567893")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
