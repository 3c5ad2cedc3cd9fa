package dashboard

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testIndex() *Index {
	return &Index{providers: []ProviderSeries{
		{
			Rank: 1, NPI: "1111111111", Name: "ACME HEALTH LLC",
			City: "DETROIT", State: "MI", Specialty: "Home Health",
			TotalPaid: 300.75,
			Months:    []string{"2023-01", "2023-02"},
			Paid:      []float64{100.5, 200.25},
		},
		{
			Rank: 2, NPI: "2222222222", Name: "Unknown",
			TotalPaid: 75,
			Months:    []string{"2023-01"},
			Paid:      []float64{75},
		},
		{
			Rank: 3, NPI: "3333333333", Name: "CARE PARTNERS INC",
			TotalPaid: 10,
			Months:    []string{"2024-03"},
			Paid:      []float64{10},
		},
	}}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := New(nil, testIndex(), zap.NewNop())
	ts := httptest.NewServer(s.server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServer_RootRedirectsToTopProvider(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/npi/1", resp.Header.Get("Location"))
}

func TestServer_UnknownPath(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := get(t, ts.URL+"/nowhere")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ProviderPage(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/npi/2")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "#2 Unknown")
	assert.Contains(t, body, "NPI 2222222222")
	assert.Contains(t, body, `<a href="/npi/1">Prev</a>`)
	assert.Contains(t, body, `<a href="/npi/3">Next</a>`)
	assert.Contains(t, body, `<a href="/npi/3">Last</a>`)
	assert.Contains(t, body, `src="/chart/2"`)
	assert.Contains(t, body, "#2 of 3")
}

func TestServer_ProviderPageClampsNavigation(t *testing.T) {
	ts := newTestServer(t)

	_, body := get(t, ts.URL+"/npi/1")
	assert.Contains(t, body, `<a href="/npi/1">Prev</a>`)
	assert.Contains(t, body, `<a href="/npi/1">-10</a>`)
	assert.Contains(t, body, `<a href="/npi/3">+10</a>`)
}

func TestServer_ProviderPageShowsTotalPaid(t *testing.T) {
	ts := newTestServer(t)

	_, body := get(t, ts.URL+"/npi/1")
	assert.Contains(t, body, "total paid $300.75")
}

func TestServer_ProviderPageNotFound(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/npi/0", "/npi/99", "/npi/abc", "/npi/"} {
		resp, _ := get(t, ts.URL+path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, "path %s", path)
	}
}

func TestServer_ProviderPageMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/npi/1", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_Chart(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/chart/1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "echarts")
	assert.Contains(t, body, "2023")
}

func TestServer_ChartNotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := get(t, ts.URL+"/chart/42")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ProviderJSON(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/api/npi/1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got providerResponse
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, 1, got.Rank)
	assert.Equal(t, "1111111111", got.NPI)
	assert.Equal(t, "ACME HEALTH LLC", got.Name)
	assert.Equal(t, []string{"2023-01", "2023-02"}, got.Months)
	assert.Equal(t, []float64{100.5, 200.25}, got.Paid)
	assert.InDelta(t, 300.75, got.TotalPaid, 1e-9)
}

func TestServer_ProviderJSONNotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := get(t, ts.URL+"/api/npi/9")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, `"status":"healthy"`)
	assert.Contains(t, body, `"providers":3`)
}

func TestServer_RequestIDHeader(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := get(t, ts.URL+"/health")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
