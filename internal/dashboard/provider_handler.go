package dashboard

import (
	"encoding/json"
	"html"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// providerResponse is the JSON shape served by the provider API
type providerResponse struct {
	Rank      int       `json:"rank"`
	NPI       string    `json:"npi"`
	Name      string    `json:"name,omitempty"`
	City      string    `json:"city,omitempty"`
	State     string    `json:"state,omitempty"`
	Specialty string    `json:"specialty,omitempty"`
	TotalPaid float64   `json:"total_paid"`
	Months    []string  `json:"months"`
	Paid      []float64 `json:"paid"`
}

// parseRank extracts the trailing 1-based rank from a path under prefix.
func parseRank(path, prefix string) (int, bool) {
	raw := strings.TrimSuffix(strings.TrimPrefix(path, prefix), "/")
	rank, err := strconv.Atoi(raw)
	if err != nil || rank < 1 {
		return 0, false
	}
	return rank, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func navLink(label string, rank int) string {
	return `<a href="/npi/` + strconv.Itoa(rank) + `">` + label + `</a>`
}

// handlePage serves the navigation page for one ranked provider
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rank, ok := parseRank(r.URL.Path, "/npi/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	p, ok := s.index.ByRank(rank)
	if !ok {
		http.NotFound(w, r)
		return
	}

	last := s.index.Len()
	title := "#" + strconv.Itoa(p.Rank) + " " + html.EscapeString(p.Name)

	meta := "NPI " + html.EscapeString(p.NPI)
	if loc := p.Location(); loc != "" {
		meta += " &middot; " + html.EscapeString(loc)
	}
	if p.Specialty != "" {
		meta += " &middot; " + html.EscapeString(p.Specialty)
	}
	meta += " &middot; total paid $" + humanize.CommafWithDigits(p.TotalPaid, 2)

	page := `<!DOCTYPE html>
<html>
<head>
	<title>` + title + `</title>
	<style>
		body { font-family: -apple-system, Arial, sans-serif; margin: 20px; background-color: #f5f5f5; }
		h1 { color: #333; margin-bottom: 4px; }
		.meta { color: #666; margin-bottom: 16px; }
		.nav { margin-bottom: 16px; }
		.nav a { color: #0066cc; text-decoration: none; margin-right: 12px; }
		.nav a:hover { text-decoration: underline; }
		.nav span { color: #999; margin-right: 12px; }
		iframe { border: none; background-color: white; width: 100%; height: 620px; }
	</style>
</head>
<body>
	<h1>` + title + `</h1>
	<div class="meta">` + meta + `</div>
	<div class="nav">` +
		navLink("First", 1) +
		navLink("Prev", clamp(rank-1, 1, last)) +
		navLink("-10", clamp(rank-10, 1, last)) +
		`<span>#` + strconv.Itoa(rank) + ` of ` + strconv.Itoa(last) + `</span>` +
		navLink("+10", clamp(rank+10, 1, last)) +
		navLink("Next", clamp(rank+1, 1, last)) +
		navLink("Last", last) + `
	</div>
	<iframe src="/chart/` + strconv.Itoa(rank) + `"></iframe>
</body>
</html>`

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
}

// handleChart serves the embedded chart document for one provider
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rank, ok := parseRank(r.URL.Path, "/chart/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	p, ok := s.index.ByRank(rank)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := RenderChart(w, p, s.index.Len()); err != nil {
		s.logger.Error("failed to render chart",
			zap.Int("rank", rank),
			zap.Error(err))
	}
}

// handleProviderJSON serves one provider's series as JSON
func (s *Server) handleProviderJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rank, ok := parseRank(r.URL.Path, "/api/npi/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	p, ok := s.index.ByRank(rank)
	if !ok {
		http.NotFound(w, r)
		return
	}

	response := providerResponse{
		Rank:      p.Rank,
		NPI:       p.NPI,
		Name:      p.Name,
		City:      p.City,
		State:     p.State,
		Specialty: p.Specialty,
		TotalPaid: p.TotalPaid,
		Months:    p.Months,
		Paid:      p.Paid,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("failed to encode provider response", zap.Error(err))
	}
}
