package registry

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mzhao577/medicaidspend/internal/util/ratelimiter"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// notFoundName marks providers the registry had no record for in the
// enriched CSV.
const notFoundName = "NOT FOUND"

// LookupClient resolves one NPI against the registry.
type LookupClient interface {
	Lookup(ctx context.Context, npi string) (Provider, error)
}

// Enricher resolves provider details for a ranked NPI list, consulting the
// cache before the network and pacing live lookups.
type Enricher struct {
	client  LookupClient
	cache   *Cache // nil disables caching
	limiter *ratelimiter.Limiter
	logger  *zap.Logger
}

// NewEnricher creates a new Enricher. interval spaces consecutive live
// lookups; cache hits are never paced.
func NewEnricher(client LookupClient, cache *Cache, interval time.Duration, logger *zap.Logger) *Enricher {
	return &Enricher{
		client:  client,
		cache:   cache,
		limiter: ratelimiter.New(interval),
		logger:  logger,
	}
}

// Run resolves every NPI in order. A failed lookup becomes a not-found row
// so one bad number cannot sink a long run; only context cancellation stops
// the loop early, returning the rows resolved so far.
func (e *Enricher) Run(ctx context.Context, npis []string) ([]Provider, error) {
	providers := make([]Provider, 0, len(npis))
	for i, npi := range npis {
		if err := ctx.Err(); err != nil {
			return providers, err
		}

		if e.cache != nil {
			p, ok, err := e.cache.Get(npi)
			if err != nil {
				e.logger.Warn("cache read failed",
					zap.String("npi", npi),
					zap.Error(err))
			} else if ok {
				providers = append(providers, p)
				continue
			}
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return providers, err
		}

		e.logger.Debug("looking up provider",
			zap.String("npi", npi),
			zap.Int("position", i+1),
			zap.Int("total", len(npis)))

		p, err := e.client.Lookup(ctx, npi)
		if err != nil {
			if ctx.Err() != nil {
				return providers, ctx.Err()
			}
			e.logger.Warn("lookup failed",
				zap.String("npi", npi),
				zap.Error(err))
			p = Provider{NPI: npi}
		} else if e.cache != nil {
			if cacheErr := e.cache.Put(p); cacheErr != nil {
				e.logger.Warn("cache write failed",
					zap.String("npi", npi),
					zap.Error(cacheErr))
			}
		}
		providers = append(providers, p)

		if (i+1)%100 == 0 {
			e.logger.Info("lookup progress",
				zap.Int("done", i+1),
				zap.Int("total", len(npis)))
		}
	}
	return providers, nil
}

// EnrichedProvider joins one ranked spending row with its registry record.
type EnrichedProvider struct {
	Provider
	Rank   int
	Claims int64
	Paid   float64
}

// WriteEnrichedCSV writes enriched providers to path in the given order.
// Unresolved providers keep their rank, NPI and spending totals and carry
// the NOT FOUND marker as their name.
func WriteEnrichedCSV(path string, providers []EnrichedProvider) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create providers csv")
	}

	w := csv.NewWriter(file)
	header := []string{
		"rank", "billing_npi", "name", "provider_type", "specialty",
		"city", "state", "zip", "total_claims", "total_paid",
	}
	if err := w.Write(header); err != nil {
		file.Close()
		return errors.Wrap(err, "write providers csv")
	}
	for _, p := range providers {
		name, ptype, specialty, city, state, zip := p.Name, p.Type, p.Specialty, p.City, p.State, p.Zip
		if !p.Found {
			name, ptype, specialty, city, state, zip = notFoundName, "", "", "", "", ""
		}
		record := []string{
			strconv.Itoa(p.Rank),
			p.NPI,
			name,
			ptype,
			specialty,
			city,
			state,
			zip,
			strconv.FormatInt(p.Claims, 10),
			strconv.FormatFloat(p.Paid, 'f', 2, 64),
		}
		if err := w.Write(record); err != nil {
			file.Close()
			return errors.Wrap(err, "write providers csv")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return errors.Wrap(err, "flush providers csv")
	}
	return errors.Wrap(file.Close(), "close providers csv")
}

// ReadEnrichedCSV loads a file written by WriteEnrichedCSV. Name keeps the
// file's text verbatim, including the NOT FOUND marker; Found reports
// whether the row resolved.
func ReadEnrichedCSV(path string) ([]EnrichedProvider, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open providers csv")
	}
	defer file.Close()

	r := csv.NewReader(file)
	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read providers header")
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range []string{"rank", "billing_npi", "name"} {
		if _, ok := cols[name]; !ok {
			return nil, errors.Errorf("missing column %q", name)
		}
	}
	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var providers []EnrichedProvider
	for {
		record, err := r.Read()
		if err == io.EOF {
			return providers, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "read providers record")
		}
		rank, err := strconv.Atoi(strings.TrimSpace(field(record, "rank")))
		if err != nil {
			return nil, errors.Wrapf(err, "row %d column rank", len(providers)+1)
		}
		claims, _ := strconv.ParseInt(strings.TrimSpace(field(record, "total_claims")), 10, 64)
		paid, _ := strconv.ParseFloat(strings.TrimSpace(field(record, "total_paid")), 64)

		p := EnrichedProvider{
			Rank:   rank,
			Claims: claims,
			Paid:   paid,
			Provider: Provider{
				NPI:       strings.TrimSpace(field(record, "billing_npi")),
				Name:      field(record, "name"),
				Type:      field(record, "provider_type"),
				Specialty: field(record, "specialty"),
				City:      field(record, "city"),
				State:     field(record, "state"),
				Zip:       field(record, "zip"),
			},
		}
		p.Found = p.Name != "" && p.Name != notFoundName
		providers = append(providers, p)
	}
}
