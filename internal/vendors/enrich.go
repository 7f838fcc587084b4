package vendors

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"renohub/internal/cache"
	"renohub/internal/core"
	"renohub/internal/log"
	"renohub/internal/records"
	"renohub/internal/telemetry"
)

const (
	// TradePlaceholder marks vendors whose trade is unknown.
	TradePlaceholder = "—"

	NameProperty  = "Company_Name"
	TradeProperty = "Trade Specialization"

	maxConcurrentLookups = 4
)

var ErrVendorNotFound = errors.New("vendor not found")

// Directory looks up a vendor's trade by exact name.
type Directory interface {
	Trade(ctx context.Context, vendor string) (string, error)
}

// RecordDirectory reads trades from a vendor registry collection.
type RecordDirectory struct {
	store        records.Store
	collectionID string
}

func NewRecordDirectory(store records.Store, collectionID string) *RecordDirectory {
	return &RecordDirectory{store: store, collectionID: collectionID}
}

func (d *RecordDirectory) Trade(ctx context.Context, vendor string) (string, error) {
	recs, err := d.store.FetchAll(ctx, d.collectionID, records.Query{
		Filter: &records.Filter{Property: NameProperty, Kind: records.KindTitle, Equals: vendor},
	})
	if err != nil {
		return "", err
	}
	for _, r := range recs {
		if trade := records.FirstText(r, TradeProperty, "Trade"); trade != "" {
			return trade, nil
		}
	}
	return "", ErrVendorNotFound
}

// Enricher fills VendorExposure.Trade through a cache. Lookups never fail
// the rollup: errors degrade to TradePlaceholder.
type Enricher struct {
	dir    Directory
	cache  cache.Cache[string]
	logger *log.Logger
}

// NewEnricher returns an Enricher. A nil dir disables lookups and every
// row gets the placeholder.
func NewEnricher(dir Directory, c cache.Cache[string], logger *log.Logger) *Enricher {
	if logger == nil {
		logger = log.Discard()
	}
	return &Enricher{dir: dir, cache: c, logger: logger.WithComponent(log.ComponentVendors)}
}

// Enrich returns a copy of rows with Trade set.
func (e *Enricher) Enrich(ctx context.Context, rows []core.VendorExposure) []core.VendorExposure {
	out := append(make([]core.VendorExposure, 0, len(rows)), rows...)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i := range out {
		i := i
		g.Go(func() error {
			out[i].Trade = e.trade(gctx, out[i].Vendor)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (e *Enricher) trade(ctx context.Context, vendor string) string {
	key := strings.TrimSpace(vendor)
	if e.dir == nil || key == "" || key == core.DefaultVendor {
		return TradePlaceholder
	}
	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			telemetry.RecordCacheLookup(true)
			return v
		}
		telemetry.RecordCacheLookup(false)
	}

	trade, err := e.dir.Trade(ctx, key)
	switch {
	case errors.Is(err, ErrVendorNotFound):
		trade = TradePlaceholder
	case err != nil:
		e.logger.WarnContext(ctx, "Vendor trade lookup failed", log.FieldVendor, key, log.FieldError, err.Error())
		return TradePlaceholder
	}
	if e.cache != nil {
		e.cache.Set(key, trade)
	}
	return trade
}
