// Package aggregate runs one dashboard aggregation: it fetches the four
// collections concurrently, derives the snapshot and answers prompt
// requests.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"renohub/internal/core"
	"renohub/internal/genai"
	"renohub/internal/kpi"
	"renohub/internal/log"
	"renohub/internal/normalize"
	"renohub/internal/prompt"
	"renohub/internal/records"
	"renohub/internal/telemetry"
	"renohub/internal/vendors"
)

// Collections names the collection id of each source.
type Collections struct {
	Milestones   string
	Deliverables string
	Payments     string
	Config       string
}

type Options struct {
	Collections Collections
	// Missing lists absent required variables. When non-empty every
	// snapshot fails with a configuration failure before any fetch.
	Missing []string

	// MilestoneSorts orders the milestone fetch; the first milestones feed
	// the summary prompt.
	MilestoneSorts []records.Sort

	Location    *time.Location
	VendorMode  vendors.Mode
	VendorLimit int
	Normalizer  *normalize.Normalizer
	// Now defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	store     records.Store
	enricher  *vendors.Enricher
	generator genai.Generator
	opts      Options
	logger    *log.Logger
	events    *log.StructuredLogger
}

// NewService wires the aggregation. A nil enricher leaves trades as the
// placeholder; a nil generator fails every prompt request as unconfigured.
func NewService(store records.Store, enricher *vendors.Enricher, generator genai.Generator, opts Options, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	if generator == nil {
		generator = genai.Unconfigured{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Normalizer == nil {
		opts.Normalizer = normalize.Default()
	}
	logger = logger.WithComponent(log.ComponentAggregate)
	return &Service{
		store:     store,
		enricher:  enricher,
		generator: generator,
		opts:      opts,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
	}
}

// Snapshot fetches every collection and derives the dashboard. Any fetch
// failure fails the whole snapshot.
func (s *Service) Snapshot(ctx context.Context) (core.Snapshot, error) {
	start := time.Now()
	snap, err := s.snapshot(ctx)
	telemetry.RecordAggregation(err, time.Since(start))
	if err != nil {
		return core.Snapshot{}, err
	}
	s.events.LogSnapshotBuilt(ctx, len(snap.Milestones), len(snap.Deliverables), len(snap.Payments), len(snap.Gates),
		time.Since(start).Milliseconds())
	return snap, nil
}

func (s *Service) snapshot(ctx context.Context) (core.Snapshot, error) {
	if len(s.opts.Missing) > 0 {
		return core.Snapshot{}, core.MissingConfiguration(s.opts.Missing)
	}
	if s.store == nil {
		return core.Snapshot{}, core.AsFailure(errors.New("record store not configured"))
	}

	raw, err := s.Fetch(ctx)
	if err != nil {
		return core.Snapshot{}, err
	}

	snap := Build(raw, s.clock(), BuildOptions{
		Normalizer:  s.opts.Normalizer,
		VendorMode:  s.opts.VendorMode,
		VendorLimit: s.opts.VendorLimit,
		Logger:      s.logger,
	})
	if s.enricher != nil {
		snap.TopVendors = s.enricher.Enrich(ctx, snap.TopVendors)
	}
	return snap, nil
}

// Fetch reads the four collections concurrently. The first failure cancels
// the others.
func (s *Service) Fetch(ctx context.Context) (Raw, error) {
	var raw Raw
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range []struct {
		id  string
		q   records.Query
		dst *[]records.Record
	}{
		{s.opts.Collections.Milestones, records.Query{Sorts: s.opts.MilestoneSorts}, &raw.Milestones},
		{s.opts.Collections.Deliverables, records.Query{}, &raw.Deliverables},
		{s.opts.Collections.Payments, records.Query{}, &raw.Payments},
		{s.opts.Collections.Config, records.Query{}, &raw.Config},
	} {
		src := src
		g.Go(func() error {
			start := time.Now()
			recs, err := s.store.FetchAll(gctx, src.id, src.q)
			telemetry.RecordFetch(src.id, err, time.Since(start))
			if err != nil {
				return fmt.Errorf("fetch %s: %w", src.id, err)
			}
			s.logger.DebugContext(gctx, "Fetched collection", log.FieldCollection, src.id, log.FieldRecordCount, len(recs))
			*src.dst = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Aggregation fetch failed", log.FieldOperation, log.OpFetch, log.FieldError, err.Error())
		return Raw{}, err
	}
	return raw, nil
}

// Summarize renders the requested prompt and forwards it to the text
// generator.
func (s *Service) Summarize(ctx context.Context, req prompt.Request) (string, error) {
	text, err := prompt.Build(req.Type, req.Data)
	if err != nil {
		return "", core.BadRequest("invalid request", err.Error())
	}

	start := time.Now()
	out, err := s.generator.Generate(ctx, text)
	telemetry.RecordGenerate(string(req.Type), err, time.Since(start))
	if err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "Generated text", log.FieldPromptKind, string(req.Type), log.FieldDuration, time.Since(start).Milliseconds())
	return out, nil
}

func (s *Service) clock() kpi.Clock {
	return kpi.Clock{Now: s.opts.Now(), Location: s.opts.Location}
}
