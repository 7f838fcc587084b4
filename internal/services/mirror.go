package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"renohub/internal/log"
	"renohub/internal/records"
	"renohub/internal/telemetry"
)

// Mapping copies one source collection into a target collection.
type Mapping struct {
	Source string
	Target string
}

// MirrorConfig holds configuration for the mirror
type MirrorConfig struct {
	Mappings []Mapping

	// Interval between runs when started as a loop (default: 15m)
	Interval time.Duration

	// Concurrency bounds the collections copied at once (default: 4)
	Concurrency int
}

// DefaultMirrorConfig returns the loop defaults; Mappings must be set.
func DefaultMirrorConfig() MirrorConfig {
	return MirrorConfig{
		Interval:    15 * time.Minute,
		Concurrency: 4,
	}
}

// MirrorResult reports one copied collection.
type MirrorResult struct {
	Source  string
	Target  string
	Records int
}

// Mirror copies collections from a record store into a writable store so
// the dashboard can run against a local snapshot.
type Mirror struct {
	source records.Store
	target records.Writer
	config MirrorConfig
	logger *log.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewMirror creates a new mirror
func NewMirror(source records.Store, target records.Writer, config MirrorConfig, logger *log.Logger) *Mirror {
	if config.Interval <= 0 {
		config.Interval = DefaultMirrorConfig().Interval
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultMirrorConfig().Concurrency
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Mirror{
		source: source,
		target: target,
		config: config,
		logger: logger.WithComponent(log.ComponentMirror),
	}
}

// RunOnce fetches every mapped collection and replaces its target. All
// fetches must succeed before anything is written, so a failed run leaves
// the target untouched.
func (m *Mirror) RunOnce(ctx context.Context) ([]MirrorResult, error) {
	if len(m.config.Mappings) == 0 {
		return nil, fmt.Errorf("mirror: no collections configured")
	}

	fetched := make([][]records.Record, len(m.config.Mappings))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.Concurrency)
	for i, mp := range m.config.Mappings {
		g.Go(func() error {
			start := time.Now()
			recs, err := m.source.FetchAll(gctx, mp.Source, records.Query{})
			telemetry.RecordFetch(mp.Source, err, time.Since(start))
			if err != nil {
				return fmt.Errorf("fetch %s: %w", mp.Source, err)
			}
			fetched[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.logger.ErrorContext(ctx, "Mirror fetch failed", log.FieldError, err, log.FieldOperation, log.OpMirror)
		return nil, err
	}

	results := make([]MirrorResult, 0, len(m.config.Mappings))
	for i, mp := range m.config.Mappings {
		if err := m.target.Replace(ctx, mp.Target, fetched[i]); err != nil {
			return results, fmt.Errorf("write %s: %w", mp.Target, err)
		}
		results = append(results, MirrorResult{Source: mp.Source, Target: mp.Target, Records: len(fetched[i])})
		m.logger.InfoContext(ctx, "Collection copied",
			log.FieldCollection, mp.Target, log.FieldRecordCount, len(fetched[i]), log.FieldOperation, log.OpMirror)
	}
	return results, nil
}

// Start runs RunOnce immediately and then every Interval until Stop or ctx
// cancellation. Returns an error if already running.
func (m *Mirror) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("mirror is already running")
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.mu.Unlock()

	go m.runLoop(ctx)

	m.logger.InfoContext(ctx, "Mirror started", "interval", m.config.Interval, "collections", len(m.config.Mappings))
	return nil
}

// Stop signals the loop and waits for the current run to finish.
func (m *Mirror) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	stopCh, doneCh := m.stopCh, m.doneCh
	m.running = false
	m.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		m.logger.InfoContext(ctx, "Mirror stopped gracefully")
		return nil
	case <-ctx.Done():
		m.logger.WarnContext(ctx, "Mirror stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the loop is currently running
func (m *Mirror) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Mirror) runLoop(ctx context.Context) {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	m.runLogged(ctx)
	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runLogged(ctx)
		}
	}
}

// runLogged keeps the loop alive across failed runs; the next tick retries.
func (m *Mirror) runLogged(ctx context.Context) {
	if _, err := m.RunOnce(ctx); err != nil && ctx.Err() == nil {
		m.logger.WarnContext(ctx, "Mirror run failed", log.FieldError, err)
	}
}
