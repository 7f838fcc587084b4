// Package app wires configuration into a ready aggregation service. Both
// binaries build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"renohub/internal/aggregate"
	"renohub/internal/backend"
	"renohub/internal/cache"
	"renohub/internal/config"
	"renohub/internal/genai"
	"renohub/internal/log"
	"renohub/internal/normalize"
	"renohub/internal/records"
	"renohub/internal/vendors"
)

const (
	vendorCachePrefix  = "renohub:vendor-trade"
	cacheCleanupPeriod = 10 * time.Minute
)

// Check is one readiness check.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// App holds the wired service and everything that must be released.
type App struct {
	Config  *config.Config
	Service *aggregate.Service
	// Store is nil when required configuration is missing.
	Store  records.Store
	Writer records.Writer
	Checks []Check

	logger  *log.Logger
	closers []func() error
}

// New builds the record store, vendor cache, text generator and
// aggregation service described by cfg. Missing record-store settings do
// not fail here; every snapshot then reports them instead.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Discard()
	}
	a := &App{Config: cfg, logger: logger.WithComponent(log.ComponentApp)}

	missing := cfg.MissingRecordStore()
	if len(missing) == 0 {
		if err := a.openStore(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
	} else {
		a.logger.Warn("Record store not configured; snapshots will fail", "missing", missing)
	}

	enricher, err := a.newEnricher(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	generator, err := a.newGenerator(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	mode, err := vendors.ParseMode(cfg.TopVendorsMode)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	var sorts []records.Sort
	if p := cfg.MilestoneSortProperty(); p != "" {
		sorts = []records.Sort{{Property: p, Direction: records.Ascending}}
	}

	cols := cfg.Collections()
	a.Service = aggregate.NewService(a.Store, enricher, generator, aggregate.Options{
		Collections: aggregate.Collections{
			Milestones:   cols.Milestones,
			Deliverables: cols.Deliverables,
			Payments:     cols.Payments,
			Config:       cols.Config,
		},
		Missing:        missing,
		MilestoneSorts: sorts,
		Location:       cfg.Location(),
		VendorMode:     mode,
		VendorLimit:    cfg.TopVendorsLimit,
		Normalizer:     normalize.Default(),
	}, logger)

	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	bcfg, err := backend.FromAppConfig(a.Config)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(a.logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return fmt.Errorf("create %s record store: %w", bcfg.Type, err)
	}
	a.Store, a.Writer = res.Store, res.Writer
	if res.Cleanup != nil {
		a.closers = append(a.closers, res.Cleanup)
	}
	if p, ok := res.Store.(interface{ Ping(context.Context) error }); ok {
		a.Checks = append(a.Checks, Check{Name: "records", Fn: p.Ping})
	}
	a.logger.Info("Record store ready", "backend", bcfg.Type.String())
	return nil
}

func (a *App) newEnricher(ctx context.Context) (*vendors.Enricher, error) {
	var dir vendors.Directory
	if a.Store != nil && a.Config.Collections().VendorRegistry != "" {
		dir = vendors.NewRecordDirectory(a.Store, a.Config.Collections().VendorRegistry)
	}

	if a.Config.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, a.Config.RedisURL, vendorCachePrefix, a.Config.VendorCacheTTL, a.logger)
		if err != nil {
			return nil, fmt.Errorf("connect vendor cache: %w", err)
		}
		a.closers = append(a.closers, rc.Close)
		a.Checks = append(a.Checks, Check{Name: "vendor_cache", Fn: rc.Ping})
		return vendors.NewEnricher(dir, rc, a.logger), nil
	}

	lru := cache.NewLRUCache[string](a.Config.VendorCacheSize, a.Config.VendorCacheTTL)
	mgr := cache.NewManager(a.logger)
	mgr.Register(lru)
	mgr.StartCleanup(cacheCleanupPeriod)
	a.closers = append(a.closers, func() error {
		mgr.Stop()
		return nil
	})
	return vendors.NewEnricher(dir, lru, a.logger), nil
}

func (a *App) newGenerator(ctx context.Context) (genai.Generator, error) {
	if a.Config.GeminiAPIKey == "" {
		a.logger.Info("GEMINI_API_KEY not set; prompt requests will fail")
		return genai.Unconfigured{}, nil
	}
	g, err := genai.NewGemini(ctx, genai.Config{
		APIKey:          a.Config.GeminiAPIKey,
		Model:           a.Config.GeminiModel,
		Temperature:     a.Config.GeminiTemp,
		MaxOutputTokens: int64(a.Config.GeminiMaxTokens),
	}, a.logger)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
