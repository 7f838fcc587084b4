package aggregate

import (
	"renohub/internal/core"
	"renohub/internal/gates"
	"renohub/internal/kpi"
	"renohub/internal/log"
	"renohub/internal/normalize"
	"renohub/internal/records"
	"renohub/internal/vendors"
)

// Raw holds the four fetched collections.
type Raw struct {
	Milestones   []records.Record
	Deliverables []records.Record
	Payments     []records.Record
	Config       []records.Record
}

// BuildOptions tunes the derived parts of a snapshot.
type BuildOptions struct {
	Normalizer  *normalize.Normalizer
	VendorMode  vendors.Mode
	VendorLimit int
	Logger      *log.Logger
}

// Build derives a snapshot from raw records. It performs no I/O: the same
// raw input and clock give the same snapshot. Top vendors carry the
// placeholder trade until enriched.
func Build(raw Raw, clock kpi.Clock, opts BuildOptions) core.Snapshot {
	n := opts.Normalizer
	if n == nil {
		n = normalize.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}

	config := n.Config(raw.Config)
	owners, err := normalize.OwnerTable(config)
	if err != nil {
		logger.Warn("Ignoring malformed owner aliases", log.FieldError, err.Error())
	}

	milestones := n.Milestones(raw.Milestones)
	deliverables := n.Deliverables(raw.Deliverables, owners)

	engine := gates.FromConfig(config, deliverables, logger.WithComponent(log.ComponentGates))
	payments := engine.Apply(n.Payments(raw.Payments))
	gateList := engine.Gates(deliverables, milestones)

	k := kpi.Compute(milestones, deliverables, payments, config, clock)
	k.GateApprovalRate = gates.ApprovalRate(gateList)

	top := vendors.Rollup(payments, opts.VendorMode, opts.VendorLimit)
	for i := range top {
		top[i].Trade = vendors.TradePlaceholder
	}

	return core.Snapshot{
		Milestones:   milestones,
		Deliverables: deliverables,
		Payments:     payments,
		Config:       config,
		Kpis:         k,
		Gates:        gateList,
		TopVendors:   top,
		Cashflow:     kpi.Cashflow(payments),
		Alerts:       kpi.Alerts(milestones, deliverables, payments, clock.Today()),
		GeneratedAt:  clock.Now.UTC(),
	}
}
