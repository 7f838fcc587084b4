package gates

import (
	"fmt"
	"sort"
	"strings"

	"renohub/internal/core"
	"renohub/internal/log"
)

// Engine answers gate completion and payment payability for one set of
// deliverables. It is immutable once built.
type Engine struct {
	requirements Requirements
	keywords     []Keyword
	approved     map[string]struct{}
}

// NewEngine indexes the approved deliverable titles case-insensitively.
func NewEngine(req Requirements, keywords []Keyword, deliverables []core.Deliverable) *Engine {
	if req == nil {
		req = Requirements{}
	}
	approved := make(map[string]struct{})
	for _, d := range deliverables {
		if d.Status == core.DeliverableApproved {
			approved[fold(d.Title)] = struct{}{}
		}
	}
	return &Engine{requirements: req, keywords: keywords, approved: approved}
}

// FromConfig builds an Engine from the config map. Malformed requirement
// or keyword payloads are logged and replaced by their empty defaults.
func FromConfig(config map[string]string, deliverables []core.Deliverable, logger *log.Logger) *Engine {
	req, err := ParseRequirements(config[KeyRequiredByGate])
	if err != nil && logger != nil {
		logger.Warn("Ignoring malformed gate requirements", log.FieldError, err.Error())
	}
	keywords, err := ParseKeywords(config[KeyGateKeywords])
	if err != nil && logger != nil {
		logger.Warn("Ignoring malformed gate keywords", log.FieldError, err.Error())
	}
	return NewEngine(req, keywords, deliverables)
}

// Complete reports whether every required title of gate is approved. A
// gate without requirements is never complete.
func (e *Engine) Complete(gate string) bool {
	titles := e.requirements[gate]
	if len(titles) == 0 {
		return false
	}
	return len(e.Missing(gate)) == 0
}

// Missing lists required titles of gate that are not approved yet.
func (e *Engine) Missing(gate string) []string {
	out := make([]string, 0)
	for _, t := range e.requirements[gate] {
		if _, ok := e.approved[fold(t)]; !ok {
			out = append(out, t)
		}
	}
	return out
}

// InferGate matches the payment title against the keyword table.
func (e *Engine) InferGate(title string) string {
	lower := strings.ToLower(title)
	for _, k := range e.keywords {
		if strings.Contains(lower, k.Match) {
			return k.Gate
		}
	}
	return Uncategorized
}

// Evaluate fills Gate, Payable and BlockedReasons of p. Each triggered
// rule adds one reason.
func (e *Engine) Evaluate(p core.Payment) core.Payment {
	p.Gate = e.InferGate(p.Title)
	reasons := make([]string, 0)

	if len(e.requirements[PreConstruction]) > 0 && !e.Complete(PreConstruction) {
		reasons = append(reasons, "Pre-construction deliverables not approved: "+strings.Join(e.Missing(PreConstruction), ", "))
	}
	if p.Gate != Uncategorized {
		if _, ok := e.requirements[p.Gate]; ok && !e.Complete(p.Gate) {
			reason := fmt.Sprintf("Gate %s is not complete", p.Gate)
			if missing := e.Missing(p.Gate); len(missing) > 0 {
				reason += ": missing " + strings.Join(missing, ", ")
			}
			reasons = append(reasons, reason)
		}
	}

	p.BlockedReasons = reasons
	p.Payable = len(reasons) == 0
	return p
}

// Apply evaluates every payment and returns a new slice.
func (e *Engine) Apply(payments []core.Payment) []core.Payment {
	out := make([]core.Payment, 0, len(payments))
	for _, p := range payments {
		out = append(out, e.Evaluate(p))
	}
	return out
}

// Gates reports every gate named by a deliverable, a milestone phase or the
// requirement map, sorted by id. Counters are raw tallies; CompleteStrict
// follows the requirement map.
func (e *Engine) Gates(deliverables []core.Deliverable, milestones []core.Milestone) []core.Gate {
	byID := map[string]*core.Gate{}
	get := func(id string) *core.Gate {
		g, ok := byID[id]
		if !ok {
			g = &core.Gate{ID: id}
			byID[id] = g
		}
		return g
	}
	for _, d := range deliverables {
		g := get(d.Gate)
		g.Required++
		switch d.Status {
		case core.DeliverableApproved:
			g.Approved++
		case core.DeliverableRejected, core.DeliverableMissing:
			g.Blocked++
		}
	}
	for _, m := range milestones {
		g := get(m.Phase)
		if m.Progress >= 1 || strings.Contains(strings.ToLower(m.Indicator), "complete") {
			g.MilestonesComplete++
		}
	}
	for id := range e.requirements {
		if id != PreConstruction {
			get(id)
		}
	}

	out := make([]core.Gate, 0, len(byID))
	for id, g := range byID {
		g.GateApprovalRate = core.Ratio(float64(g.Approved), float64(g.Required))
		g.CompleteStrict = e.Complete(id)
		g.RequiredTitles = append(make([]string, 0), e.requirements[id]...)
		g.MissingTitles = e.Missing(id)
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ApprovalRate is approved over required across all gates.
func ApprovalRate(gates []core.Gate) float64 {
	var approved, required int
	for _, g := range gates {
		approved += g.Approved
		required += g.Required
	}
	return core.Ratio(float64(approved), float64(required))
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
