package strategy

import (
	"tradingcore/internal/domain/models"
	"tradingcore/internal/market"
	"tradingcore/internal/validator"
	"tradingcore/pkg/logger"
)

// SignalModule generates a candidate signal when its own pattern is
// present, or nil. Modules never consult each other; composition happens
// through the shared snapshot and validator scores.
type SignalModule interface {
	Name() string
	Generate(snap *market.Snapshot) *models.Signal
}

// RouterConfig holds the routing thresholds.
type RouterConfig struct {
	Forced         string  // non-empty forces a module by name
	RetestWeak     float64 // retest score below this routes to continuation
	CompressionLow float64 // compression-trap score below this routes to TrapX
	BreakoutStrong float64 // breakout score at or above this routes to continuation
}

// Router picks one signal module per cycle with a fixed-order decision
// tree, first match wins.
type Router struct {
	cfg     RouterConfig
	scalpel SignalModule
	trapx   SignalModule
	log     *logger.Logger
}

func NewRouter(cfg RouterConfig, scalpel, trapx SignalModule, log *logger.Logger) *Router {
	return &Router{cfg: cfg, scalpel: scalpel, trapx: trapx, log: log}
}

// Route selects the module for this cycle.
func (r *Router) Route(snap *market.Snapshot) SignalModule {
	if r.cfg.Forced != "" {
		if r.cfg.Forced == r.trapx.Name() {
			return r.trapx
		}
		return r.scalpel
	}

	if score, ok := snap.Score(validator.FilterRetest); ok && score < r.cfg.RetestWeak {
		return r.scalpel
	}
	if score, ok := snap.Score(validator.FilterCompressionTrap); ok && score < r.cfg.CompressionLow {
		return r.trapx
	}
	if score, ok := snap.Score(validator.FilterBreakoutOrigin); ok && score >= r.cfg.BreakoutStrong {
		return r.scalpel
	}
	return r.scalpel
}

// Generate routes and runs the selected module.
func (r *Router) Generate(snap *market.Snapshot) *models.Signal {
	mod := r.Route(snap)
	sig := mod.Generate(snap)
	if sig == nil {
		r.log.Debug("no signal", logger.String("module", mod.Name()))
		return nil
	}
	r.log.Info("candidate signal",
		logger.String("module", mod.Name()),
		logger.String("direction", string(sig.Direction)),
		logger.Float64("entry", sig.EntryPrice))
	return sig
}
