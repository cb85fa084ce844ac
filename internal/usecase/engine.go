package usecase

import (
	"context"
	"sync"
	"time"

	"tradingcore/internal/domain/models"
	drepo "tradingcore/internal/domain/repository"
	"tradingcore/internal/market"
	"tradingcore/pkg/logger"
)

// Decider runs one decision cycle over a snapshot.
type Decider interface {
	Decide(ctx context.Context, snap *market.Snapshot) *Outcome
}

// EngineConfig tunes the scheduler loops.
type EngineConfig struct {
	CycleInterval     time.Duration
	TelemetryInterval time.Duration
}

// Engine is the top-level scheduler. It runs the ingestion, monitoring,
// telemetry and decision loops, invokes the orchestrator at most once per
// closed candle, and routes the verdict.
type Engine struct {
	state     *market.MarketState
	decider   Decider
	lifecycle *TradeLifecycleManager
	ingestor  *Ingestor
	metrics   drepo.Metrics
	log       *logger.Logger
	cfg       EngineConfig

	lastProcessed int64
	wg            sync.WaitGroup
	cancel        context.CancelFunc
}

func NewEngine(
	state *market.MarketState,
	decider Decider,
	lifecycle *TradeLifecycleManager,
	ingestor *Ingestor,
	metrics drepo.Metrics,
	cfg EngineConfig,
	log *logger.Logger,
) *Engine {
	return &Engine{
		state:     state,
		decider:   decider,
		lifecycle: lifecycle,
		ingestor:  ingestor,
		metrics:   metrics,
		cfg:       cfg,
		log:       log,
		// sentinel so a first candle with open time 0 is still processed
		lastProcessed: -1,
	}
}

// Start launches all loops. It returns immediately; Stop cancels and
// waits for in-flight work.
func (e *Engine) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	e.cancel = cancel

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.ingestor.Start(ctx); err != nil && ctx.Err() == nil {
			e.log.Error("ingestor stopped", logger.Error(err))
		}
	}()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.lifecycle.Monitor(ctx)
	}()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.telemetryLoop(ctx)
	}()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.decisionLoop(ctx)
	}()
}

// Stop cancels all loops and waits for them to exit.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

// decisionLoop sleeps a fixed interval between iterations regardless of
// candle cadence, so a stalled feed stalls the cycle without crashing.
func (e *Engine) decisionLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.CycleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Step(ctx)
		}
	}
}

// Step runs at most one decision cycle: if the newest closed candle was
// already processed the step is a no-op.
func (e *Engine) Step(ctx context.Context) {
	snap := e.state.Snapshot()
	if len(snap.Candles) == 0 {
		return
	}
	latest := snap.Candles[0].OpenTime
	if latest == e.lastProcessed {
		return
	}
	e.lastProcessed = latest

	outcome := e.decider.Decide(ctx, snap)
	e.route(ctx, outcome)
}

func (e *Engine) route(ctx context.Context, outcome *Outcome) {
	if outcome.Rejection != "" {
		e.metrics.RecordCycle("rejected")
		e.log.Info("cycle rejected", logger.String("reason", outcome.Rejection))
		return
	}

	switch outcome.Verdict.Action {
	case models.ActionExecute:
		e.metrics.RecordCycle("execute")
		if _, err := e.lifecycle.Open(ctx, outcome.Signal, outcome.Verdict); err != nil {
			e.log.Warn("open failed, will retry next cycle", logger.Error(err))
			e.metrics.RecordError("open_trade")
		}
	case models.ActionAbort:
		e.metrics.RecordCycle("abort")
		e.lifecycle.CloseAllAtMark(ctx, ExitAborted)
	case models.ActionHold, models.ActionReanalyze:
		e.metrics.RecordCycle("hold")
	}
}

func (e *Engine) telemetryLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.TelemetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := e.state.Snapshot()
			if snap.HasMark {
				e.metrics.RecordMarkPrice(snap.Symbol, snap.MarkPrice)
			}
			e.metrics.RecordCVD(snap.Symbol, snap.CVD)
			e.metrics.RecordOpenTrades(e.lifecycle.OpenCount())
		}
	}
}
