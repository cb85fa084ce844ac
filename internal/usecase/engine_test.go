package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"tradingcore/internal/domain/models"
	"tradingcore/internal/market"
	"tradingcore/internal/repository"
)

type stubDecider struct {
	mu      sync.Mutex
	outcome *Outcome
	decides int
}

func (d *stubDecider) Decide(_ context.Context, _ *market.Snapshot) *Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.decides++
	return d.outcome
}

func (d *stubDecider) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.decides
}

func newTestEngine(t *testing.T, decider *stubDecider, gw *stubGateway) (*Engine, *market.MarketState, *TradeLifecycleManager) {
	t.Helper()
	state := market.NewMarketState("BTCUSDT", 10, 10, market.BookConfig{TopN: 20, WallMultiplier: 5})
	lifecycle := NewTradeLifecycleManager(state, gw, nil, repository.NopAuditSink{}, nopMetrics{}, LifecycleConfig{
		Leverage:        250,
		RiskCapPercent:  0.25,
		MonitorInterval: time.Second,
		DryRun:          true,
	}, testLogger(t))
	engine := NewEngine(state, decider, lifecycle, nil, nopMetrics{}, EngineConfig{
		CycleInterval:     time.Second,
		TelemetryInterval: time.Second,
	}, testLogger(t))
	return engine, state, lifecycle
}

func TestStepSkipsWithoutCandles(t *testing.T) {
	decider := &stubDecider{outcome: &Outcome{Verdict: models.Verdict{Action: models.ActionHold}}}
	engine, _, _ := newTestEngine(t, decider, &stubGateway{balance: 10_000})

	engine.Step(context.Background())
	if decider.count() != 0 {
		t.Errorf("decides = %d, want 0 without candles", decider.count())
	}
}

func TestStepRunsOncePerCandle(t *testing.T) {
	decider := &stubDecider{outcome: &Outcome{Verdict: models.Verdict{Action: models.ActionHold}}}
	engine, state, _ := newTestEngine(t, decider, &stubGateway{balance: 10_000})

	state.UpdateCandle(models.Candle{OpenTime: 60_000, Close: 100, Confirmed: true})
	engine.Step(context.Background())
	engine.Step(context.Background())
	if decider.count() != 1 {
		t.Fatalf("decides = %d, want 1 for a single candle", decider.count())
	}

	state.UpdateCandle(models.Candle{OpenTime: 120_000, Close: 101, Confirmed: true})
	engine.Step(context.Background())
	if decider.count() != 2 {
		t.Errorf("decides = %d, want 2 after a new candle", decider.count())
	}
}

func TestStepProcessesCandleWithZeroOpenTime(t *testing.T) {
	decider := &stubDecider{outcome: &Outcome{Verdict: models.Verdict{Action: models.ActionHold}}}
	engine, state, _ := newTestEngine(t, decider, &stubGateway{balance: 10_000})

	state.UpdateCandle(models.Candle{OpenTime: 0, Close: 100, Confirmed: true})
	engine.Step(context.Background())
	if decider.count() != 1 {
		t.Errorf("decides = %d, want 1 for the epoch candle", decider.count())
	}
}

func TestRouteExecuteOpensTrade(t *testing.T) {
	decider := &stubDecider{outcome: &Outcome{
		Verdict: models.Verdict{Action: models.ActionExecute, Confidence: 0.9},
		Signal:  &models.Signal{TradeType: "SCALPEL", Direction: models.Long, EntryPrice: 100},
	}}
	engine, state, lifecycle := newTestEngine(t, decider, &stubGateway{balance: 10_000})
	state.UpdateMarkPrice(100)
	state.UpdateCandle(models.Candle{OpenTime: 60_000, Close: 100, Confirmed: true})

	engine.Step(context.Background())
	if lifecycle.OpenCount() != 1 {
		t.Errorf("OpenCount = %d, want 1 after EXECUTE", lifecycle.OpenCount())
	}
}

func TestRouteRejectionOpensNothing(t *testing.T) {
	decider := &stubDecider{outcome: &Outcome{
		Verdict:   models.Verdict{Action: models.ActionAbort},
		Rejection: "Rejected - SPOOFING",
	}}
	engine, state, lifecycle := newTestEngine(t, decider, &stubGateway{balance: 10_000})
	state.UpdateMarkPrice(100)
	state.UpdateCandle(models.Candle{OpenTime: 60_000, Close: 100, Confirmed: true})

	engine.Step(context.Background())
	if lifecycle.OpenCount() != 0 {
		t.Errorf("OpenCount = %d, want 0 on rejection", lifecycle.OpenCount())
	}
}

func TestRouteAbortClosesOpenTrades(t *testing.T) {
	gw := &stubGateway{balance: 10_000}
	decider := &stubDecider{outcome: &Outcome{
		Verdict: models.Verdict{Action: models.ActionAbort, Reasoning: "regime change"},
	}}
	engine, state, lifecycle := newTestEngine(t, decider, gw)
	state.UpdateMarkPrice(100)

	sig := &models.Signal{TradeType: "SCALPEL", Direction: models.Long, EntryPrice: 100}
	if _, err := lifecycle.Open(context.Background(), sig, models.Verdict{}); err != nil {
		t.Fatalf("Open: %v", err)
	}

	state.UpdateCandle(models.Candle{OpenTime: 60_000, Close: 100, Confirmed: true})
	engine.Step(context.Background())
	if lifecycle.OpenCount() != 0 {
		t.Errorf("OpenCount = %d, want 0 after ABORT", lifecycle.OpenCount())
	}
}
