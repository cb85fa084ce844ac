package risk

import (
	"math"
	"testing"

	"tradingcore/internal/domain/models"
	"tradingcore/internal/market"
)

func riskSnapshot() *market.Snapshot {
	// Four closed candles, each with a 2-point upper retracement and ATR 4.
	candles := make([]models.Candle, 4)
	for i := range candles {
		candles[i] = models.Candle{High: 104, Low: 100, Close: 102}
	}
	return &market.Snapshot{Candles: candles}
}

func defaultConfig() Config {
	return Config{
		WeightForecast: 0.5,
		WeightHistory:  0.3,
		WeightATR:      0.2,
		ATRMultiple:    2.5,
		ATRCapMultiple: 4,
		AbsoluteCap:    50,
		Budget:         10,
		HistoryWindow:  10,
	}
}

func TestAssessBlendsComponents(t *testing.T) {
	s := New(defaultConfig())
	fc := &models.ForecastResult{
		ReversalLikelihood: 1,
		Candles: []models.ProjectedCandle{
			{High: 103, Low: 98},
			{High: 103, Low: 96}, // worst long excursion: entry 102 - 96 = 6
		},
	}

	ok, estimate, reason := s.Assess(102, models.Long, fc, riskSnapshot())
	// 0.5*6 + 0.3*2 + 0.2*(4*2.5) = 5.6
	if !ok {
		t.Fatalf("Assess rejected: %s", reason)
	}
	if math.Abs(estimate-5.6) > 1e-9 {
		t.Errorf("estimate = %v, want 5.6", estimate)
	}
}

func TestAssessScaledByReversalLikelihood(t *testing.T) {
	s := New(defaultConfig())
	fc := &models.ForecastResult{
		ReversalLikelihood: 0.5,
		Candles:            []models.ProjectedCandle{{High: 103, Low: 96}},
	}

	_, estimate, _ := s.Assess(102, models.Long, fc, riskSnapshot())
	if math.Abs(estimate-2.8) > 1e-9 {
		t.Errorf("estimate = %v, want 2.8 at half likelihood", estimate)
	}
}

func TestAssessUnsafeAtBudget(t *testing.T) {
	cfg := defaultConfig()
	cfg.Budget = 5
	s := New(cfg)
	fc := &models.ForecastResult{
		ReversalLikelihood: 1,
		Candles:            []models.ProjectedCandle{{High: 103, Low: 96}},
	}

	ok, estimate, reason := s.Assess(102, models.Long, fc, riskSnapshot())
	if ok {
		t.Fatalf("Assess accepted estimate %v against budget 5", estimate)
	}
	if reason == "" {
		t.Error("expected a rejection reason")
	}
}

func TestAssessCapNeverExceeded(t *testing.T) {
	cfg := defaultConfig()
	cfg.Budget = 1000
	s := New(cfg)
	fc := &models.ForecastResult{
		ReversalLikelihood: 1,
		Candles:            []models.ProjectedCandle{{High: 103, Low: 0}}, // absurd excursion
	}

	snap := riskSnapshot()
	_, estimate, _ := s.Assess(102, models.Long, fc, snap)
	limit := math.Min(cfg.AbsoluteCap, cfg.ATRCapMultiple*snap.ATR(cfg.HistoryWindow))
	if estimate > limit {
		t.Errorf("estimate = %v exceeds cap %v", estimate, limit)
	}
	if math.Abs(estimate-limit) > 1e-9 {
		t.Errorf("estimate = %v, want capped at %v", estimate, limit)
	}
}

func TestAssessShortUsesHighSide(t *testing.T) {
	s := New(defaultConfig())
	fc := &models.ForecastResult{
		ReversalLikelihood: 1,
		Candles:            []models.ProjectedCandle{{High: 110, Low: 101}}, // short excursion: 110 - 102 = 8
	}

	_, estimate, _ := s.Assess(102, models.Short, fc, riskSnapshot())
	// 0.5*8 + 0.3*2 + 0.2*10 = 6.6
	if math.Abs(estimate-6.6) > 1e-9 {
		t.Errorf("estimate = %v, want 6.6", estimate)
	}
}
