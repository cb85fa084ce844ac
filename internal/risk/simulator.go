package risk

import (
	"fmt"
	"math"

	"tradingcore/internal/domain/models"
	"tradingcore/internal/market"
)

// Config holds the blend weights and caps for the adverse-move estimate.
// The 50/30/20 split is a tuned constant carried as configuration.
type Config struct {
	WeightForecast float64
	WeightHistory  float64
	WeightATR      float64
	ATRMultiple    float64
	ATRCapMultiple float64
	AbsoluteCap    float64
	Budget         float64
	HistoryWindow  int
}

// EntryRiskSimulator estimates the worst adverse price move of a
// prospective entry and rejects it when the capped estimate meets the
// liquidation-risk budget.
type EntryRiskSimulator struct {
	cfg Config
}

func New(cfg Config) *EntryRiskSimulator {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 10
	}
	return &EntryRiskSimulator{cfg: cfg}
}

// Assess blends the forecast-derived move, the historical candle
// retracement and an ATR-derived move, each scaled by the reversal
// likelihood, then hard-caps the estimate. It returns whether the entry
// is safe, the capped estimate, and a reason when it is not.
func (s *EntryRiskSimulator) Assess(
	entry float64,
	direction models.Direction,
	fc *models.ForecastResult,
	snap *market.Snapshot,
) (ok bool, estimate float64, reason string) {
	reversal := 0.5
	if fc != nil {
		reversal = fc.ReversalLikelihood
	}

	forecastMove := adverseForecastMove(entry, direction, fc)
	histMove := averageRetracement(snap, s.cfg.HistoryWindow, direction)
	atr := snap.ATR(s.cfg.HistoryWindow)
	atrMove := atr * s.cfg.ATRMultiple

	estimate = (s.cfg.WeightForecast*forecastMove +
		s.cfg.WeightHistory*histMove +
		s.cfg.WeightATR*atrMove) * reversal

	limit := s.cfg.AbsoluteCap
	if atrCap := s.cfg.ATRCapMultiple * atr; atrCap > 0 && atrCap < limit {
		limit = atrCap
	}
	if estimate > limit {
		estimate = limit
	}

	if estimate >= s.cfg.Budget {
		return false, estimate, fmt.Sprintf("adverse move estimate %.2f exceeds budget %.2f", estimate, s.cfg.Budget)
	}
	return true, estimate, ""
}

// adverseForecastMove extracts the worst projected excursion against the
// position from the forecast.
func adverseForecastMove(entry float64, direction models.Direction, fc *models.ForecastResult) float64 {
	if fc == nil || len(fc.Candles) == 0 {
		return 0
	}
	worst := 0.0
	for _, c := range fc.Candles {
		var move float64
		if direction == models.Long {
			move = entry - c.Low
		} else {
			move = c.High - entry
		}
		if move > worst {
			worst = move
		}
	}
	return worst
}

// averageRetracement is the mean adverse wick of recent closed candles:
// high minus close for a long, close minus low for a short.
func averageRetracement(snap *market.Snapshot, window int, direction models.Direction) float64 {
	if len(snap.Candles) == 0 {
		return 0
	}
	if window > len(snap.Candles) {
		window = len(snap.Candles)
	}
	var sum float64
	for i := 0; i < window; i++ {
		c := snap.Candles[i]
		if direction == models.Long {
			sum += math.Max(0, c.High-c.Close)
		} else {
			sum += math.Max(0, c.Close-c.Low)
		}
	}
	return sum / float64(window)
}
