package validator

import (
	"context"
	"fmt"
	"math"

	"tradingcore/internal/domain/models"
	"tradingcore/internal/market"
)

// RetestFilter scores how closely the live candle has retested the prior
// closed candle's extreme. The score is advisory: the router uses a weak
// retest to pick the continuation module, it never blocks by itself.
type RetestFilter struct {
	Band float64 // proximity band as a fraction of price
}

var _ Validator = (*RetestFilter)(nil)

func (f *RetestFilter) Name() string { return FilterRetest }

func (f *RetestFilter) Evaluate(_ context.Context, snap *market.Snapshot) models.FilterReport {
	if len(snap.Candles) == 0 || snap.LiveCandle == nil {
		return neutral(f.Name(), "no live candle")
	}
	prior := snap.Candles[0]
	live := snap.LiveCandle
	if prior.High <= 0 || f.Band <= 0 {
		return neutral(f.Name(), "degenerate candle")
	}

	// distance of the live extreme to the nearer breakout level
	distHigh := math.Abs(live.Low-prior.High) / prior.High
	distLow := math.Abs(live.High-prior.Low) / prior.Low
	dist := math.Min(distHigh, distLow)

	score := clamp01(1 - dist/f.Band)
	report := models.FilterReport{
		FilterName: f.Name(),
		Score:      score,
		Flag:       models.FlagSoftFlag,
		Metrics:    map[string]float64{"retest_distance": dist},
	}
	if score >= 0.75 {
		report.Flag = models.FlagHardPass
	} else if score < 0.25 {
		report.Note = fmt.Sprintf("retest distance %.4f outside band %.4f", dist, f.Band)
	}
	return report
}

// BreakoutOriginFilter measures whether the latest close escaped the
// preceding range, normalized by ATR. A strong score routes to the
// continuation module; absence of a breakout is advisory only.
type BreakoutOriginFilter struct {
	Window int
}

var _ Validator = (*BreakoutOriginFilter)(nil)

func (f *BreakoutOriginFilter) Name() string { return FilterBreakoutOrigin }

func (f *BreakoutOriginFilter) Evaluate(_ context.Context, snap *market.Snapshot) models.FilterReport {
	if f.Window <= 0 || len(snap.Candles) < f.Window+1 {
		return neutral(f.Name(), "not enough candles")
	}

	latest := snap.Candles[0]
	rangeHigh := snap.Candles[1].High
	rangeLow := snap.Candles[1].Low
	for i := 2; i <= f.Window; i++ {
		if snap.Candles[i].High > rangeHigh {
			rangeHigh = snap.Candles[i].High
		}
		if snap.Candles[i].Low < rangeLow {
			rangeLow = snap.Candles[i].Low
		}
	}

	atr := snap.ATR(f.Window)
	if atr <= 0 {
		return neutral(f.Name(), "zero range")
	}

	var strength float64
	switch {
	case latest.Close > rangeHigh:
		strength = (latest.Close - rangeHigh) / atr
	case latest.Close < rangeLow:
		strength = (rangeLow - latest.Close) / atr
	}

	score := clamp01(strength)
	report := models.FilterReport{
		FilterName: f.Name(),
		Score:      score,
		Flag:       models.FlagSoftFlag,
		Metrics: map[string]float64{
			"breakout_strength": strength,
			"range_high":        rangeHigh,
			"range_low":         rangeLow,
		},
	}
	if score >= 0.75 {
		report.Flag = models.FlagHardPass
	} else if score == 0 {
		report.Note = "close inside prior range"
	}
	return report
}
