package validator

import (
	"context"
	"testing"

	"tradingcore/internal/domain/models"
	"tradingcore/internal/market"
)

func TestRetestScoresCloseRetest(t *testing.T) {
	f := &RetestFilter{Band: 0.005}
	snap := &market.Snapshot{
		Candles:    []models.Candle{{High: 100, Low: 95}},
		LiveCandle: &models.Candle{High: 101, Low: 100.05, Close: 100.8},
	}
	r := f.Evaluate(context.Background(), snap)
	if r.Flag != models.FlagHardPass {
		t.Errorf("flag = %v (score %v), want hard pass for a tight retest", r.Flag, r.Score)
	}
	if r.Score < 0.75 {
		t.Errorf("score = %v, want at least 0.75", r.Score)
	}
}

func TestRetestLowScoreFarFromLevels(t *testing.T) {
	f := &RetestFilter{Band: 0.005}
	snap := &market.Snapshot{
		Candles:    []models.Candle{{High: 100, Low: 95}},
		LiveCandle: &models.Candle{High: 110, Low: 108, Close: 109},
	}
	r := f.Evaluate(context.Background(), snap)
	if r.Score != 0 {
		t.Errorf("score = %v, want 0 far from both levels", r.Score)
	}
	if r.Flag != models.FlagSoftFlag {
		t.Errorf("flag = %v, want soft flag: retest never blocks", r.Flag)
	}
}

func TestRetestNeutralWithoutLiveCandle(t *testing.T) {
	f := &RetestFilter{Band: 0.005}
	r := f.Evaluate(context.Background(), &market.Snapshot{Candles: []models.Candle{{High: 100}}})
	if r.Flag != models.FlagSoftFlag || r.Score != 0.5 {
		t.Errorf("report = %+v, want neutral", r)
	}
}

func breakoutSnapshot(latestClose float64) *market.Snapshot {
	candles := []models.Candle{{Close: latestClose, High: latestClose + 1, Low: latestClose - 1}}
	for i := 0; i < 3; i++ {
		candles = append(candles, models.Candle{High: 102, Low: 98, Close: 100})
	}
	return &market.Snapshot{Candles: candles}
}

func TestBreakoutOriginStrongEscape(t *testing.T) {
	f := &BreakoutOriginFilter{Window: 3}
	// Prior range tops at 102, ATR roughly 3.3: a close at 106 is a
	// full-ATR escape.
	r := f.Evaluate(context.Background(), breakoutSnapshot(106))
	if r.Flag != models.FlagHardPass {
		t.Errorf("flag = %v (score %v), want hard pass on a strong breakout", r.Flag, r.Score)
	}
}

func TestBreakoutOriginInsideRange(t *testing.T) {
	f := &BreakoutOriginFilter{Window: 3}
	r := f.Evaluate(context.Background(), breakoutSnapshot(100))
	if r.Score != 0 {
		t.Errorf("score = %v, want 0 inside the prior range", r.Score)
	}
	if r.Flag != models.FlagSoftFlag {
		t.Errorf("flag = %v, want soft flag: no breakout never blocks", r.Flag)
	}
}
