package validator

import (
	"context"
	"testing"

	"tradingcore/internal/domain/models"
	"tradingcore/internal/market"
)

func candlesWithVolumes(volumes ...float64) []models.Candle {
	out := make([]models.Candle, len(volumes))
	for i, v := range volumes {
		out[i] = models.Candle{Volume: v}
	}
	return out
}

func TestLowVolumeGuardBlocksThinTape(t *testing.T) {
	f := &LowVolumeGuard{Window: 3, MinRatio: 0.35}
	// Latest 1 against an average of 10.
	snap := &market.Snapshot{Candles: candlesWithVolumes(1, 10, 10, 10)}
	r := f.Evaluate(context.Background(), snap)
	if r.Flag != models.FlagBlock {
		t.Errorf("flag = %v (score %v), want block at ratio 0.1", r.Flag, r.Score)
	}
}

func TestLowVolumeGuardPassesHealthyTape(t *testing.T) {
	f := &LowVolumeGuard{Window: 3, MinRatio: 0.35}
	snap := &market.Snapshot{Candles: candlesWithVolumes(12, 10, 10, 10)}
	r := f.Evaluate(context.Background(), snap)
	if r.Flag != models.FlagHardPass {
		t.Errorf("flag = %v, want hard pass at ratio 1.2", r.Flag)
	}
}

func TestLowVolumeGuardNeutralOnShortHistory(t *testing.T) {
	f := &LowVolumeGuard{Window: 5, MinRatio: 0.35}
	snap := &market.Snapshot{Candles: candlesWithVolumes(1, 10)}
	r := f.Evaluate(context.Background(), snap)
	if r.Flag != models.FlagSoftFlag || r.Score != 0.5 {
		t.Errorf("report = %+v, want neutral", r)
	}
}

func TestSpoofFilterBlocksFastThinning(t *testing.T) {
	f := &SpoofFilter{BlockRate: 25}
	snap := &market.Snapshot{
		Depth: models.Depth{Bids: []models.DepthLevel{{Price: 100, Qty: 1}}},
		Book:  models.BookMetrics{SpoofThinRate: 40},
	}
	r := f.Evaluate(context.Background(), snap)
	if r.Flag != models.FlagBlock {
		t.Errorf("flag = %v, want block at 40%% thinning", r.Flag)
	}
}

func TestSpoofFilterPassesStableBook(t *testing.T) {
	f := &SpoofFilter{BlockRate: 25}
	snap := &market.Snapshot{
		Depth: models.Depth{Bids: []models.DepthLevel{{Price: 100, Qty: 1}}},
		Book:  models.BookMetrics{SpoofThinRate: 0},
	}
	r := f.Evaluate(context.Background(), snap)
	if r.Flag != models.FlagHardPass || r.Score != 1 {
		t.Errorf("report = %+v, want hard pass with full score", r)
	}
}

func TestSentimentDivergenceBlocksConflict(t *testing.T) {
	f := &SentimentDivergenceFilter{Window: 3}
	// Price up 5% against a tape that is net selling.
	snap := &market.Snapshot{
		Candles: []models.Candle{{Close: 105}, {Close: 102}, {Close: 100}},
		Trades:  []models.Trade{{Qty: 10, Side: models.SideSell}},
		CVD:     -10,
	}
	r := f.Evaluate(context.Background(), snap)
	if r.Flag != models.FlagBlock {
		t.Errorf("flag = %v, want block on bear CVD conflict", r.Flag)
	}
}

func TestSentimentDivergencePassesAligned(t *testing.T) {
	f := &SentimentDivergenceFilter{Window: 3}
	snap := &market.Snapshot{
		Candles: []models.Candle{{Close: 105}, {Close: 102}, {Close: 100}},
		Trades:  []models.Trade{{Qty: 10, Side: models.SideBuy}},
		CVD:     10,
	}
	r := f.Evaluate(context.Background(), snap)
	if r.Flag != models.FlagHardPass {
		t.Errorf("flag = %v, want hard pass when price and CVD align", r.Flag)
	}
	if r.Score <= 0.5 {
		t.Errorf("score = %v, want above 0.5", r.Score)
	}
}

func TestReversalZoneScoresNearStrongWall(t *testing.T) {
	f := &ReversalZoneFilter{MaxDistance: 0.01}
	snap := &market.Snapshot{
		HasMark:   true,
		MarkPrice: 100,
		Depth: models.Depth{
			Bids: []models.DepthLevel{{Price: 99.9, Qty: 2}},
			Asks: []models.DepthLevel{{Price: 100.1, Qty: 2}},
		},
		Book: models.BookMetrics{
			BidWalls: []models.Wall{{Price: 99.95, Qty: 20}},
		},
	}
	r := f.Evaluate(context.Background(), snap)
	if r.Flag != models.FlagHardPass {
		t.Errorf("flag = %v (score %v), want hard pass for a strong nearby wall", r.Flag, r.Score)
	}
	if r.Score < 0 || r.Score > 1 {
		t.Errorf("score = %v, want within [0,1]", r.Score)
	}
}

func TestReversalZoneSoftFlagWithoutWalls(t *testing.T) {
	f := &ReversalZoneFilter{MaxDistance: 0.01}
	snap := &market.Snapshot{HasMark: true, MarkPrice: 100}
	r := f.Evaluate(context.Background(), snap)
	if r.Flag != models.FlagSoftFlag || r.Score != 0.5 {
		t.Errorf("report = %+v, want soft flag 0.5 without walls", r)
	}
}

func TestReversalZoneIgnoresDistantWall(t *testing.T) {
	f := &ReversalZoneFilter{MaxDistance: 0.01}
	snap := &market.Snapshot{
		HasMark:   true,
		MarkPrice: 100,
		Depth:     models.Depth{Bids: []models.DepthLevel{{Price: 95, Qty: 2}}},
		Book:      models.BookMetrics{BidWalls: []models.Wall{{Price: 95, Qty: 50}}},
	}
	r := f.Evaluate(context.Background(), snap)
	if r.Score != 0 {
		t.Errorf("score = %v, want 0 for a wall outside the reversal distance", r.Score)
	}
}
