package forecast

import (
	"math"
	"testing"

	"tradingcore/internal/domain/models"
	"tradingcore/internal/market"
)

func trendSnapshot(n int, start, step float64) *market.Snapshot {
	// Newest-first candles with linearly trending closes and range 2.
	candles := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		c := start + step*float64(n-1-i)
		candles[i] = models.Candle{
			OpenTime: int64(n-i) * 60_000,
			Close:    c,
			High:     c + 1,
			Low:      c - 1,
		}
	}
	return &market.Snapshot{Candles: candles}
}

func TestForecastNeutralOnShortHistory(t *testing.T) {
	f := New(10, Weights{Earliness: 0.35, Divergence: 0.25, Imbalance: 0.2, Proximity: 0.2})
	res := f.Forecast(&market.Snapshot{Candles: []models.Candle{{OpenTime: 60_000}, {OpenTime: 120_000}}})
	if len(res.Candles) != 0 {
		t.Errorf("len(Candles) = %d, want 0 on short history", len(res.Candles))
	}
	if res.ReversalLikelihood != 0.5 {
		t.Errorf("ReversalLikelihood = %v, want neutral 0.5", res.ReversalLikelihood)
	}
}

func TestForecastProjectsSixCandles(t *testing.T) {
	f := New(10, Weights{Earliness: 0.35, Divergence: 0.25, Imbalance: 0.2, Proximity: 0.2})
	snap := trendSnapshot(10, 100, 1)

	res := f.Forecast(snap)
	if len(res.Candles) != 6 {
		t.Fatalf("len(Candles) = %d, want 6", len(res.Candles))
	}

	// The trend is exactly +1 per candle, so projected centers continue it.
	lastClose := snap.Candles[0].Close
	for i, c := range res.Candles {
		center := (c.High + c.Low) / 2
		want := lastClose + float64(i+1)
		if math.Abs(center-want) > 1e-9 {
			t.Errorf("projection %d center = %v, want %v", i, center, want)
		}
		if math.Abs((c.High-c.Low)-2) > 1e-9 {
			t.Errorf("projection %d envelope = %v, want full ATR 2", i, c.High-c.Low)
		}
	}

	lastOpen := snap.Candles[0].OpenTime
	if res.Candles[0].Time != lastOpen+60_000 {
		t.Errorf("first projection time = %d, want %d", res.Candles[0].Time, lastOpen+60_000)
	}
	if res.Candles[5].Time != lastOpen+6*60_000 {
		t.Errorf("last projection time = %d, want %d", res.Candles[5].Time, lastOpen+6*60_000)
	}
}

func TestForecastDuplicateOpenTimesCollapse(t *testing.T) {
	f := New(10, Weights{})
	snap := &market.Snapshot{Candles: []models.Candle{
		{OpenTime: 120_000, Close: 101},
		{OpenTime: 120_000, Close: 102},
		{OpenTime: 60_000, Close: 100},
	}}
	res := f.Forecast(snap)
	if len(res.Candles) != 0 {
		t.Errorf("len(Candles) = %d, want 0 with only two distinct candles", len(res.Candles))
	}
}

func TestReversalLikelihoodClamped(t *testing.T) {
	// Oversized weights must still clamp the blend into [0,1].
	f := New(10, Weights{Earliness: 5, Divergence: 5, Imbalance: 5, Proximity: 5})
	snap := trendSnapshot(10, 100, 1)
	snap.HasMark = true
	snap.MarkPrice = snap.Candles[0].Close
	snap.Book.Pressure.Imbalance = -0.9

	res := f.Forecast(snap)
	if res.ReversalLikelihood < 0 || res.ReversalLikelihood > 1 {
		t.Errorf("ReversalLikelihood = %v, want within [0,1]", res.ReversalLikelihood)
	}

	f = New(10, Weights{})
	res = f.Forecast(snap)
	if res.ReversalLikelihood != 0 {
		t.Errorf("ReversalLikelihood = %v, want 0 with zero weights", res.ReversalLikelihood)
	}
}

func TestLeastSquaresSlopeSign(t *testing.T) {
	up := trendSnapshot(5, 100, 2)
	f := New(5, Weights{})
	res := f.Forecast(up)
	if res.Candles[5].High <= up.Candles[0].Close {
		t.Errorf("uptrend projection %v not above last close %v", res.Candles[5].High, up.Candles[0].Close)
	}

	down := trendSnapshot(5, 100, -2)
	res = f.Forecast(down)
	if res.Candles[5].Low >= down.Candles[0].Close {
		t.Errorf("downtrend projection %v not below last close %v", res.Candles[5].Low, down.Candles[0].Close)
	}
}
