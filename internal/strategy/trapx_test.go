package strategy

import (
	"testing"

	"tradingcore/internal/domain/models"
	"tradingcore/internal/market"
)

func trapxSnapshot(spoofRate float64, bidWalls []models.Wall) *market.Snapshot {
	return &market.Snapshot{
		Candles: []models.Candle{
			{Open: 100, Close: 110, High: 110, Low: 100}, // bullish trap, range 10
			{Open: 100, Close: 100.5, High: 101, Low: 100},
			{Open: 100, Close: 100.5, High: 101, Low: 100},
			{Open: 100, Close: 100.5, High: 101, Low: 100},
		},
		// upper wick 3 against a 0.5 body
		LiveCandle: &models.Candle{Open: 109, Close: 108.5, High: 112, Low: 108.4},
		Book:       models.BookMetrics{SpoofThinRate: spoofRate, BidWalls: bidWalls},
	}
}

func TestTrapXFadesUpsideTrap(t *testing.T) {
	m := NewTrapX(2, 1.5, 5)
	snap := trapxSnapshot(30, []models.Wall{{Price: 103, Qty: 50}, {Price: 95, Qty: 80}})

	sig := m.Generate(snap)
	if sig == nil {
		t.Fatal("Generate = nil, want short signal")
	}
	if sig.Direction != models.Short || sig.TradeType != NameTrapX {
		t.Errorf("signal = %+v, want TRAPX short", sig)
	}
	if sig.TakeProfit != 103 {
		t.Errorf("take profit = %v, want nearest bid wall 103", sig.TakeProfit)
	}
	if sig.StopLoss != 110 {
		t.Errorf("stop loss = %v, want trap high 110", sig.StopLoss)
	}
}

func TestTrapXFallbackTargetWithoutWalls(t *testing.T) {
	m := NewTrapX(2, 1.5, 5)
	snap := trapxSnapshot(30, nil)

	sig := m.Generate(snap)
	if sig == nil {
		t.Fatal("Generate = nil, want short signal")
	}
	if sig.TakeProfit != 98.5 {
		t.Errorf("take profit = %v, want entry minus trap range 98.5", sig.TakeProfit)
	}
}

func TestTrapXRequiresBookThinning(t *testing.T) {
	m := NewTrapX(2, 1.5, 5)
	snap := trapxSnapshot(2, nil)
	if sig := m.Generate(snap); sig != nil {
		t.Errorf("Generate = %+v, want nil without book thinning", sig)
	}
}

func TestTrapXRequiresTrapRange(t *testing.T) {
	m := NewTrapX(2, 1.5, 5)
	snap := trapxSnapshot(30, nil)
	snap.Candles[0] = models.Candle{Open: 100, Close: 101, High: 101.5, Low: 100} // ordinary candle
	if sig := m.Generate(snap); sig != nil {
		t.Errorf("Generate = %+v, want nil without a trap candle", sig)
	}
}

func TestTrapXRequiresWickRejection(t *testing.T) {
	m := NewTrapX(2, 1.5, 5)
	snap := trapxSnapshot(30, nil)
	snap.LiveCandle = &models.Candle{Open: 109, Close: 108.5, High: 109.2, Low: 108.4}
	if sig := m.Generate(snap); sig != nil {
		t.Errorf("Generate = %+v, want nil without a wick rejection", sig)
	}
}
