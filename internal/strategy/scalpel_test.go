package strategy

import (
	"testing"

	"tradingcore/internal/domain/models"
	"tradingcore/internal/market"
)

func scalpelSnapshot(liveClose, liveLow, liveHigh float64) *market.Snapshot {
	// Newest-first closes 105, 103, 101: EMA3 = 103.5.
	return &market.Snapshot{
		Candles: []models.Candle{
			{Close: 105, High: 105, Low: 100},
			{Close: 103, High: 104, Low: 102},
			{Close: 101, High: 102, Low: 100},
		},
		LiveCandle: &models.Candle{Close: liveClose, Low: liveLow, High: liveHigh},
	}
}

func TestScalpelLongOnRetestOfPriorHigh(t *testing.T) {
	s := NewScalpel(3, 0.005, 1.5)
	snap := scalpelSnapshot(106, 105.2, 106.5)

	sig := s.Generate(snap)
	if sig == nil {
		t.Fatal("Generate = nil, want long signal")
	}
	if sig.Direction != models.Long || sig.TradeType != NameScalpel {
		t.Errorf("signal = %+v, want SCALPEL long", sig)
	}
	if sig.EntryPrice != 106 {
		t.Errorf("entry = %v, want 106", sig.EntryPrice)
	}
	if sig.TakeProfit != 113.5 {
		t.Errorf("take profit = %v, want 113.5", sig.TakeProfit)
	}
	if sig.StopLoss != 100 {
		t.Errorf("stop loss = %v, want prior low 100", sig.StopLoss)
	}
}

func TestScalpelNoSignalWithoutRetest(t *testing.T) {
	s := NewScalpel(3, 0.005, 1.5)
	// Live low is far above the prior high, no retest.
	snap := scalpelSnapshot(108, 107.5, 108.5)
	if sig := s.Generate(snap); sig != nil {
		t.Errorf("Generate = %+v, want nil without retest", sig)
	}
}

func TestScalpelNilOnShortHistory(t *testing.T) {
	s := NewScalpel(100, 0.005, 1.5)
	snap := scalpelSnapshot(106, 105.2, 106.5)
	if sig := s.Generate(snap); sig != nil {
		t.Errorf("Generate = %+v, want nil with fewer candles than the EMA period", sig)
	}
}

func TestScalpelNilWithoutLiveCandle(t *testing.T) {
	s := NewScalpel(3, 0.005, 1.5)
	snap := scalpelSnapshot(106, 105.2, 106.5)
	snap.LiveCandle = nil
	if sig := s.Generate(snap); sig != nil {
		t.Errorf("Generate = %+v, want nil without a live candle", sig)
	}
}
