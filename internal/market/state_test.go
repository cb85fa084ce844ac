package market

import (
	"math"
	"testing"

	"tradingcore/internal/domain/models"
)

func newTestState(t *testing.T, tradeCap int) *MarketState {
	t.Helper()
	return NewMarketState("BTCUSDT", 10, tradeCap, BookConfig{
		TopN:           20,
		WallMultiplier: 5,
		SpoofDistance:  0.5,
	})
}

func TestRollingCVDEviction(t *testing.T) {
	s := newTestState(t, 3)
	s.UpdateTrade(models.Trade{Time: 1, Price: 100, Qty: 1, Side: models.SideBuy})
	s.UpdateTrade(models.Trade{Time: 2, Price: 100, Qty: 2, Side: models.SideBuy})
	s.UpdateTrade(models.Trade{Time: 3, Price: 100, Qty: 1, Side: models.SideSell})

	if cvd := s.Snapshot().CVD; cvd != 2 {
		t.Fatalf("CVD = %v, want 2", cvd)
	}

	// Buffer is full; the oldest buy (+1) is evicted.
	s.UpdateTrade(models.Trade{Time: 4, Price: 100, Qty: 5, Side: models.SideBuy})

	snap := s.Snapshot()
	if snap.CVD != 6 {
		t.Errorf("CVD = %v, want 6 after eviction", snap.CVD)
	}
	if len(snap.Trades) != 3 {
		t.Fatalf("len(Trades) = %d, want 3", len(snap.Trades))
	}
	if snap.Trades[0].Time != 2 || snap.Trades[2].Time != 4 {
		t.Errorf("trade window = [%d..%d], want [2..4]", snap.Trades[0].Time, snap.Trades[2].Time)
	}
}

func TestUpdateCandleReplacesSameOpenTime(t *testing.T) {
	s := newTestState(t, 10)
	s.UpdateCandle(models.Candle{OpenTime: 60_000, Close: 100, Confirmed: true})
	s.UpdateCandle(models.Candle{OpenTime: 120_000, Close: 101, Confirmed: true})
	s.UpdateCandle(models.Candle{OpenTime: 60_000, Close: 99, Confirmed: true})

	snap := s.Snapshot()
	if len(snap.Candles) != 2 {
		t.Fatalf("len(Candles) = %d, want 2", len(snap.Candles))
	}
	if snap.Candles[0].OpenTime != 120_000 {
		t.Errorf("Candles[0].OpenTime = %d, want newest first", snap.Candles[0].OpenTime)
	}
	if snap.Candles[1].Close != 99 {
		t.Errorf("replaced candle Close = %v, want 99", snap.Candles[1].Close)
	}
}

func TestMetricsRecomputedAfterDepthUpdate(t *testing.T) {
	s := newTestState(t, 10)

	s.UpdateDepth(models.Depth{
		Bids: []models.DepthLevel{{Price: 100, Qty: 1}, {Price: 99, Qty: 10}},
		Asks: []models.DepthLevel{{Price: 101, Qty: 1}, {Price: 102, Qty: 8}},
	})
	m := s.Metrics()
	if len(m.BidWalls) != 1 || len(m.AskWalls) != 1 {
		t.Fatalf("walls = %d/%d, want 1/1", len(m.BidWalls), len(m.AskWalls))
	}
	if m.SpoofThinRate != 0 {
		t.Errorf("SpoofThinRate = %v, want 0 on first snapshot", m.SpoofThinRate)
	}

	// Walls shrink from 18 to 5 aggregate quantity.
	s.UpdateDepth(models.Depth{
		Bids: []models.DepthLevel{{Price: 100, Qty: 1}, {Price: 99, Qty: 4}},
		Asks: []models.DepthLevel{{Price: 101, Qty: 1}, {Price: 102, Qty: 5}},
	})
	m = s.Metrics()
	want := 13.0 / 18.0 * 100
	if math.Abs(m.SpoofThinRate-want) > 1e-9 {
		t.Errorf("SpoofThinRate = %v, want %v", m.SpoofThinRate, want)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := newTestState(t, 10)
	s.UpdateCandle(models.Candle{OpenTime: 60_000, Close: 100, Confirmed: true})
	s.UpdateDepth(models.Depth{Bids: []models.DepthLevel{{Price: 100, Qty: 1}}})
	s.UpdateLiveCandle(models.Candle{OpenTime: 120_000, Close: 101})

	snap := s.Snapshot()
	snap.Candles[0].Close = -1
	snap.Depth.Bids[0].Qty = -1
	snap.LiveCandle.Close = -1

	fresh := s.Snapshot()
	if fresh.Candles[0].Close != 100 {
		t.Errorf("candle mutated through snapshot: %v", fresh.Candles[0].Close)
	}
	if fresh.Depth.Bids[0].Qty != 1 {
		t.Errorf("depth mutated through snapshot: %v", fresh.Depth.Bids[0].Qty)
	}
	if fresh.LiveCandle.Close != 101 {
		t.Errorf("live candle mutated through snapshot: %v", fresh.LiveCandle.Close)
	}
}

func TestSnapshotReportsLatestPerFilter(t *testing.T) {
	s := newTestState(t, 10)
	s.AppendReport(models.FilterReport{FilterName: "retest", Score: 0.2})
	s.AppendReport(models.FilterReport{FilterName: "retest", Score: 0.9})

	score, ok := s.Snapshot().Score("retest")
	if !ok {
		t.Fatal("expected a retest score")
	}
	if score != 0.9 {
		t.Errorf("score = %v, want latest 0.9", score)
	}
	if _, ok := s.Snapshot().Score("missing"); ok {
		t.Error("expected no score for unknown filter")
	}
}

func TestAppendReportBoundsPerFilterHistory(t *testing.T) {
	s := newTestState(t, 10)
	for i := 0; i < reportCap+50; i++ {
		s.AppendReport(models.FilterReport{FilterName: "spoof", Score: float64(i)})
	}

	if got := len(s.auditLog["spoof"]); got != reportCap {
		t.Errorf("report history length = %d, want capped at %d", got, reportCap)
	}
	score, ok := s.Snapshot().Score("spoof")
	if !ok || score != float64(reportCap+49) {
		t.Errorf("latest score = %v (ok=%v), want newest entry kept", score, ok)
	}
}

func TestSnapshotATR(t *testing.T) {
	s := newTestState(t, 10)
	s.UpdateCandle(models.Candle{OpenTime: 60_000, High: 110, Low: 100, Confirmed: true})
	s.UpdateCandle(models.Candle{OpenTime: 120_000, High: 106, Low: 100, Confirmed: true})

	snap := s.Snapshot()
	if got := snap.ATR(2); got != 8 {
		t.Errorf("ATR(2) = %v, want 8", got)
	}
	if got := snap.ATR(5); got != 8 {
		t.Errorf("ATR(5) = %v, want 8 when fewer candles exist", got)
	}
	if got := (&Snapshot{}).ATR(5); got != 0 {
		t.Errorf("ATR = %v, want 0 without candles", got)
	}
}
