package strategy

import (
	"fmt"

	"tradingcore/internal/domain/models"
	"tradingcore/internal/market"
)

const NameTrapX = "TRAPX"

// TrapX is the mean-reversion module: a high-range "trap" candle out of a
// compressed base, a live wick rejection exceeding a dynamic multiple of
// the candle body, corroborated by order-book thinning. It fades the trap
// direction, targeting the nearest opposing wall.
type TrapX struct {
	RangeMultiple float64 // trap range vs average compressed range
	WickMultiple  float64 // live wick vs body
	SpoofTrigger  float64 // minimum spoof-thinning rate
}

func NewTrapX(rangeMultiple, wickMultiple, spoofTrigger float64) *TrapX {
	return &TrapX{RangeMultiple: rangeMultiple, WickMultiple: wickMultiple, SpoofTrigger: spoofTrigger}
}

var _ SignalModule = (*TrapX)(nil)

func (t *TrapX) Name() string { return NameTrapX }

func (t *TrapX) Generate(snap *market.Snapshot) *models.Signal {
	if snap.LiveCandle == nil || len(snap.Candles) < 4 {
		return nil
	}

	trap := snap.Candles[0]
	avgBase := (snap.Candles[1].Range() + snap.Candles[2].Range() + snap.Candles[3].Range()) / 3
	if avgBase <= 0 || trap.Range() < t.RangeMultiple*avgBase {
		return nil
	}

	live := snap.LiveCandle
	body := live.Body()
	if body <= 0 {
		return nil
	}

	if snap.Book.SpoofThinRate <= t.SpoofTrigger {
		return nil
	}

	entry := live.Close
	if trap.Bullish() {
		// upside trap: need an upper-wick rejection, fade short
		upperWick := live.High - max(live.Open, live.Close)
		if upperWick <= t.WickMultiple*body {
			return nil
		}
		tp := nearestWallBelow(snap.Book.BidWalls, entry)
		if tp == 0 {
			tp = entry - trap.Range()
		}
		return &models.Signal{
			TradeType:  NameTrapX,
			Direction:  models.Short,
			EntryPrice: entry,
			TakeProfit: tp,
			StopLoss:   trap.High,
			Reason:     fmt.Sprintf("upside trap %.2f rejected, book thinning %.1f%%", trap.High, snap.Book.SpoofThinRate),
		}
	}

	lowerWick := min(live.Open, live.Close) - live.Low
	if lowerWick <= t.WickMultiple*body {
		return nil
	}
	tp := nearestWallAbove(snap.Book.AskWalls, entry)
	if tp == 0 {
		tp = entry + trap.Range()
	}
	return &models.Signal{
		TradeType:  NameTrapX,
		Direction:  models.Long,
		EntryPrice: entry,
		TakeProfit: tp,
		StopLoss:   trap.Low,
		Reason:     fmt.Sprintf("downside trap %.2f rejected, book thinning %.1f%%", trap.Low, snap.Book.SpoofThinRate),
	}
}

func nearestWallBelow(walls []models.Wall, price float64) float64 {
	best := 0.0
	for _, w := range walls {
		if w.Price < price && w.Price > best {
			best = w.Price
		}
	}
	return best
}

func nearestWallAbove(walls []models.Wall, price float64) float64 {
	best := 0.0
	for _, w := range walls {
		if w.Price > price && (best == 0 || w.Price < best) {
			best = w.Price
		}
	}
	return best
}
