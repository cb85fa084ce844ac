package strategy

import (
	"fmt"

	"tradingcore/internal/domain/models"
	"tradingcore/internal/market"
)

const NameScalpel = "SCALPEL"

// Scalpel is the continuation module: trade in the direction of the EMA
// trend after the live candle retests the prior candle's extreme within a
// proximity band. Targets are sized from the prior candle range.
type Scalpel struct {
	EMAPeriod  int
	RetestBand float64 // as a fraction of price
	TPMultiple float64 // applied to the prior candle range
}

func NewScalpel(emaPeriod int, retestBand, tpMultiple float64) *Scalpel {
	return &Scalpel{EMAPeriod: emaPeriod, RetestBand: retestBand, TPMultiple: tpMultiple}
}

var _ SignalModule = (*Scalpel)(nil)

func (s *Scalpel) Name() string { return NameScalpel }

func (s *Scalpel) Generate(snap *market.Snapshot) *models.Signal {
	if snap.LiveCandle == nil || len(snap.Candles) < s.EMAPeriod {
		return nil
	}

	ema := emaClose(snap.Candles, s.EMAPeriod)
	prior := snap.Candles[0]
	live := snap.LiveCandle
	priceRange := prior.Range()
	if priceRange <= 0 || prior.High <= 0 {
		return nil
	}

	long := live.Close > ema
	if long {
		// retest of the prior high from above
		dist := (live.Low - prior.High) / prior.High
		if dist < -s.RetestBand || dist > s.RetestBand {
			return nil
		}
		entry := live.Close
		return &models.Signal{
			TradeType:  NameScalpel,
			Direction:  models.Long,
			EntryPrice: entry,
			TakeProfit: entry + s.TPMultiple*priceRange,
			StopLoss:   prior.Low,
			Reason:     fmt.Sprintf("trend above EMA%d, retest of prior high %.2f", s.EMAPeriod, prior.High),
		}
	}

	dist := (prior.Low - live.High) / prior.Low
	if dist < -s.RetestBand || dist > s.RetestBand {
		return nil
	}
	entry := live.Close
	return &models.Signal{
		TradeType:  NameScalpel,
		Direction:  models.Short,
		EntryPrice: entry,
		TakeProfit: entry - s.TPMultiple*priceRange,
		StopLoss:   prior.High,
		Reason:     fmt.Sprintf("trend below EMA%d, retest of prior low %.2f", s.EMAPeriod, prior.Low),
	}
}

// emaClose computes the EMA over closes, seeded with the oldest close in
// the window. Candles are newest-first.
func emaClose(candles []models.Candle, period int) float64 {
	if len(candles) < period {
		return 0
	}
	k := 2.0 / (float64(period) + 1)
	ema := candles[period-1].Close
	for i := period - 2; i >= 0; i-- {
		ema = candles[i].Close*k + ema*(1-k)
	}
	return ema
}
