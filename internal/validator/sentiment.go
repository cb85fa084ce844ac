package validator

import (
	"context"
	"fmt"
	"math"

	"tradingcore/internal/domain/models"
	"tradingcore/internal/market"
)

// SentimentDivergenceFilter compares the sign of the recent price change
// with the rolling CVD. A strong conflict (rising price into heavy net
// selling, or the mirror image) blocks the entry.
type SentimentDivergenceFilter struct {
	Window int
}

var _ Validator = (*SentimentDivergenceFilter)(nil)

func (f *SentimentDivergenceFilter) Name() string { return FilterSentimentDivergence }

func (f *SentimentDivergenceFilter) Evaluate(_ context.Context, snap *market.Snapshot) models.FilterReport {
	if f.Window <= 0 || len(snap.Candles) < f.Window || len(snap.Trades) == 0 {
		return neutral(f.Name(), "not enough data")
	}

	oldest := snap.Candles[f.Window-1]
	latest := snap.Candles[0]
	if oldest.Close <= 0 {
		return neutral(f.Name(), "degenerate candle")
	}
	priceChange := (latest.Close - oldest.Close) / oldest.Close

	var tapeVolume float64
	for _, t := range snap.Trades {
		tapeVolume += t.Qty
	}
	if tapeVolume <= 0 {
		return neutral(f.Name(), "empty tape")
	}
	cvdRatio := snap.CVD / tapeVolume

	aligned := priceChange*cvdRatio >= 0
	magnitude := clamp01(math.Abs(cvdRatio))

	report := models.FilterReport{
		FilterName: f.Name(),
		Metrics: map[string]float64{
			"price_change": priceChange,
			"cvd_ratio":    cvdRatio,
		},
	}
	if aligned {
		report.Score = clamp01(0.5 + magnitude/2)
		report.Flag = models.FlagHardPass
		return report
	}

	report.Score = clamp01(0.5 - magnitude/2)
	report.Flag = models.FlagSoftFlag
	if magnitude >= 0.5 && math.Abs(priceChange) >= 0.001 {
		report.Flag = models.FlagBlock
		if cvdRatio < 0 {
			report.Note = fmt.Sprintf("bear CVD conflict: price %+.3f%% vs cvd ratio %.2f", priceChange*100, cvdRatio)
		} else {
			report.Note = fmt.Sprintf("bull CVD conflict: price %+.3f%% vs cvd ratio %.2f", priceChange*100, cvdRatio)
		}
	}
	return report
}

// ReversalZoneFilter scores the quality of the nearest opposing wall as an
// absorption zone: 70% wall absorption strength, 30% proximity, scaled by
// two and capped at one. A score of at least 0.75 is a hard pass.
type ReversalZoneFilter struct {
	MaxDistance float64 // as a fraction of price
}

var _ Validator = (*ReversalZoneFilter)(nil)

func (f *ReversalZoneFilter) Name() string { return FilterReversalZone }

func (f *ReversalZoneFilter) Evaluate(_ context.Context, snap *market.Snapshot) models.FilterReport {
	price := snap.MarkPrice
	if !snap.HasMark || price <= 0 {
		return neutral(f.Name(), "no mark price")
	}
	walls := append(append([]models.Wall(nil), snap.Book.BidWalls...), snap.Book.AskWalls...)
	if len(walls) == 0 {
		return models.FilterReport{
			FilterName: f.Name(),
			Score:      0.5,
			Flag:       models.FlagSoftFlag,
			Note:       "no walls detected",
		}
	}

	topQty := math.Max(topOfBook(snap.Depth.Bids), topOfBook(snap.Depth.Asks))
	if topQty <= 0 || f.MaxDistance <= 0 {
		return neutral(f.Name(), "degenerate book")
	}

	best := 0.0
	var bestWall models.Wall
	for _, w := range walls {
		dist := math.Abs(w.Price-price) / price
		if dist > f.MaxDistance {
			continue
		}
		absorption := clamp01(w.Qty / (topQty * 10))
		distScore := clamp01(1 - dist/f.MaxDistance)
		score := clamp01((0.7*absorption + 0.3*distScore) * 2)
		if score > best {
			best = score
			bestWall = w
		}
	}

	report := models.FilterReport{
		FilterName: f.Name(),
		Score:      best,
		Flag:       models.FlagSoftFlag,
		Metrics: map[string]float64{
			"wall_price": bestWall.Price,
			"wall_qty":   bestWall.Qty,
		},
	}
	if best >= 0.75 {
		report.Flag = models.FlagHardPass
	} else if best == 0 {
		report.Note = "no wall within reversal distance"
	}
	return report
}

func topOfBook(levels []models.DepthLevel) float64 {
	if len(levels) == 0 {
		return 0
	}
	return levels[0].Qty
}
