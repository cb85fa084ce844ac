package market

import "tradingcore/internal/domain/models"

// ComputePressure sums quantities across the top N levels per side and
// derives the imbalance in [-1,1].
func ComputePressure(d models.Depth, topN int) models.BookPressure {
	var p models.BookPressure
	for i, lvl := range d.Bids {
		if i >= topN {
			break
		}
		p.BidSum += lvl.Qty
	}
	for i, lvl := range d.Asks {
		if i >= topN {
			break
		}
		p.AskSum += lvl.Qty
	}
	if total := p.BidSum + p.AskSum; total > 0 {
		p.Imbalance = (p.BidSum - p.AskSum) / total
	}
	return p
}

// DetectWalls collects levels whose quantity is at least multiplier times
// the top-of-book quantity on that side.
func DetectWalls(d models.Depth, multiplier float64) (bids, asks []models.Wall) {
	bids = sideWalls(d.Bids, multiplier)
	asks = sideWalls(d.Asks, multiplier)
	return bids, asks
}

func sideWalls(levels []models.DepthLevel, multiplier float64) []models.Wall {
	if len(levels) == 0 {
		return nil
	}
	top := levels[0].Qty
	if top <= 0 {
		return nil
	}
	var walls []models.Wall
	for _, lvl := range levels {
		if lvl.Qty >= multiplier*top {
			walls = append(walls, models.Wall{Price: lvl.Price, Qty: lvl.Qty})
		}
	}
	return walls
}

// WallAggregate sums wall quantity across both sides.
func WallAggregate(bids, asks []models.Wall) float64 {
	var sum float64
	for _, w := range bids {
		sum += w.Qty
	}
	for _, w := range asks {
		sum += w.Qty
	}
	return sum
}

// SpoofThinRate compares wall aggregate quantity between the previous and
// current snapshot. The rate is 0 when the aggregate grew or the decrease
// stayed within the distance threshold, otherwise it is the percentage
// decrease.
func SpoofThinRate(prevAggregate, currAggregate, distance float64) float64 {
	if prevAggregate <= 0 {
		return 0
	}
	delta := prevAggregate - currAggregate
	if delta <= distance {
		return 0
	}
	return delta / prevAggregate * 100
}
