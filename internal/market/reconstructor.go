package market

import "tradingcore/internal/domain/models"

const minuteMs = 60_000

// CandleReconstructor folds individual trades into one-minute candles. It
// holds at most one in-progress candle; a trade in a later minute
// finalizes it. Trades never retroactively alter prior-minute candles.
type CandleReconstructor struct {
	current *models.Candle
}

func NewCandleReconstructor() *CandleReconstructor {
	return &CandleReconstructor{}
}

// Apply folds one trade into the in-progress candle. When the trade opens
// a new minute, the previous candle is finalized and returned as a copy;
// otherwise Apply returns nil.
func (r *CandleReconstructor) Apply(t models.Trade) *models.Candle {
	minute := t.Time - t.Time%minuteMs

	if r.current == nil {
		r.current = openCandle(minute, t)
		return nil
	}

	if minute == r.current.OpenTime {
		c := r.current
		if t.Price > c.High {
			c.High = t.Price
		}
		if t.Price < c.Low {
			c.Low = t.Price
		}
		c.Close = t.Price
		c.Volume += t.Qty
		c.QuoteVolume += t.Qty * t.Price
		return nil
	}

	if minute < r.current.OpenTime {
		// late trade from a prior minute, ignored
		return nil
	}

	finalized := *r.current
	finalized.Confirmed = true
	r.current = openCandle(minute, t)
	return &finalized
}

// Live returns a copy of the current in-progress candle, or nil when no
// trade has arrived yet.
func (r *CandleReconstructor) Live() *models.Candle {
	if r.current == nil {
		return nil
	}
	c := *r.current
	return &c
}

func openCandle(minute int64, t models.Trade) *models.Candle {
	return &models.Candle{
		OpenTime:    minute,
		Open:        t.Price,
		High:        t.Price,
		Low:         t.Price,
		Close:       t.Price,
		Volume:      t.Qty,
		QuoteVolume: t.Qty * t.Price,
	}
}
