package models

// TradeSide is the aggressor side of an executed trade.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// Trade is a single executed trade from the feed. Time is in milliseconds.
type Trade struct {
	Time  int64     `json:"t"`
	Price float64   `json:"p"`
	Qty   float64   `json:"q"`
	Side  TradeSide `json:"side"`
}

// SignedQty returns the quantity signed by aggressor side (buy positive).
func (t Trade) SignedQty() float64 {
	if t.Side == SideSell {
		return -t.Qty
	}
	return t.Qty
}

// Candle is a one-minute OHLCV bar. OpenTime is in milliseconds and is
// always truncated to the minute. A candle is mutable while Confirmed is
// false and immutable afterwards.
type Candle struct {
	OpenTime    int64   `json:"open_time"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	QuoteVolume float64 `json:"quote_volume"`
	Confirmed   bool    `json:"confirmed"`
}

// Range returns high minus low.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Body returns the absolute open-to-close distance.
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool { return c.Close > c.Open }

// DepthLevel is one price level of the order book.
type DepthLevel struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
}

// Depth is an order-book snapshot. Bids are sorted by price descending,
// asks ascending.
type Depth struct {
	Bids []DepthLevel `json:"bids"`
	Asks []DepthLevel `json:"asks"`
}

// Clone returns a deep copy of the depth snapshot.
func (d Depth) Clone() Depth {
	out := Depth{
		Bids: make([]DepthLevel, len(d.Bids)),
		Asks: make([]DepthLevel, len(d.Asks)),
	}
	copy(out.Bids, d.Bids)
	copy(out.Asks, d.Asks)
	return out
}

// BookPressure summarizes quantity on each side of the book over the top
// N levels.
type BookPressure struct {
	BidSum    float64 `json:"bid_sum"`
	AskSum    float64 `json:"ask_sum"`
	Imbalance float64 `json:"imbalance"`
}

// Wall is a depth level whose quantity is a large multiple of the
// top-of-book quantity on its side.
type Wall struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
}

// BookMetrics is the cached set of derived order-book analytics.
type BookMetrics struct {
	Pressure      BookPressure `json:"pressure"`
	BidWalls      []Wall       `json:"bid_walls"`
	AskWalls      []Wall       `json:"ask_walls"`
	SpoofThinRate float64      `json:"spoof_thin_rate"`
}

// FeedEventType discriminates decoded market-data frames.
type FeedEventType string

const (
	EventTrade     FeedEventType = "trade"
	EventDepth     FeedEventType = "depth"
	EventMarkPrice FeedEventType = "mark_price"
	EventCandle    FeedEventType = "candle"
)

// FeedEvent is one decoded market-data event. Exactly one payload field
// is set, selected by Type.
type FeedEvent struct {
	Type      FeedEventType
	Trade     *Trade
	Depth     *Depth
	MarkPrice float64
	Candle    *Candle
}
