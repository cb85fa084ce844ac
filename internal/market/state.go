package market

import (
	"sync"
	"time"

	"tradingcore/internal/domain/models"
)

// BookConfig tunes the derived order-book analytics.
type BookConfig struct {
	TopN           int
	WallMultiplier float64
	SpoofDistance  float64
}

// MarketState is the single shared mutable snapshot of the instrument.
// Every field is guarded by one mutex so a reader never observes a
// half-updated composite.
type MarketState struct {
	mu sync.Mutex

	symbol string
	book   BookConfig

	markPrice float64
	hasMark   bool

	// klines is newest-first and bounded by candleCap.
	klines    []models.Candle
	candleCap int

	liveCandle *models.Candle

	// trades is a ring buffer of the most recent trades; cvd is the
	// rolling cumulative volume delta over exactly that window.
	trades   []models.Trade
	tradeCap int
	head     int
	count    int
	cvd      float64

	depth     models.Depth
	prevDepth models.Depth

	dirty   bool
	metrics models.BookMetrics

	// auditLog keeps the recent filter reports, keyed by filter and
	// bounded per filter by reportCap.
	auditLog map[string][]models.FilterReport

	lastUpdate time.Time
}

func NewMarketState(symbol string, candleCap, tradeCap int, book BookConfig) *MarketState {
	return &MarketState{
		symbol:    symbol,
		book:      book,
		candleCap: candleCap,
		tradeCap:  tradeCap,
		trades:    make([]models.Trade, tradeCap),
		auditLog:  make(map[string][]models.FilterReport),
	}
}

func (s *MarketState) Symbol() string { return s.symbol }

// UpdateMarkPrice sets the current mark price.
func (s *MarketState) UpdateMarkPrice(price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markPrice = price
	s.hasMark = true
	s.lastUpdate = time.Now()
}

// UpdateTrade appends a trade to the bounded tape and maintains the
// rolling CVD in O(1): add the new signed quantity, subtract the evicted
// trade's once the buffer is full.
func (s *MarketState) UpdateTrade(t models.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count == s.tradeCap {
		s.cvd -= s.trades[s.head].SignedQty()
	} else {
		s.count++
	}
	s.trades[s.head] = t
	s.head = (s.head + 1) % s.tradeCap
	s.cvd += t.SignedQty()
	s.lastUpdate = time.Now()
}

// UpdateCandle pushes a finalized candle. A candle with an already-known
// open time replaces the stored one; otherwise it is prepended and the
// oldest candle beyond capacity is dropped.
func (s *MarketState) UpdateCandle(c models.Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.klines {
		if s.klines[i].OpenTime == c.OpenTime {
			s.klines[i] = c
			s.lastUpdate = time.Now()
			return
		}
	}
	s.klines = append([]models.Candle{c}, s.klines...)
	if len(s.klines) > s.candleCap {
		s.klines = s.klines[:s.candleCap]
	}
	s.lastUpdate = time.Now()
}

// UpdateLiveCandle replaces the in-progress (unconfirmed) candle.
func (s *MarketState) UpdateLiveCandle(c models.Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Confirmed = false
	s.liveCandle = &c
	s.lastUpdate = time.Now()
}

// UpdateDepth installs a new depth snapshot, retaining the previous one
// for spoof detection, and marks the derived metrics dirty.
func (s *MarketState) UpdateDepth(d models.Depth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prevDepth = s.depth
	s.depth = d.Clone()
	s.dirty = true
	s.lastUpdate = time.Now()
}

// reportCap bounds the per-filter report history; snapshots only ever
// read the latest entry.
const reportCap = 256

// AppendReport adds a filter report to the audit log, dropping the oldest
// entries for that filter beyond reportCap.
func (s *MarketState) AppendReport(r models.FilterReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reports := append(s.auditLog[r.FilterName], r)
	if len(reports) > reportCap {
		reports = reports[len(reports)-reportCap:]
	}
	s.auditLog[r.FilterName] = reports
}

// Metrics returns the derived order-book analytics, recomputing pressure,
// walls and the spoof-thinning rate together only when a depth update has
// happened since the last read.
func (s *MarketState) Metrics() models.BookMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshMetricsLocked()
	return s.metrics
}

func (s *MarketState) refreshMetricsLocked() {
	if !s.dirty {
		return
	}
	prevBids, prevAsks := DetectWalls(s.prevDepth, s.book.WallMultiplier)
	bids, asks := DetectWalls(s.depth, s.book.WallMultiplier)
	s.metrics = models.BookMetrics{
		Pressure: ComputePressure(s.depth, s.book.TopN),
		BidWalls: bids,
		AskWalls: asks,
		SpoofThinRate: SpoofThinRate(
			WallAggregate(prevBids, prevAsks),
			WallAggregate(bids, asks),
			s.book.SpoofDistance,
		),
	}
	s.dirty = false
}

// Snapshot is an immutable copy of the market state for consumers that
// reason over multiple fields atomically.
type Snapshot struct {
	Symbol     string
	MarkPrice  float64
	HasMark    bool
	Candles    []models.Candle // newest-first
	LiveCandle *models.Candle
	Trades     []models.Trade // oldest-first
	CVD        float64
	Depth      models.Depth
	Book       models.BookMetrics
	Reports    map[string]models.FilterReport // latest per filter
	LastUpdate time.Time
}

// Snapshot deep-copies the state, refreshing derived metrics first.
func (s *MarketState) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshMetricsLocked()

	snap := &Snapshot{
		Symbol:     s.symbol,
		MarkPrice:  s.markPrice,
		HasMark:    s.hasMark,
		Candles:    make([]models.Candle, len(s.klines)),
		CVD:        s.cvd,
		Depth:      s.depth.Clone(),
		Book:       s.metrics,
		Reports:    make(map[string]models.FilterReport, len(s.auditLog)),
		LastUpdate: s.lastUpdate,
	}
	copy(snap.Candles, s.klines)

	if s.liveCandle != nil {
		c := *s.liveCandle
		snap.LiveCandle = &c
	}

	snap.Trades = make([]models.Trade, 0, s.count)
	for i := 0; i < s.count; i++ {
		idx := (s.head - s.count + i + s.tradeCap) % s.tradeCap
		snap.Trades = append(snap.Trades, s.trades[idx])
	}

	for name, reports := range s.auditLog {
		if len(reports) > 0 {
			snap.Reports[name] = reports[len(reports)-1]
		}
	}

	return snap
}

// Score returns the latest score reported by the named filter.
func (s *Snapshot) Score(filter string) (float64, bool) {
	r, ok := s.Reports[filter]
	if !ok {
		return 0, false
	}
	return r.Score, true
}

// ATR returns the average true range over up to n most recent closed
// candles, 0 when no candles are available.
func (s *Snapshot) ATR(n int) float64 {
	if len(s.Candles) == 0 || n <= 0 {
		return 0
	}
	if n > len(s.Candles) {
		n = len(s.Candles)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += s.Candles[i].Range()
	}
	return sum / float64(n)
}
