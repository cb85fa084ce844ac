package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tradingcore/internal/domain/models"
	drepo "tradingcore/internal/domain/repository"
	dservice "tradingcore/internal/domain/service"
	"tradingcore/internal/market"
	"tradingcore/pkg/logger"

	"github.com/google/uuid"
)

// Exit reasons recorded on closed trades.
const (
	ExitLiquidated = "LIQUIDATED"
	ExitTakeProfit = "TAKE_PROFIT"
	ExitStopLoss   = "STOP_LOSS"
	ExitMaxROI     = "MAX_ROI"
	ExitDynamic    = "DYNAMIC_EXIT"
	ExitAborted    = "ABORTED"
)

// LifecycleConfig tunes position sizing and monitoring.
type LifecycleConfig struct {
	Leverage        float64
	RiskCapPercent  float64
	MonitorInterval time.Duration
	MaxROILimit     float64 // percent of margin, 0 disables
	DynamicExit     bool
	DryRun          bool
}

// TradeLifecycleManager owns every ActiveTrade from fill simulation to
// close. Trades are filled at a book-walk VWAP, carry a liquidation price
// derived from leverage, and are polled for exit conditions.
type TradeLifecycleManager struct {
	mu     sync.Mutex
	active map[string]*models.ActiveTrade

	state       *market.MarketState
	gateway     dservice.Gateway
	adjudicator dservice.Adjudicator
	sink        drepo.AuditSink
	metrics     drepo.Metrics
	log         *logger.Logger
	cfg         LifecycleConfig
}

func NewTradeLifecycleManager(
	state *market.MarketState,
	gateway dservice.Gateway,
	adjudicator dservice.Adjudicator,
	sink drepo.AuditSink,
	metrics drepo.Metrics,
	cfg LifecycleConfig,
	log *logger.Logger,
) *TradeLifecycleManager {
	return &TradeLifecycleManager{
		active:      make(map[string]*models.ActiveTrade),
		state:       state,
		gateway:     gateway,
		adjudicator: adjudicator,
		sink:        sink,
		metrics:     metrics,
		cfg:         cfg,
		log:         log,
	}
}

// FillPrice walks the book levels on the given side until size is filled
// and returns the volume-weighted price. When depth is insufficient it
// falls back to the best level, and 0 when the side is empty.
func FillPrice(depth models.Depth, direction models.Direction, size float64) float64 {
	levels := depth.Asks // a buy consumes asks
	if direction == models.Short {
		levels = depth.Bids
	}
	if len(levels) == 0 {
		return 0
	}

	remaining := size
	var notional, filled float64
	for _, lvl := range levels {
		take := lvl.Qty
		if take > remaining {
			take = remaining
		}
		notional += take * lvl.Price
		filled += take
		remaining -= take
		if remaining <= 0 {
			break
		}
	}
	if filled < size {
		return levels[0].Price
	}
	return notional / size
}

// LiquidationPrice is entry -/+ margin per unit, where margin is notional
// over leverage.
func LiquidationPrice(entry, size, leverage float64, direction models.Direction) float64 {
	if size <= 0 || leverage <= 0 {
		return 0
	}
	margin := entry * size / leverage
	if direction == models.Long {
		return entry - margin/size
	}
	return entry + margin/size
}

// Open accepts an Execute verdict: sizes the position from the balance
// risk cap, simulates the fill, places the gateway order and starts
// tracking the trade. A gateway failure leaves nothing open and is
// retryable at the next cycle.
func (m *TradeLifecycleManager) Open(ctx context.Context, sig *models.Signal, verdict models.Verdict) (*models.ActiveTrade, error) {
	snap := m.state.Snapshot()

	balance, err := m.gateway.FetchBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch balance: %w", err)
	}

	refPrice := sig.EntryPrice
	if snap.HasMark {
		refPrice = snap.MarkPrice
	}
	if refPrice <= 0 {
		return nil, fmt.Errorf("no reference price for sizing")
	}
	size := balance * m.cfg.RiskCapPercent / 100 / refPrice
	if size <= 0 {
		return nil, fmt.Errorf("computed size is zero (balance %.2f)", balance)
	}

	entry := FillPrice(snap.Depth, sig.Direction, size)
	if entry <= 0 {
		entry = refPrice
	}

	if err := m.gateway.PlaceOrder(ctx, snap.Symbol, sig.Direction, "MARKET", size); err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	trade := &models.ActiveTrade{
		ID:               uuid.NewString(),
		Symbol:           snap.Symbol,
		Direction:        sig.Direction,
		TradeType:        sig.TradeType,
		EntryPrice:       entry,
		Size:             size,
		Leverage:         m.cfg.Leverage,
		LiquidationPrice: LiquidationPrice(entry, size, m.cfg.Leverage, sig.Direction),
		TakeProfit:       sig.TakeProfit,
		StopLoss:         sig.StopLoss,
		Status:           models.StatusOpen,
		OpenedAt:         time.Now().UnixMilli(),
		DryRun:           m.cfg.DryRun,
	}

	m.mu.Lock()
	m.active[trade.ID] = trade
	openCount := len(m.active)
	m.mu.Unlock()

	m.metrics.RecordOpenTrades(openCount)
	m.recordTrade(ctx, *trade)
	m.log.Info("trade opened",
		logger.String("id", trade.ID),
		logger.String("direction", string(trade.Direction)),
		logger.Float64("entry", trade.EntryPrice),
		logger.Float64("size", trade.Size),
		logger.Float64("liquidation", trade.LiquidationPrice),
		logger.String("confidence", fmt.Sprintf("%.2f", verdict.Confidence)))
	return trade, nil
}

// Monitor polls open trades at the configured interval until the context
// is cancelled.
func (m *TradeLifecycleManager) Monitor(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.MonitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckOpenTrades(ctx)
		}
	}
}

// CheckOpenTrades evaluates every open trade against the current mark
// price: liquidation crossing first, then TP/SL from the accepted signal,
// then the optional max-ROI cap. When dynamic exits are enabled a trade
// that survives the static checks is re-submitted to the adjudication
// layer and closed on an Abort verdict.
func (m *TradeLifecycleManager) CheckOpenTrades(ctx context.Context) {
	snap := m.state.Snapshot()
	if !snap.HasMark {
		return
	}
	mark := snap.MarkPrice

	for _, t := range m.openTrades() {
		price, reason := m.exitCondition(t, mark)
		if reason == "" && m.cfg.DynamicExit && m.adjudicator != nil {
			price, reason = m.dynamicExit(ctx, snap, t, mark)
		}
		if reason == "" {
			continue
		}
		if err := m.Close(ctx, t.ID, price, reason); err != nil {
			m.log.Warn("close failed", logger.String("id", t.ID), logger.Error(err))
		}
	}
}

// dynamicExit asks the adjudication layer whether the open position should
// stand. Adjudication failures keep the trade open; the static exits still
// protect it.
func (m *TradeLifecycleManager) dynamicExit(ctx context.Context, snap *market.Snapshot, t *models.ActiveTrade, mark float64) (price float64, reason string) {
	packet := &models.ContextPacket{
		Symbol:    t.Symbol,
		Direction: t.Direction,
		TradeType: t.TradeType,
		OpenTrade: t,
	}
	if len(snap.Candles) > 0 {
		packet.Candle = snap.Candles[0]
	}

	verdict, err := m.adjudicator.Adjudicate(ctx, packet)
	if err != nil {
		m.log.Warn("dynamic exit adjudication failed",
			logger.String("id", t.ID), logger.Error(err))
		m.metrics.RecordError("dynamic_exit")
		return 0, ""
	}
	if verdict.Action == models.ActionAbort {
		return mark, ExitDynamic
	}
	return 0, ""
}

func (m *TradeLifecycleManager) exitCondition(t *models.ActiveTrade, mark float64) (price float64, reason string) {
	long := t.Direction == models.Long

	if (long && mark <= t.LiquidationPrice) || (!long && mark >= t.LiquidationPrice) {
		// forced close settles at the liquidation price, not the mark
		return t.LiquidationPrice, ExitLiquidated
	}
	if t.TakeProfit > 0 && ((long && mark >= t.TakeProfit) || (!long && mark <= t.TakeProfit)) {
		return mark, ExitTakeProfit
	}
	if t.StopLoss > 0 && ((long && mark <= t.StopLoss) || (!long && mark >= t.StopLoss)) {
		return mark, ExitStopLoss
	}
	if m.cfg.MaxROILimit > 0 {
		if margin := t.Margin(); margin > 0 {
			roi := unrealizedPnL(t, mark) / margin * 100
			if roi >= m.cfg.MaxROILimit {
				return mark, ExitMaxROI
			}
		}
	}
	return 0, ""
}

// Close settles a trade at the given price, records realized PnL and
// notifies the gateway. Gateway failures on close are logged only; the
// position bookkeeping must not wedge on a flaky exchange.
func (m *TradeLifecycleManager) Close(ctx context.Context, id string, price float64, reason string) error {
	m.mu.Lock()
	t, ok := m.active[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("trade %s not open", id)
	}
	delete(m.active, id)
	openCount := len(m.active)
	m.mu.Unlock()

	t.Status = models.StatusClosed
	t.RealizedPnL = unrealizedPnL(t, price)
	t.ExitReason = reason
	t.ClosedAt = time.Now().UnixMilli()

	opposite := models.Short
	if t.Direction == models.Short {
		opposite = models.Long
	}
	if err := m.gateway.PlaceOrder(ctx, t.Symbol, opposite, "MARKET", t.Size); err != nil {
		m.log.Warn("gateway close order failed", logger.String("id", id), logger.Error(err))
	}

	m.metrics.RecordOpenTrades(openCount)
	m.recordTrade(ctx, *t)
	m.log.Info("trade closed",
		logger.String("id", id),
		logger.String("reason", reason),
		logger.Float64("price", price),
		logger.Float64("pnl", t.RealizedPnL))
	return nil
}

// CloseAllAtMark force-closes every open trade at the current mark price.
func (m *TradeLifecycleManager) CloseAllAtMark(ctx context.Context, reason string) {
	snap := m.state.Snapshot()
	if !snap.HasMark {
		return
	}
	for _, t := range m.openTrades() {
		if err := m.Close(ctx, t.ID, snap.MarkPrice, reason); err != nil {
			m.log.Warn("close failed", logger.String("id", t.ID), logger.Error(err))
		}
	}
}

// OpenCount returns the number of open trades.
func (m *TradeLifecycleManager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

func (m *TradeLifecycleManager) openTrades() []*models.ActiveTrade {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.ActiveTrade, 0, len(m.active))
	for _, t := range m.active {
		out = append(out, t)
	}
	return out
}

func (m *TradeLifecycleManager) recordTrade(ctx context.Context, t models.ActiveTrade) {
	if m.sink == nil {
		return
	}
	if err := m.sink.RecordTrade(ctx, t); err != nil {
		m.log.Warn("audit trade failed", logger.Error(err))
	}
}

func unrealizedPnL(t *models.ActiveTrade, price float64) float64 {
	if t.Direction == models.Long {
		return (price - t.EntryPrice) * t.Size
	}
	return (t.EntryPrice - price) * t.Size
}
