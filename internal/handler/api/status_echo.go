package api

import (
	"time"

	"tradingcore/internal/market"
	"tradingcore/internal/usecase"
	xhttp "tradingcore/pkg/http"
	"tradingcore/pkg/logger"

	"github.com/labstack/echo/v4"
)

// StatusHandler exposes liveness and a compact operational status.
type StatusHandler struct {
	log       *logger.Logger
	state     *market.MarketState
	lifecycle *usecase.TradeLifecycleManager
	started   time.Time
}

var _ xhttp.Handler = (*StatusHandler)(nil)

func NewStatusHandler(log *logger.Logger, state *market.MarketState, lifecycle *usecase.TradeLifecycleManager) *StatusHandler {
	return &StatusHandler{
		log:       log,
		state:     state,
		lifecycle: lifecycle,
		started:   time.Now(),
	}
}

// RegisterRoutes registers the status endpoints.
func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.health)
	e.GET("/api/status", h.status)
}

func (h *StatusHandler) health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Symbol        string  `json:"symbol"`
	MarkPrice     float64 `json:"mark_price"`
	CandleCount   int     `json:"candle_count"`
	CVD           float64 `json:"cvd"`
	OpenTrades    int     `json:"open_trades"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	LastUpdate    string  `json:"last_update"`
}

func (h *StatusHandler) status(c echo.Context) error {
	snap := h.state.Snapshot()
	return xhttp.SuccessResponse(c, statusResponse{
		Symbol:        snap.Symbol,
		MarkPrice:     snap.MarkPrice,
		CandleCount:   len(snap.Candles),
		CVD:           snap.CVD,
		OpenTrades:    h.lifecycle.OpenCount(),
		UptimeSeconds: time.Since(h.started).Seconds(),
		LastUpdate:    snap.LastUpdate.Format(time.RFC3339),
	})
}
