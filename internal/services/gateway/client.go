package gateway

import (
	"context"
	"fmt"
	"time"

	"tradingcore/internal/domain/models"
	"tradingcore/internal/domain/service"
	xhttp "tradingcore/pkg/http"
	"tradingcore/pkg/logger"
)

// HTTPGateway talks to the exchange order gateway. In dry-run mode orders
// are short-circuited with simulated fills and a fixed simulated balance,
// so the rest of the pipeline behaves identically.
type HTTPGateway struct {
	url           string
	apiKey        string
	client        *xhttp.Client
	dryRun        bool
	dryRunBalance float64
	log           *logger.Logger
}

var _ service.Gateway = (*HTTPGateway)(nil)

func New(url, apiKey string, timeout time.Duration, dryRun bool, dryRunBalance float64, log *logger.Logger) *HTTPGateway {
	return &HTTPGateway{
		url:           url,
		apiKey:        apiKey,
		client:        xhttp.NewClient(xhttp.WithTimeout(timeout)),
		dryRun:        dryRun,
		dryRunBalance: dryRunBalance,
		log:           log,
	}
}

type orderRequest struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Type     string  `json:"type"`
	Quantity float64 `json:"quantity"`
}

// PlaceOrder submits an order. Failures are returned for the caller to
// retry at the next cycle.
func (g *HTTPGateway) PlaceOrder(ctx context.Context, symbol string, side models.Direction, orderType string, qty float64) error {
	if g.dryRun {
		g.log.Info("dry-run order",
			logger.String("symbol", symbol),
			logger.String("side", string(side)),
			logger.Float64("qty", qty))
		return nil
	}

	err := g.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     g.url + "/order",
		Headers: g.headers(),
		Body: orderRequest{
			Symbol:   symbol,
			Side:     string(side),
			Type:     orderType,
			Quantity: qty,
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("place order: %w", err)
	}
	return nil
}

type balanceResponse struct {
	Balance float64 `json:"balance"`
}

// FetchBalance reads the account balance.
func (g *HTTPGateway) FetchBalance(ctx context.Context) (float64, error) {
	if g.dryRun {
		return g.dryRunBalance, nil
	}

	var resp balanceResponse
	err := g.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     g.url + "/balance",
		Headers: g.headers(),
	}, &resp)
	if err != nil {
		return 0, fmt.Errorf("fetch balance: %w", err)
	}
	return resp.Balance, nil
}

func (g *HTTPGateway) headers() map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	if g.apiKey != "" {
		h["Authorization"] = "Bearer " + g.apiKey
	}
	return h
}
