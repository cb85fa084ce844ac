package service

import (
	"context"

	"tradingcore/internal/domain/models"
)

// Adjudicator submits a context packet to the external adjudication
// service and returns its verdict. Timeout or a malformed response must be
// surfaced as an error; callers treat that as Abort for the cycle.
type Adjudicator interface {
	Adjudicate(ctx context.Context, packet *models.ContextPacket) (*models.Verdict, error)
}

// Gateway places orders and reads account state on the exchange. Any
// failure is retryable at the next cycle, never fatal.
type Gateway interface {
	PlaceOrder(ctx context.Context, symbol string, side models.Direction, orderType string, qty float64) error
	FetchBalance(ctx context.Context) (float64, error)
}
