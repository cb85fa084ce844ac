package repository

import (
	"context"

	"tradingcore/internal/domain/models"
)

// MarketStream is a live market-data connection producing decoded events.
// Reconnect/backoff is the stream's own responsibility.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.FeedEvent, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// AuditSink receives append-only records for filter reports, verdicts and
// trades. Sink failures must never be fatal to the decision path.
type AuditSink interface {
	RecordReport(ctx context.Context, symbol string, report models.FilterReport) error
	RecordVerdict(ctx context.Context, symbol string, verdict models.Verdict, signal *models.Signal) error
	RecordTrade(ctx context.Context, trade models.ActiveTrade) error
	Close() error
}

// Metrics records operational telemetry.
type Metrics interface {
	RecordCycle(result string)
	RecordVerdict(action string)
	RecordError(kind string)
	RecordMarkPrice(symbol string, price float64)
	RecordCVD(symbol string, cvd float64)
	RecordOpenTrades(n int)
	RecordLatency(op string, seconds float64)
}
