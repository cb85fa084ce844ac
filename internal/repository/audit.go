package repository

import (
	"context"

	"tradingcore/internal/domain/models"
	drepo "tradingcore/internal/domain/repository"
	"tradingcore/pkg/logger"
)

// CompositeAuditSink fans every record out to all configured sinks. Sink
// errors are logged and swallowed; the decision path never fails on
// audit.
type CompositeAuditSink struct {
	sinks []drepo.AuditSink
	log   *logger.Logger
}

var _ drepo.AuditSink = (*CompositeAuditSink)(nil)

func NewCompositeAuditSink(log *logger.Logger, sinks ...drepo.AuditSink) *CompositeAuditSink {
	return &CompositeAuditSink{sinks: sinks, log: log}
}

func (c *CompositeAuditSink) RecordReport(ctx context.Context, symbol string, report models.FilterReport) error {
	for _, s := range c.sinks {
		if err := s.RecordReport(ctx, symbol, report); err != nil {
			c.log.Warn("audit report sink failed", logger.Error(err))
		}
	}
	return nil
}

func (c *CompositeAuditSink) RecordVerdict(ctx context.Context, symbol string, verdict models.Verdict, signal *models.Signal) error {
	for _, s := range c.sinks {
		if err := s.RecordVerdict(ctx, symbol, verdict, signal); err != nil {
			c.log.Warn("audit verdict sink failed", logger.Error(err))
		}
	}
	return nil
}

func (c *CompositeAuditSink) RecordTrade(ctx context.Context, trade models.ActiveTrade) error {
	for _, s := range c.sinks {
		if err := s.RecordTrade(ctx, trade); err != nil {
			c.log.Warn("audit trade sink failed", logger.Error(err))
		}
	}
	return nil
}

func (c *CompositeAuditSink) Close() error {
	for _, s := range c.sinks {
		if err := s.Close(); err != nil {
			c.log.Warn("audit sink close failed", logger.Error(err))
		}
	}
	return nil
}

// NopAuditSink backs tests and storage-disabled configurations.
type NopAuditSink struct{}

var _ drepo.AuditSink = (*NopAuditSink)(nil)

func (NopAuditSink) RecordReport(context.Context, string, models.FilterReport) error { return nil }
func (NopAuditSink) RecordVerdict(context.Context, string, models.Verdict, *models.Signal) error {
	return nil
}
func (NopAuditSink) RecordTrade(context.Context, models.ActiveTrade) error { return nil }
func (NopAuditSink) Close() error                                          { return nil }
