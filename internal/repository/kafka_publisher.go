package repository

import (
	"context"
	"time"

	"tradingcore/internal/domain/models"
	drepo "tradingcore/internal/domain/repository"
	pkgkafka "tradingcore/pkg/kafka"
)

// KafkaDecisionPublisher publishes audit records as JSON events keyed by
// symbol, so per-symbol ordering is preserved by the hash balancer.
type KafkaDecisionPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ drepo.AuditSink = (*KafkaDecisionPublisher)(nil)

func NewKafkaDecisionPublisher(producer *pkgkafka.Producer, topic string) *KafkaDecisionPublisher {
	return &KafkaDecisionPublisher{producer: producer, topic: topic}
}

type decisionEvent struct {
	Kind    string               `json:"kind"`
	Symbol  string               `json:"symbol"`
	TS      int64                `json:"ts"`
	Report  *models.FilterReport `json:"report,omitempty"`
	Verdict *models.Verdict      `json:"verdict,omitempty"`
	Signal  *models.Signal       `json:"signal,omitempty"`
	Trade   *models.ActiveTrade  `json:"trade,omitempty"`
}

func (p *KafkaDecisionPublisher) RecordReport(ctx context.Context, symbol string, report models.FilterReport) error {
	return p.producer.Publish(ctx, p.topic, []byte(symbol), decisionEvent{
		Kind:   "report",
		Symbol: symbol,
		TS:     time.Now().UnixMicro(),
		Report: &report,
	})
}

func (p *KafkaDecisionPublisher) RecordVerdict(ctx context.Context, symbol string, verdict models.Verdict, signal *models.Signal) error {
	return p.producer.Publish(ctx, p.topic, []byte(symbol), decisionEvent{
		Kind:    "verdict",
		Symbol:  symbol,
		TS:      time.Now().UnixMicro(),
		Verdict: &verdict,
		Signal:  signal,
	})
}

func (p *KafkaDecisionPublisher) RecordTrade(ctx context.Context, trade models.ActiveTrade) error {
	return p.producer.Publish(ctx, p.topic, []byte(trade.Symbol), decisionEvent{
		Kind:   "trade",
		Symbol: trade.Symbol,
		TS:     time.Now().UnixMicro(),
		Trade:  &trade,
	})
}

func (p *KafkaDecisionPublisher) Close() error {
	return p.producer.Close()
}
