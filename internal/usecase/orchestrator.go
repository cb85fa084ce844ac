package usecase

import (
	"context"
	"time"

	"tradingcore/internal/domain/models"
	drepo "tradingcore/internal/domain/repository"
	dservice "tradingcore/internal/domain/service"
	"tradingcore/internal/market"
	"tradingcore/internal/validator"
	"tradingcore/pkg/logger"
)

// ValidatorGate runs the two validator stages.
type ValidatorGate interface {
	RunPrimary(ctx context.Context, snap *market.Snapshot) validator.StackResult
	RunPostSignal(ctx context.Context, snap *market.Snapshot) validator.StackResult
}

// SignalSource produces at most one candidate signal per cycle.
type SignalSource interface {
	Generate(snap *market.Snapshot) *models.Signal
}

// ForecastSource projects the short-horizon price range.
type ForecastSource interface {
	Forecast(snap *market.Snapshot) *models.ForecastResult
}

// RiskAssessor gates a prospective entry against the liquidation budget.
type RiskAssessor interface {
	Assess(entry float64, direction models.Direction, fc *models.ForecastResult, snap *market.Snapshot) (ok bool, estimate float64, reason string)
}

// Outcome is the full result of one decision cycle.
type Outcome struct {
	Verdict      models.Verdict
	Signal       *models.Signal
	Forecast     *models.ForecastResult
	Reports      []models.FilterReport
	RiskEstimate float64
	Rejection    string // non-empty when the cycle was rejected locally
}

// DecisionOrchestrator sequences one decision cycle: primary gate,
// signal, post-signal gate, forecast, external adjudication, confidence
// threshold, risk gate.
type DecisionOrchestrator struct {
	gate        ValidatorGate
	signals     SignalSource
	forecaster  ForecastSource
	risk        RiskAssessor
	adjudicator dservice.Adjudicator
	sink        drepo.AuditSink
	metrics     drepo.Metrics
	log         *logger.Logger

	confidenceThreshold float64
}

func NewDecisionOrchestrator(
	gate ValidatorGate,
	signals SignalSource,
	forecaster ForecastSource,
	risk RiskAssessor,
	adjudicator dservice.Adjudicator,
	sink drepo.AuditSink,
	metrics drepo.Metrics,
	confidenceThreshold float64,
	log *logger.Logger,
) *DecisionOrchestrator {
	return &DecisionOrchestrator{
		gate:                gate,
		signals:             signals,
		forecaster:          forecaster,
		risk:                risk,
		adjudicator:         adjudicator,
		sink:                sink,
		metrics:             metrics,
		confidenceThreshold: confidenceThreshold,
		log:                 log,
	}
}

// Decide runs one cycle over the snapshot. Every outcome, accepted or
// rejected, is recorded to the audit sink with its reasoning.
func (o *DecisionOrchestrator) Decide(ctx context.Context, snap *market.Snapshot) *Outcome {
	start := time.Now()
	defer func() {
		o.metrics.RecordLatency("decision_cycle", time.Since(start).Seconds())
	}()

	primary := o.gate.RunPrimary(ctx, snap)
	out := &Outcome{Reports: primary.Reports}
	if primary.Blocked() {
		out.Rejection = primary.RejectionReason()
		return o.finish(ctx, snap, out, models.ActionAbort, out.Rejection)
	}

	sig := o.signals.Generate(snap)
	if sig == nil {
		out.Rejection = validator.FormatRejection(validator.CodeNoSignal)
		return o.finish(ctx, snap, out, models.ActionHold, out.Rejection)
	}
	out.Signal = sig

	post := o.gate.RunPostSignal(ctx, snap)
	out.Reports = append(out.Reports, post.Reports...)
	if post.Blocked() {
		out.Rejection = post.RejectionReason()
		return o.finish(ctx, snap, out, models.ActionAbort, out.Rejection)
	}

	out.Forecast = o.forecaster.Forecast(snap)

	verdict, err := o.adjudicator.Adjudicate(ctx, o.buildPacket(snap, sig, out))
	if err != nil {
		o.log.Warn("adjudication failed, aborting cycle", logger.Error(err))
		o.metrics.RecordError("adjudication")
		out.Rejection = validator.FormatRejection(validator.CodeAdjudication)
		return o.finish(ctx, snap, out, models.ActionAbort, out.Rejection)
	}

	if verdict.Confidence < o.confidenceThreshold {
		out.Rejection = validator.FormatRejection(validator.CodeLowConfidence)
		return o.finish(ctx, snap, out, models.ActionAbort, out.Rejection)
	}

	if verdict.Action == models.ActionExecute {
		entry := snap.MarkPrice
		if !snap.HasMark && snap.LiveCandle != nil {
			entry = snap.LiveCandle.Close
		}
		ok, estimate, reason := o.risk.Assess(entry, sig.Direction, out.Forecast, snap)
		out.RiskEstimate = estimate
		if !ok {
			o.log.Info("risk gate downgraded verdict", logger.String("reason", reason))
			out.Rejection = validator.FormatRejection(validator.CodeRiskExceeded)
			return o.finish(ctx, snap, out, models.ActionAbort, reason)
		}
	}

	out.Verdict = *verdict
	o.recordVerdict(ctx, snap, out)
	o.metrics.RecordVerdict(string(out.Verdict.Action))
	return out
}

func (o *DecisionOrchestrator) buildPacket(snap *market.Snapshot, sig *models.Signal, out *Outcome) *models.ContextPacket {
	var candle models.Candle
	if len(snap.Candles) > 0 {
		candle = snap.Candles[0]
	}
	scores := make(map[string]float64, len(out.Reports))
	for _, r := range out.Reports {
		scores[r.FilterName] = r.Score
	}
	reversal := 0.0
	if out.Forecast != nil {
		reversal = out.Forecast.ReversalLikelihood
	}
	return &models.ContextPacket{
		Symbol:          snap.Symbol,
		Candle:          candle,
		Direction:       sig.Direction,
		TradeType:       sig.TradeType,
		ReversalScore:   reversal,
		ValidatorScores: scores,
	}
}

func (o *DecisionOrchestrator) finish(ctx context.Context, snap *market.Snapshot, out *Outcome, action models.Action, reasoning string) *Outcome {
	out.Verdict = models.Verdict{Action: action, Reasoning: reasoning}
	o.recordVerdict(ctx, snap, out)
	o.metrics.RecordVerdict(string(action))
	return out
}

func (o *DecisionOrchestrator) recordVerdict(ctx context.Context, snap *market.Snapshot, out *Outcome) {
	if o.sink == nil {
		return
	}
	if err := o.sink.RecordVerdict(ctx, snap.Symbol, out.Verdict, out.Signal); err != nil {
		o.log.Warn("audit verdict failed", logger.Error(err))
	}
}
