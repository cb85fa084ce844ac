package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cyclesTotal   *prometheus.CounterVec
	verdictsTotal *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	markPrice     *prometheus.GaugeVec
	cvd           *prometheus.GaugeVec
	openTrades    prometheus.Gauge
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cyclesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradingcore_decision_cycles_total",
				Help: "Total decision cycles by result",
			},
			[]string{"result"},
		),
		verdictsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradingcore_verdicts_total",
				Help: "Total verdicts by action",
			},
			[]string{"action"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradingcore_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		markPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradingcore_mark_price",
				Help: "Last recorded mark price",
			},
			[]string{"symbol"},
		),
		cvd: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradingcore_cvd",
				Help: "Rolling cumulative volume delta",
			},
			[]string{"symbol"},
		),
		openTrades: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tradingcore_open_trades",
				Help: "Number of currently open trades",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradingcore_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCycle counts one decision cycle by result.
func (r *Recorder) RecordCycle(result string) {
	r.cyclesTotal.WithLabelValues(result).Inc()
}

// RecordVerdict counts one verdict by action.
func (r *Recorder) RecordVerdict(action string) {
	r.verdictsTotal.WithLabelValues(action).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordMarkPrice records the current mark price.
func (r *Recorder) RecordMarkPrice(symbol string, price float64) {
	r.markPrice.WithLabelValues(symbol).Set(price)
}

// RecordCVD records the rolling cumulative volume delta.
func (r *Recorder) RecordCVD(symbol string, cvd float64) {
	r.cvd.WithLabelValues(symbol).Set(cvd)
}

// RecordOpenTrades records the open-trade count.
func (r *Recorder) RecordOpenTrades(n int) {
	r.openTrades.Set(float64(n))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
