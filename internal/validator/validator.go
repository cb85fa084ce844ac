package validator

import (
	"context"
	"strings"

	"tradingcore/internal/domain/models"
	"tradingcore/internal/market"
)

// Validator produces one FilterReport from the current market snapshot.
// Validators never return errors; insufficient data yields a neutral
// SoftFlag report.
type Validator interface {
	Name() string
	Evaluate(ctx context.Context, snap *market.Snapshot) models.FilterReport
}

// Filter names, shared with the strategy router and the audit log.
const (
	FilterTimeOfDay           = "time_of_day"
	FilterDataFreshness       = "data_freshness"
	FilterCompressionTrap     = "compression_trap"
	FilterRetest              = "retest"
	FilterSpoof               = "spoof"
	FilterLowVolumeGuard      = "low_volume_guard"
	FilterCompression         = "compression"
	FilterBreakoutOrigin      = "breakout_origin"
	FilterSentimentDivergence = "sentiment_divergence"
	FilterReversalZone        = "reversal_zone"
)

// rejectionCodes maps filter names to the short codes used in rejection
// summaries.
var rejectionCodes = map[string]string{
	FilterTimeOfDay:           "OUT OF TIME WINDOW",
	FilterDataFreshness:       "STALE DATA",
	FilterCompressionTrap:     "COMPRESSION",
	FilterRetest:              "RETEST WEAK",
	FilterSpoof:               "SPOOFING",
	FilterLowVolumeGuard:      "LOW VOL",
	FilterCompression:         "COMPRESSION",
	FilterBreakoutOrigin:      "NO BREAKOUT",
	FilterSentimentDivergence: "CVD CONFLICT",
	FilterReversalZone:        "OB WALL WEAK/MISSING",
}

// Codes emitted by the orchestrator itself rather than by a filter.
const (
	CodeNoSignal      = "NO SIGNAL GENERATED"
	CodeLowConfidence = "AI CONFIDENCE TOO LOW"
	CodeRiskExceeded  = "RISK LIMIT EXCEEDED"
	CodeAdjudication  = "ADJUDICATION FAILED"
)

// RejectionCode returns the short code for a filter name.
func RejectionCode(filter string) string {
	if code, ok := rejectionCodes[filter]; ok {
		return code
	}
	return strings.ToUpper(filter)
}

// FormatRejection builds the canonical "Rejected - CODE, CODE" summary.
func FormatRejection(codes ...string) string {
	return "Rejected - " + strings.Join(codes, ", ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// neutral is the report returned when a filter lacks the data to judge.
func neutral(name, note string) models.FilterReport {
	return models.FilterReport{
		FilterName: name,
		Score:      0.5,
		Flag:       models.FlagSoftFlag,
		Note:       note,
	}
}
