package validator

import (
	"context"
	"fmt"
	"time"

	"tradingcore/internal/domain/models"
	"tradingcore/internal/market"
)

// TimeOfDayFilter blocks cycles outside the configured trading window.
// The window may wrap past midnight (start > end).
type TimeOfDayFilter struct {
	StartHour int
	EndHour   int
	Now       func() time.Time
}

var _ Validator = (*TimeOfDayFilter)(nil)

func (f *TimeOfDayFilter) Name() string { return FilterTimeOfDay }

func (f *TimeOfDayFilter) Evaluate(_ context.Context, _ *market.Snapshot) models.FilterReport {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	h := now().UTC().Hour()

	inWindow := false
	if f.StartHour <= f.EndHour {
		inWindow = h >= f.StartHour && h < f.EndHour
	} else {
		inWindow = h >= f.StartHour || h < f.EndHour
	}

	if !inWindow {
		return models.FilterReport{
			FilterName: f.Name(),
			Score:      0,
			Flag:       models.FlagBlock,
			Metrics:    map[string]float64{"hour": float64(h)},
			Note:       fmt.Sprintf("hour %d outside window %d-%d", h, f.StartHour, f.EndHour),
		}
	}
	return models.FilterReport{
		FilterName: f.Name(),
		Score:      1,
		Flag:       models.FlagHardPass,
		Metrics:    map[string]float64{"hour": float64(h)},
	}
}

// DataFreshnessFilter blocks when the last state update is older than the
// configured staleness bound. A stalled feed is flagged here rather than
// crashing the loop.
type DataFreshnessFilter struct {
	StaleAfter time.Duration
	Now        func() time.Time
}

var _ Validator = (*DataFreshnessFilter)(nil)

func (f *DataFreshnessFilter) Name() string { return FilterDataFreshness }

func (f *DataFreshnessFilter) Evaluate(_ context.Context, snap *market.Snapshot) models.FilterReport {
	if snap.LastUpdate.IsZero() {
		return neutral(f.Name(), "no data received yet")
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	age := now().Sub(snap.LastUpdate)
	if age > f.StaleAfter {
		return models.FilterReport{
			FilterName: f.Name(),
			Score:      0,
			Flag:       models.FlagBlock,
			Metrics:    map[string]float64{"age_seconds": age.Seconds()},
			Note:       fmt.Sprintf("state stale for %s", age.Truncate(time.Millisecond)),
		}
	}
	score := clamp01(1 - age.Seconds()/f.StaleAfter.Seconds())
	return models.FilterReport{
		FilterName: f.Name(),
		Score:      score,
		Flag:       models.FlagHardPass,
		Metrics:    map[string]float64{"age_seconds": age.Seconds()},
	}
}

// CompressionTrapFilter measures how compressed the recent candle ranges
// are against a longer baseline. A compression score above the threshold
// blocks the cycle: breakouts out of tight coils are treated as trap
// conditions by the primary gate.
type CompressionTrapFilter struct {
	Window    int
	Threshold float64
}

var _ Validator = (*CompressionTrapFilter)(nil)

func (f *CompressionTrapFilter) Name() string { return FilterCompressionTrap }

func (f *CompressionTrapFilter) Evaluate(_ context.Context, snap *market.Snapshot) models.FilterReport {
	score, ok := compressionScore(snap, f.Window)
	if !ok {
		return neutral(f.Name(), "not enough candles")
	}

	report := models.FilterReport{
		FilterName: f.Name(),
		Score:      score,
		Flag:       models.FlagHardPass,
		Metrics:    map[string]float64{"compression": score},
	}
	switch {
	case score > f.Threshold:
		report.Flag = models.FlagBlock
		report.Note = fmt.Sprintf("compression %.2f above %.2f", score, f.Threshold)
	case score > f.Threshold/2:
		report.Flag = models.FlagSoftFlag
	}
	return report
}

// compressionScore returns 1 when the recent window's average range has
// collapsed relative to the longer baseline, 0 when it has not.
func compressionScore(snap *market.Snapshot, window int) (float64, bool) {
	baseline := window * 4
	if window <= 0 || len(snap.Candles) < baseline {
		return 0, false
	}
	var recent, base float64
	for i := 0; i < window; i++ {
		recent += snap.Candles[i].Range()
	}
	recent /= float64(window)
	for i := 0; i < baseline; i++ {
		base += snap.Candles[i].Range()
	}
	base /= float64(baseline)
	if base <= 0 {
		return 0, false
	}
	return clamp01(1 - recent/base), true
}
