package validator

import (
	"context"
	"fmt"

	"tradingcore/internal/domain/models"
	"tradingcore/internal/market"
)

// LowVolumeGuard hard-blocks entries when the latest candle volume drops
// below a configured fraction of the recent average.
type LowVolumeGuard struct {
	Window   int
	MinRatio float64
}

var _ Validator = (*LowVolumeGuard)(nil)

func (f *LowVolumeGuard) Name() string { return FilterLowVolumeGuard }

func (f *LowVolumeGuard) Evaluate(_ context.Context, snap *market.Snapshot) models.FilterReport {
	if f.Window <= 0 || len(snap.Candles) < f.Window+1 {
		return neutral(f.Name(), "not enough candles")
	}

	latest := snap.Candles[0].Volume
	var avg float64
	for i := 1; i <= f.Window; i++ {
		avg += snap.Candles[i].Volume
	}
	avg /= float64(f.Window)
	if avg <= 0 {
		return neutral(f.Name(), "zero baseline volume")
	}

	ratio := latest / avg
	report := models.FilterReport{
		FilterName: f.Name(),
		Score:      clamp01(ratio),
		Flag:       models.FlagHardPass,
		Metrics:    map[string]float64{"volume_ratio": ratio},
	}
	switch {
	case ratio < f.MinRatio:
		report.Flag = models.FlagBlock
		report.Note = fmt.Sprintf("volume ratio %.2f below %.2f", ratio, f.MinRatio)
	case ratio < 1:
		report.Flag = models.FlagSoftFlag
	}
	return report
}

// CompressionDetector is the advisory post-signal variant of the
// compression measure. It never blocks; its score feeds the router and
// the forecaster.
type CompressionDetector struct {
	Window int
}

var _ Validator = (*CompressionDetector)(nil)

func (f *CompressionDetector) Name() string { return FilterCompression }

func (f *CompressionDetector) Evaluate(_ context.Context, snap *market.Snapshot) models.FilterReport {
	score, ok := compressionScore(snap, f.Window)
	if !ok {
		return neutral(f.Name(), "not enough candles")
	}
	flag := models.FlagHardPass
	if score > 0.5 {
		flag = models.FlagSoftFlag
	}
	return models.FilterReport{
		FilterName: f.Name(),
		Score:      1 - score,
		Flag:       flag,
		Metrics:    map[string]float64{"compression": score},
	}
}

// SpoofFilter blocks when the order-book wall aggregate is thinning fast
// enough to look like pulled liquidity.
type SpoofFilter struct {
	BlockRate float64
}

var _ Validator = (*SpoofFilter)(nil)

func (f *SpoofFilter) Name() string { return FilterSpoof }

func (f *SpoofFilter) Evaluate(_ context.Context, snap *market.Snapshot) models.FilterReport {
	if len(snap.Depth.Bids) == 0 && len(snap.Depth.Asks) == 0 {
		return neutral(f.Name(), "no depth")
	}

	rate := snap.Book.SpoofThinRate
	report := models.FilterReport{
		FilterName: f.Name(),
		Score:      clamp01(1 - rate/(2*f.BlockRate)),
		Flag:       models.FlagHardPass,
		Metrics:    map[string]float64{"spoof_thin_rate": rate},
	}
	switch {
	case rate >= f.BlockRate:
		report.Flag = models.FlagBlock
		report.Note = fmt.Sprintf("wall aggregate thinned %.1f%%", rate)
	case rate > 0:
		report.Flag = models.FlagSoftFlag
	}
	return report
}
