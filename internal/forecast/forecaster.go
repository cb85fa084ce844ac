package forecast

import (
	"math"

	"tradingcore/internal/domain/models"
	"tradingcore/internal/market"
	"tradingcore/internal/validator"
)

const projectionLength = 6

// Weights for the reversal-likelihood blend. These are tuned constants
// carried as configuration, not derived.
type Weights struct {
	Earliness  float64
	Divergence float64
	Imbalance  float64
	Proximity  float64
}

// Forecaster projects short-horizon candle ranges from a least-squares
// trend over recent closes, with half the average true range as the
// envelope, and blends a reversal likelihood in [0,1].
type Forecaster struct {
	window  int
	weights Weights
}

func New(window int, weights Weights) *Forecaster {
	return &Forecaster{window: window, weights: weights}
}

// Forecast builds the projection from the snapshot. With fewer than three
// distinct candles the result is neutral: no projections and a reversal
// likelihood of 0.5.
func (f *Forecaster) Forecast(snap *market.Snapshot) *models.ForecastResult {
	buf := f.buffer(snap)
	if len(buf) < 3 {
		return &models.ForecastResult{ReversalLikelihood: 0.5}
	}

	slope, intercept := leastSquares(buf)
	atr := averageRange(buf)
	n := len(buf)
	lastOpen := buf[n-1].OpenTime

	res := &models.ForecastResult{
		Candles: make([]models.ProjectedCandle, 0, projectionLength),
	}
	for i := 1; i <= projectionLength; i++ {
		center := intercept + slope*float64(n-1+i)
		res.Candles = append(res.Candles, models.ProjectedCandle{
			Time: lastOpen + int64(i)*60_000,
			High: center + atr/2,
			Low:  center - atr/2,
		})
	}

	res.ReversalLikelihood = f.reversalLikelihood(snap, res.Candles, slope, atr)
	return res
}

// buffer returns up to window distinct-OpenTime candles, oldest first.
func (f *Forecaster) buffer(snap *market.Snapshot) []models.Candle {
	seen := make(map[int64]bool)
	var out []models.Candle
	for _, c := range snap.Candles {
		if seen[c.OpenTime] {
			continue
		}
		seen[c.OpenTime] = true
		out = append(out, c)
		if len(out) == f.window {
			break
		}
	}
	// newest-first to oldest-first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (f *Forecaster) reversalLikelihood(
	snap *market.Snapshot,
	projected []models.ProjectedCandle,
	slope, atr float64,
) float64 {
	// (a) how early the extreme of the projection occurs
	extremeIdx := 0
	extreme := 0.0
	if slope >= 0 {
		for i, c := range projected {
			if i == 0 || c.High > extreme {
				extreme = c.High
				extremeIdx = i
			}
		}
	} else {
		for i, c := range projected {
			if i == 0 || c.Low < extreme {
				extreme = c.Low
				extremeIdx = i
			}
		}
	}
	earliness := float64(len(projected)-extremeIdx) / float64(len(projected))

	// (b) sentiment divergence opposing the slope raises the likelihood
	divergence := 0.5
	if score, ok := snap.Score(validator.FilterSentimentDivergence); ok {
		divergence = 1 - score
	}

	// (c) order-book pressure imbalance magnitude
	imbalance := math.Abs(snap.Book.Pressure.Imbalance)

	// (d) proximity of the extreme projection to mark price
	proximity := 0.0
	if snap.HasMark && atr > 0 {
		proximity = clamp01(1 - math.Abs(extreme-snap.MarkPrice)/(2*atr))
	}

	w := f.weights
	return clamp01(w.Earliness*earliness +
		w.Divergence*divergence +
		w.Imbalance*imbalance +
		w.Proximity*proximity)
}

func leastSquares(candles []models.Candle) (slope, intercept float64) {
	n := float64(len(candles))
	var sumX, sumY, sumXY, sumXX float64
	for i, c := range candles {
		x := float64(i)
		sumX += x
		sumY += c.Close
		sumXY += x * c.Close
		sumXX += x * x
	}
	den := n*sumXX - sumX*sumX
	if den == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / den
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

func averageRange(candles []models.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	var sum float64
	for _, c := range candles {
		sum += c.Range()
	}
	return sum / float64(len(candles))
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
