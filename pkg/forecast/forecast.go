package forecast

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/xhad/pulse/internal/models"
	"github.com/xhad/pulse/internal/types"
	"gonum.org/v1/gonum/stat"
)

type ForecasterConfig struct {
	MinPoints int
	Alpha     float64 // level smoothing factor
	Beta      float64 // trend smoothing factor
	Window    int     // moving-average smoothing window, 0 disables
}

// Forecaster projects an aggregated sentiment series forward with Holt
// linear exponential smoothing. An OLS trend line over the same series is
// available as a baseline.
type Forecaster struct {
	config ForecasterConfig
}

var _ types.Forecaster = (*Forecaster)(nil)

func NewWithConfig(config ForecasterConfig) Forecaster {
	if config.MinPoints == 0 {
		config.MinPoints = 8
	}
	if config.Alpha == 0 {
		config.Alpha = 0.5
	}
	if config.Beta == 0 {
		config.Beta = 0.3
	}

	return Forecaster{config: config}
}

// Forecast produces horizon bucket-steps of projected mean sentiment.
// The series must be single-source; mixed sources should be aggregated or
// filtered by the caller first.
func (f *Forecaster) Forecast(series []models.SentimentPoint, horizon int) ([]models.ForecastPoint, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("horizon must be positive")
	}
	if len(series) < f.config.MinPoints {
		return nil, fmt.Errorf("series too short: %d points, need at least %d", len(series), f.config.MinPoints)
	}

	dates, values := Regularize(series)
	if f.config.Window > 1 {
		values = MovingAverage(values, f.config.Window)
	}

	level, trend, residualSD := f.fit(values)

	step := bucketStep(dates)
	last := dates[len(dates)-1]

	points := make([]models.ForecastPoint, horizon)
	for h := 1; h <= horizon; h++ {
		value := level + float64(h)*trend
		// Interval widens with the projection distance
		margin := 1.96 * residualSD * math.Sqrt(float64(h))
		points[h-1] = models.ForecastPoint{
			Date:  last.Add(time.Duration(h) * step),
			Value: value,
			Lower: value - margin,
			Upper: value + margin,
		}
	}

	return points, nil
}

// fit runs Holt's linear method and returns the final level and trend along
// with the standard deviation of the one-step-ahead residuals.
func (f *Forecaster) fit(values []float64) (level, trend, residualSD float64) {
	level = values[0]
	trend = 0
	if len(values) > 1 {
		trend = values[1] - values[0]
	}

	var residuals []float64
	for i := 1; i < len(values); i++ {
		predicted := level + trend
		residuals = append(residuals, values[i]-predicted)

		prevLevel := level
		level = f.config.Alpha*values[i] + (1-f.config.Alpha)*(level+trend)
		trend = f.config.Beta*(level-prevLevel) + (1-f.config.Beta)*trend
	}

	residualSD = stat.StdDev(residuals, nil)
	if math.IsNaN(residualSD) {
		residualSD = 0
	}
	return level, trend, residualSD
}

// TrendLine fits an ordinary least squares line over the series and returns
// intercept and slope per bucket step. Used as a sanity baseline next to the
// smoothed forecast.
func (f *Forecaster) TrendLine(series []models.SentimentPoint) (alpha, beta float64, err error) {
	if len(series) < 2 {
		return 0, 0, fmt.Errorf("series too short for a trend line")
	}

	_, values := Regularize(series)
	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}

	alpha, beta = stat.LinearRegression(xs, values, nil, false)
	return alpha, beta, nil
}

// Regularize sorts the series and fills missing calendar buckets by carrying
// the previous mean forward, so smoothing sees an evenly spaced sequence.
func Regularize(series []models.SentimentPoint) ([]time.Time, []float64) {
	sorted := make([]models.SentimentPoint, len(series))
	copy(sorted, series)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	step := rawStep(sorted)

	var dates []time.Time
	var values []float64
	for i, p := range sorted {
		if i > 0 {
			prev := dates[len(dates)-1]
			for gap := prev.Add(step); gap.Before(p.Date); gap = gap.Add(step) {
				dates = append(dates, gap)
				values = append(values, values[len(values)-1])
			}
		}
		dates = append(dates, p.Date)
		values = append(values, p.MeanCompound)
	}

	return dates, values
}

// MovingAverage smooths values with a trailing window.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		n := window
		if i+1 < window {
			n = i + 1
		}
		out[i] = sum / float64(n)
	}
	return out
}

// rawStep infers the bucket size from the smallest positive gap in the
// sorted series, defaulting to one day.
func rawStep(sorted []models.SentimentPoint) time.Duration {
	step := 24 * time.Hour
	found := false
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i].Date.Sub(sorted[i-1].Date)
		if gap <= 0 {
			continue
		}
		if !found || gap < step {
			step = gap
			found = true
		}
	}
	return step
}

func bucketStep(dates []time.Time) time.Duration {
	if len(dates) < 2 {
		return 24 * time.Hour
	}
	return dates[len(dates)-1].Sub(dates[len(dates)-2])
}
