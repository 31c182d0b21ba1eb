package calculator

import "BhavSentinel/internal/model"

// Momentum is the percent change of the last close against the close period bars earlier.
func Momentum(closes []float64, period int) model.Reading {
	n := len(closes)
	if period <= 0 || n <= period {
		return model.Reading{}
	}
	base := closes[n-1-period]
	if base == 0 {
		return model.Reading{}
	}
	return model.Defined((closes[n-1] - base) / base * 100)
}

// VolumeTrend is the last volume relative to its trailing average.
func VolumeTrend(volumes []float64, period int) model.Reading {
	avg, err := CalculateSMA(volumes, period)
	if err != nil || avg == 0 {
		return model.Reading{}
	}
	return model.Defined(volumes[len(volumes)-1] / avg)
}
