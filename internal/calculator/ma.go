package calculator

import (
	"errors"

	talib "github.com/markcheno/go-talib"

	"BhavSentinel/internal/model"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// SMA returns the trailing simple moving average for every bar.
// Entries before the first full window are undefined.
func SMA(closes []float64, period int) model.Series {
	out := make(model.Series, len(closes))
	if period <= 0 || len(closes) < period {
		return out
	}
	raw := talib.Sma(closes, period)
	for i := period - 1; i < len(raw); i++ {
		out[i] = model.Defined(raw[i])
	}
	return out
}

// EMA returns the exponential moving average for every bar. The first defined
// value is the SMA of the first period closes; later values use 2/(period+1).
func EMA(closes []float64, period int) model.Series {
	out := make(model.Series, len(closes))
	if period <= 0 || len(closes) < period {
		return out
	}
	raw := talib.Ema(closes, period)
	for i := period - 1; i < len(raw); i++ {
		out[i] = model.Defined(raw[i])
	}
	return out
}

// emaOf applies EMA to the defined tail of s. The tail must be contiguous.
func emaOf(s model.Series, period int) model.Series {
	out := make(model.Series, len(s))
	first := -1
	for i, r := range s {
		if r.Valid {
			first = i
			break
		}
	}
	if first < 0 {
		return out
	}
	values := make([]float64, 0, len(s)-first)
	for _, r := range s[first:] {
		values = append(values, r.Value)
	}
	for j, r := range EMA(values, period) {
		out[first+j] = r
	}
	return out
}
