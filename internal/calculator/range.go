package calculator

import (
	"errors"
	"math"

	"BhavSentinel/internal/model"
)

// TradingDaysPerYear is the look-back used for the 52-week range.
const TradingDaysPerYear = 252

// Range scans the most recent lookback bars and returns the highest high and lowest low.
func Range(bars []model.PriceBar, lookback int) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, ErrNoBars
	}
	start := len(bars) - lookback
	if start < 0 || lookback <= 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range bars[start:] {
		high = math.Max(high, b.PriceData.High)
		low = math.Min(low, b.PriceData.Low)
	}
	return high, low, nil
}

// RangePosition returns where current sits within [low, high], clamped to 0..1.
// A flat range is 0.5.
func RangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	return math.Max(0, math.Min(1, pos)), nil
}

func rangeReading(bars []model.PriceBar, lookback int) model.Reading {
	high, low, err := Range(bars, lookback)
	if err != nil {
		return model.Reading{}
	}
	pos, err := RangePosition(bars[len(bars)-1].PriceData.Close, high, low)
	if err != nil {
		return model.Reading{}
	}
	return model.Defined(pos)
}
