package calculator

import (
	"fmt"

	"BhavSentinel/internal/model"
)

// SignalSource selects what the MACD signal line smooths.
type SignalSource string

const (
	// SignalFromMACD smooths the MACD line itself (the usual definition).
	SignalFromMACD SignalSource = "macd"
	// SignalFromClose smooths closing prices, matching the legacy engine.
	SignalFromClose SignalSource = "close"
)

// Valid reports whether s is a known source.
func (s SignalSource) Valid() bool {
	return s == SignalFromMACD || s == SignalFromClose
}

// MACD computes line = EMA(short) - EMA(long), the signal line and the histogram.
func MACD(closes []float64, short, long, signal int, source SignalSource) (model.MACDSeries, error) {
	n := len(closes)
	res := model.MACDSeries{
		Line:      make(model.Series, n),
		Signal:    make(model.Series, n),
		Histogram: make(model.Series, n),
	}
	if short <= 0 || long <= 0 || signal <= 0 {
		return res, fmt.Errorf("macd periods must be positive: %d/%d/%d", short, long, signal)
	}
	if short >= long {
		return res, fmt.Errorf("macd short period %d must be below long period %d", short, long)
	}

	fast := EMA(closes, short)
	slow := EMA(closes, long)
	for i := 0; i < n; i++ {
		if fast[i].Valid && slow[i].Valid {
			res.Line[i] = model.Defined(fast[i].Value - slow[i].Value)
		}
	}

	switch source {
	case SignalFromClose:
		res.Signal = EMA(closes, signal)
	case SignalFromMACD, "":
		res.Signal = emaOf(res.Line, signal)
	default:
		return res, fmt.Errorf("unknown macd signal source %q", source)
	}

	for i := 0; i < n; i++ {
		if res.Line[i].Valid && res.Signal[i].Valid {
			res.Histogram[i] = model.Defined(res.Line[i].Value - res.Signal[i].Value)
		}
	}
	return res, nil
}
