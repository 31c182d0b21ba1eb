package model

import (
	"encoding/json"
	"time"
)

// Reading is one indicator value. Valid is false while the look-back window is unfilled.
type Reading struct {
	Value float64
	Valid bool
}

// MarshalJSON renders undefined readings as null.
func (r Reading) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// UnmarshalJSON accepts a number or null.
func (r *Reading) UnmarshalJSON(b []byte) error {
	var v *float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v == nil {
		*r = Reading{}
		return nil
	}
	*r = Reading{Value: *v, Valid: true}
	return nil
}

// Defined returns a valid reading.
func Defined(v float64) Reading { return Reading{Value: v, Valid: true} }

// Series is index-aligned to the input bars.
type Series []Reading

// Last returns the final reading, or an undefined one for an empty series.
func (s Series) Last() Reading {
	if len(s) == 0 {
		return Reading{}
	}
	return s[len(s)-1]
}

// At returns the reading at i, undefined when out of range.
func (s Series) At(i int) Reading {
	if i < 0 || i >= len(s) {
		return Reading{}
	}
	return s[i]
}

// MACDSeries holds the MACD line, its signal line and the histogram.
type MACDSeries struct {
	Line      Series `json:"line"`
	Signal    Series `json:"signal"`
	Histogram Series `json:"histogram"`
}

// BollingerSeries holds the volatility envelope.
type BollingerSeries struct {
	Upper  Series `json:"upper"`
	Middle Series `json:"middle"`
	Lower  Series `json:"lower"`
}

// Pattern is a detected candlestick formation.
type Pattern struct {
	Date         time.Time `json:"date"`
	Name         string    `json:"name"`
	Significance string    `json:"significance"`
}

// SignalType is BUY or SELL.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
)

// SignalStrength grades a trading signal.
type SignalStrength string

const (
	StrengthMedium SignalStrength = "medium"
	StrengthStrong SignalStrength = "strong"
)

// Signal is a discrete trading event.
type Signal struct {
	Date     time.Time      `json:"date"`
	Type     SignalType     `json:"type"`
	Reason   string         `json:"reason"`
	Strength SignalStrength `json:"strength"`
}

// IndicatorSet is derived from one symbol's series and is not persisted.
type IndicatorSet struct {
	Symbol    string          `json:"symbol"`
	SMA       map[int]Series  `json:"sma"`
	EMA       map[int]Series  `json:"ema"`
	RSI       map[int]Series  `json:"rsi"`
	MACD      MACDSeries      `json:"macd"`
	Bollinger BollingerSeries `json:"bollinger"`
	Patterns  []Pattern       `json:"patterns"`
	Signals   []Signal        `json:"signals"`
}

// TechnicalSnapshot is the last-bar view of an IndicatorSet consumed by ranking.
type TechnicalSnapshot struct {
	Close           float64 `json:"close"`
	SMA20           Reading `json:"sma20"`
	SMA50           Reading `json:"sma50"`
	RSI             Reading `json:"rsi"`
	MACD            Reading `json:"macd"`
	MACDSignal      Reading `json:"macdSignal"`
	MACDHistogram   Reading `json:"macdHistogram"`
	Momentum        Reading `json:"momentum"`      // percent change over MomentumBars
	VolumeTrend     Reading `json:"volumeTrend"`   // volume / SMA(volume) over VolumeTrendBars
	RangePosition   Reading `json:"rangePosition"` // close within the 52-week range, 0..1
	MomentumBars    int     `json:"momentumBars"`
	VolumeTrendBars int     `json:"volumeTrendBars"`
}
