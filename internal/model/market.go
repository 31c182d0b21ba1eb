package model

import "time"

// PriceData holds the session prices of one bar.
type PriceData struct {
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	Last          float64 `json:"last"`
	PreviousClose float64 `json:"previousClose"`
}

// TradingData holds the session activity of one bar.
type TradingData struct {
	Volume int64   `json:"volume"`
	Value  float64 `json:"value"`
	Trades int64   `json:"trades"`
}

// Metrics are derived once at ingestion time and never mutated.
type Metrics struct {
	DayReturn           float64  `json:"dayReturn"`  // percent vs previous close
	Volatility          float64  `json:"volatility"` // intraday range as percent of low
	AveragePrice        float64  `json:"averagePrice"`
	VolumeWeightedPrice *float64 `json:"volumeWeightedPrice"` // nil when volume is 0
}

// PriceBar is one exchange session for one symbol.
type PriceBar struct {
	Symbol      string      `json:"symbol"`
	Series      string      `json:"series"`
	Timestamp   time.Time   `json:"timestamp"`
	PriceData   PriceData   `json:"priceData"`
	TradingData TradingData `json:"tradingData"`
	Metrics     Metrics     `json:"metrics"`
}

// DeriveMetrics computes the per-bar metrics from prices and trading data.
func DeriveMetrics(p PriceData, t TradingData) Metrics {
	m := Metrics{AveragePrice: (p.High + p.Low) / 2}
	if p.PreviousClose != 0 {
		m.DayReturn = (p.Close - p.PreviousClose) / p.PreviousClose * 100
	}
	if p.Low != 0 {
		m.Volatility = (p.High - p.Low) / p.Low * 100
	}
	if t.Volume > 0 {
		vwap := t.Value / float64(t.Volume)
		m.VolumeWeightedPrice = &vwap
	}
	return m
}

// Closes extracts closing prices in series order.
func Closes(bars []PriceBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.PriceData.Close
	}
	return closes
}

// Volumes extracts traded quantities in series order.
func Volumes(bars []PriceBar) []float64 {
	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = float64(b.TradingData.Volume)
	}
	return vols
}
