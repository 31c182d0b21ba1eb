package strategy

import (
	"errors"
	"fmt"
)

// Weights combine the three sub-scores into the final score.
type Weights struct {
	Technical   float64 `yaml:"technical"`
	Fundamental float64 `yaml:"fundamental"`
	Sentiment   float64 `yaml:"sentiment"`
}

// Filter is the pre-scoring gate. MinMarketCap is carried for configuration
// compatibility but no input supplies a market cap, so it is not applied.
type Filter struct {
	MinVolume     int64   `yaml:"min_volume"`
	MinPrice      float64 `yaml:"min_price"`
	MinMarketCap  float64 `yaml:"min_market_cap"`
	MaxVolatility float64 `yaml:"max_volatility"` // percent
	MinTrades     int64   `yaml:"min_trades"`
}

// FactorWeights weight the technical sub-components. Sentiment is accepted
// and ignored; the sentiment sub-score has its own fixed mix.
type FactorWeights struct {
	Trend     float64 `yaml:"trend"`
	Momentum  float64 `yaml:"momentum"`
	Volume    float64 `yaml:"volume"`
	Sentiment float64 `yaml:"sentiment"`
}

// Config holds every ranking knob.
type Config struct {
	Weights Weights       `yaml:"weights"`
	Filter  Filter        `yaml:"filter"`
	Factors FactorWeights `yaml:"factors"`
}

// DefaultConfig returns the stock ranking configuration.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{Technical: 0.4, Fundamental: 0.3, Sentiment: 0.3},
		Filter: Filter{
			MinVolume:     100000,
			MinPrice:      10,
			MinMarketCap:  1e9,
			MaxVolatility: 50,
			MinTrades:     1000,
		},
		Factors: FactorWeights{Trend: 0.3, Momentum: 0.3, Volume: 0.2, Sentiment: 0.2},
	}
}

// Validate rejects negative weights and thresholds that would divide by zero.
func (c Config) Validate() error {
	for name, w := range map[string]float64{
		"weights.technical":   c.Weights.Technical,
		"weights.fundamental": c.Weights.Fundamental,
		"weights.sentiment":   c.Weights.Sentiment,
		"factors.trend":       c.Factors.Trend,
		"factors.momentum":    c.Factors.Momentum,
		"factors.volume":      c.Factors.Volume,
		"factors.sentiment":   c.Factors.Sentiment,
	} {
		if w < 0 {
			return fmt.Errorf("%s must be >= 0, got %v", name, w)
		}
	}
	if c.Weights.Technical+c.Weights.Fundamental+c.Weights.Sentiment == 0 {
		return errors.New("at least one score weight must be positive")
	}
	if c.Filter.MinVolume <= 0 {
		return fmt.Errorf("filter.min_volume must be > 0, got %d", c.Filter.MinVolume)
	}
	if c.Filter.MinTrades <= 0 {
		return fmt.Errorf("filter.min_trades must be > 0, got %d", c.Filter.MinTrades)
	}
	if c.Filter.MaxVolatility <= 0 {
		return fmt.Errorf("filter.max_volatility must be > 0, got %v", c.Filter.MaxVolatility)
	}
	if c.Filter.MinPrice < 0 {
		return fmt.Errorf("filter.min_price must be >= 0, got %v", c.Filter.MinPrice)
	}
	return nil
}
