package strategy

import (
	"math"

	"BhavSentinel/internal/model"
)

// Sentiment sub-score mix and the neutral default for absent inputs.
const (
	socialWeight   = 0.3
	newsWeight     = 0.3
	analystWeight  = 0.4
	neutralScore   = 0.5
	volumeCeiling  = 10 // multiples of MinVolume/MinTrades that saturate a ramp
	maxDailyReturn = 10 // percent return that saturates fundamental momentum
)

// ScoreTechnical combines trend, MACD momentum and a volume ramp.
// Readings still inside their warm-up window contribute nothing, so a short
// history scores on volume alone. The result is clamped to [0,1]. Only a
// missing snapshot is an error.
func ScoreTechnical(symbol string, snap *model.TechnicalSnapshot, volume int64, cfg Config) (float64, error) {
	if snap == nil {
		return 0, &ScoringError{Symbol: symbol, Field: "technical"}
	}

	var trend float64
	if snap.SMA20.Valid && snap.SMA50.Valid && snap.SMA20.Value > snap.SMA50.Value {
		trend = 0.6
		if snap.Close > snap.SMA20.Value {
			trend += 0.4
		}
	}

	var momentum float64
	if snap.MACDHistogram.Valid && snap.MACDHistogram.Value > 0 {
		momentum = 0.5
		if snap.MACDSignal.Valid && snap.MACDHistogram.Value > snap.MACDSignal.Value {
			momentum += 0.5
		}
	}

	minVol := float64(cfg.Filter.MinVolume)
	vol := clamp((float64(volume)-minVol)/((volumeCeiling-1)*minVol), 0, 1)

	score := trend*cfg.Factors.Trend + momentum*cfg.Factors.Momentum + vol*cfg.Factors.Volume
	return clamp(score, 0, 1), nil
}

// ScoreFundamental rewards positive returns, volume and trade activity and
// penalizes intraday volatility. Floored at 0.
func ScoreFundamental(bar model.PriceBar, cfg Config) float64 {
	f := cfg.Filter
	momentum := math.Min(math.Max(bar.Metrics.DayReturn, 0)/maxDailyReturn, 1) * 0.3
	volume := math.Min(float64(bar.TradingData.Volume)/(volumeCeiling*float64(f.MinVolume)), 1) * 0.3
	trades := math.Min(float64(bar.TradingData.Trades)/(volumeCeiling*float64(f.MinTrades)), 1) * 0.2
	penalty := bar.Metrics.Volatility / f.MaxVolatility * 0.2

	return clamp(momentum+volume+trades-penalty, 0, 1)
}

// ScoreSentiment averages the provider sub-scores. Missing values are neutral.
func ScoreSentiment(s *model.Sentiment) float64 {
	if s == nil {
		return neutralScore
	}
	score := orNeutral(s.Social)*socialWeight + orNeutral(s.News)*newsWeight + orNeutral(s.Analyst)*analystWeight
	return clamp(score, 0, 1)
}

func orNeutral(v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return neutralScore
	}
	return *v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
