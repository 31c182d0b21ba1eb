package calculator

import (
	"math"

	"BhavSentinel/internal/model"
)

// dojiBodyRatio is the largest body, as a fraction of the high-low range, that still counts as a doji.
const dojiBodyRatio = 0.1

const (
	PatternBullishEngulfing = "Bullish Engulfing"
	PatternBearishEngulfing = "Bearish Engulfing"
	PatternDoji             = "Doji"
)

// DetectPatterns scans consecutive bars for engulfing and doji candles.
func DetectPatterns(bars []model.PriceBar) []model.Pattern {
	patterns := make([]model.Pattern, 0)
	for i, b := range bars {
		cur := b.PriceData
		if i > 0 {
			prev := bars[i-1].PriceData
			switch {
			case isBullishEngulfing(prev, cur):
				patterns = append(patterns, model.Pattern{
					Date: b.Timestamp, Name: PatternBullishEngulfing, Significance: "bullish reversal",
				})
			case isBearishEngulfing(prev, cur):
				patterns = append(patterns, model.Pattern{
					Date: b.Timestamp, Name: PatternBearishEngulfing, Significance: "bearish reversal",
				})
			}
		}
		if isDoji(cur) {
			patterns = append(patterns, model.Pattern{
				Date: b.Timestamp, Name: PatternDoji, Significance: "indecision",
			})
		}
	}
	return patterns
}

// isBullishEngulfing: a bearish candle followed by a bullish body that contains it.
func isBullishEngulfing(prev, cur model.PriceData) bool {
	return prev.Close < prev.Open &&
		cur.Close > cur.Open &&
		cur.Open <= prev.Close &&
		cur.Close >= prev.Open
}

// isBearishEngulfing: a bullish candle followed by a bearish body that contains it.
func isBearishEngulfing(prev, cur model.PriceData) bool {
	return prev.Close > prev.Open &&
		cur.Close < cur.Open &&
		cur.Open >= prev.Close &&
		cur.Close <= prev.Open
}

func isDoji(p model.PriceData) bool {
	rng := p.High - p.Low
	if rng <= 0 {
		return false
	}
	return math.Abs(p.Close-p.Open) < dojiBodyRatio*rng
}
