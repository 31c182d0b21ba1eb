// Package report builds batch summaries and renders plain-text reports.
package report

import (
	"sort"

	"BhavSentinel/internal/model"
)

// TopN bounds each leaderboard in a Summary.
const TopN = 10

// Summarize builds the batch leaderboards and market breadth from valid bars.
// The input slice is not reordered.
func Summarize(bars []model.PriceBar) model.Summary {
	var (
		stats   model.MarketStats
		gainers []model.PriceBar
		losers  []model.PriceBar
	)
	for _, b := range bars {
		stats.TotalTradedValue += b.TradingData.Value
		stats.TotalTradedVolume += b.TradingData.Volume
		switch r := b.Metrics.DayReturn; {
		case r > 0:
			stats.Advancers++
			gainers = append(gainers, b)
		case r < 0:
			stats.Decliners++
			losers = append(losers, b)
		default:
			stats.Unchanged++
		}
	}

	traded := append([]model.PriceBar(nil), bars...)

	sortBars(gainers, func(a, b model.PriceBar) bool { return a.Metrics.DayReturn > b.Metrics.DayReturn })
	sortBars(losers, func(a, b model.PriceBar) bool { return a.Metrics.DayReturn < b.Metrics.DayReturn })
	sortBars(traded, func(a, b model.PriceBar) bool { return a.TradingData.Value > b.TradingData.Value })

	return model.Summary{
		TopGainers:  head(gainers),
		TopLosers:   head(losers),
		MostTraded:  head(traded),
		MarketStats: stats,
	}
}

// sortBars orders by less, breaking ties by symbol so output is deterministic.
func sortBars(bars []model.PriceBar, less func(a, b model.PriceBar) bool) {
	sort.SliceStable(bars, func(i, j int) bool {
		if less(bars[i], bars[j]) {
			return true
		}
		if less(bars[j], bars[i]) {
			return false
		}
		return bars[i].Symbol < bars[j].Symbol
	})
}

func head(bars []model.PriceBar) []model.PriceBar {
	if len(bars) > TopN {
		bars = bars[:TopN]
	}
	if bars == nil {
		return []model.PriceBar{}
	}
	return bars
}
