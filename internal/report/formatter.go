package report

import (
	"fmt"
	"strings"
	"time"

	"BhavSentinel/internal/model"
)

// FormatRanking renders the top limit entries of a ranked list. limit <= 0 renders all.
func FormatRanking(results []model.ScoreBreakdown, asOf time.Time, limit int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("BhavSentinel ranking | %s\n\n", asOf.Format("2006-01-02")))
	if len(results) == 0 {
		b.WriteString("No symbols passed the filters.\n")
		return b.String()
	}

	if limit <= 0 || limit > len(results) {
		limit = len(results)
	}
	for _, r := range results[:limit] {
		b.WriteString(fmt.Sprintf("%3d. %-12s %.3f  %s (%.0f%%)\n",
			r.Rank, r.Symbol, r.FinalScore, r.Recommendation.Strength, r.Recommendation.Confidence))
		b.WriteString(fmt.Sprintf("     tech %.3f | fund %.3f | sent %.3f\n",
			r.TechnicalScore, r.FundamentalScore, r.SentimentScore))
		if r.Error != "" {
			b.WriteString(fmt.Sprintf("     error: %s\n", r.Error))
		}
		for _, reason := range r.Recommendation.Reasons {
			b.WriteString(fmt.Sprintf("     - %s\n", reason))
		}
	}
	if rest := len(results) - limit; rest > 0 {
		b.WriteString(fmt.Sprintf("\n... and %d more\n", rest))
	}
	return b.String()
}

// FormatSummary renders ingestion metadata, breadth and leaderboards.
func FormatSummary(res *model.IngestResult) string {
	var b strings.Builder
	md := res.Metadata
	stats := res.Summary.MarketStats

	b.WriteString(fmt.Sprintf("Bhavcopy %s | %s\n", md.FileName, md.ProcessedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Records: %d valid of %d (%d ms)\n", md.ValidRecords, md.TotalRecords, md.ProcessingTimeMs))
	if md.FilteredRecords > 0 {
		b.WriteString(fmt.Sprintf("Other series skipped: %d\n", md.FilteredRecords))
	}
	b.WriteString(fmt.Sprintf("Breadth: %d up / %d down / %d flat\n", stats.Advancers, stats.Decliners, stats.Unchanged))
	b.WriteString(fmt.Sprintf("Traded: %d shares, value %.0f\n", stats.TotalTradedVolume, stats.TotalTradedValue))

	writeBoard(&b, "Top gainers", res.Summary.TopGainers, func(p model.PriceBar) string {
		return fmt.Sprintf("%+.2f%%", p.Metrics.DayReturn)
	})
	writeBoard(&b, "Top losers", res.Summary.TopLosers, func(p model.PriceBar) string {
		return fmt.Sprintf("%+.2f%%", p.Metrics.DayReturn)
	})
	writeBoard(&b, "Most traded", res.Summary.MostTraded, func(p model.PriceBar) string {
		return fmt.Sprintf("%.0f", p.TradingData.Value)
	})
	return b.String()
}

func writeBoard(b *strings.Builder, title string, bars []model.PriceBar, value func(model.PriceBar) string) {
	if len(bars) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("\n%s:\n", title))
	for i, p := range bars {
		b.WriteString(fmt.Sprintf("%3d. %-12s %10.2f  %s\n", i+1, p.Symbol, p.PriceData.Close, value(p)))
	}
}
