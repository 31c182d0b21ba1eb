// Package strategy scores symbols on technical, fundamental and sentiment
// factors and turns the scores into a ranked recommendation list.
package strategy

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"BhavSentinel/internal/model"
)

// ScoringError reports a scoring input that was unexpectedly absent.
type ScoringError struct {
	Symbol string
	Field  string
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("score %s: missing %s", e.Symbol, e.Field)
}

// Candidate is one symbol's scoring input.
type Candidate struct {
	Bar       model.PriceBar
	Technical *model.TechnicalSnapshot
	Sentiment *model.Sentiment // nil is neutral
}

// Tiers maps a final score to a recommendation, highest threshold first.
var Tiers = []struct {
	MinScore float64
	Strength model.Strength
}{
	{0.8, model.StrongBuy},
	{0.6, model.Buy},
	{0.4, model.Hold},
	{0.2, model.Sell},
}

// Bucket returns the recommendation strength for a final score.
func Bucket(finalScore float64) model.Strength {
	for _, t := range Tiers {
		if finalScore >= t.MinScore {
			return t.Strength
		}
	}
	return model.StrongSell
}

// Engine ranks candidates. It is stateless between calls and safe for concurrent use.
type Engine struct {
	cfg Config
	log zerolog.Logger
}

// NewEngine creates an Engine with cfg.
func NewEngine(cfg Config, log zerolog.Logger) *Engine {
	return &Engine{cfg: cfg, log: log.With().Str("component", "strategy").Logger()}
}

// Qualifies applies the pre-scoring gate. The reason is empty when the bar passes.
func (e *Engine) Qualifies(bar model.PriceBar) (bool, string) {
	f := e.cfg.Filter
	switch {
	case bar.TradingData.Volume < f.MinVolume:
		return false, fmt.Sprintf("volume %d below %d", bar.TradingData.Volume, f.MinVolume)
	case bar.PriceData.Close < f.MinPrice:
		return false, fmt.Sprintf("price %.2f below %.2f", bar.PriceData.Close, f.MinPrice)
	case bar.Metrics.Volatility > f.MaxVolatility:
		return false, fmt.Sprintf("volatility %.2f%% above %.2f%%", bar.Metrics.Volatility, f.MaxVolatility)
	case bar.TradingData.Trades < f.MinTrades:
		return false, fmt.Sprintf("trades %d below %d", bar.TradingData.Trades, f.MinTrades)
	}
	return true, ""
}

// Evaluate scores one candidate. The breakdown is unranked.
func (e *Engine) Evaluate(c Candidate) (model.ScoreBreakdown, error) {
	tech, err := ScoreTechnical(c.Bar.Symbol, c.Technical, c.Bar.TradingData.Volume, e.cfg)
	if err != nil {
		return model.ScoreBreakdown{}, err
	}
	fund := ScoreFundamental(c.Bar, e.cfg)
	sent := ScoreSentiment(c.Sentiment)

	w := e.cfg.Weights
	final := tech*w.Technical + fund*w.Fundamental + sent*w.Sentiment

	b := model.ScoreBreakdown{
		Symbol:           c.Bar.Symbol,
		TechnicalScore:   tech,
		FundamentalScore: fund,
		SentimentScore:   sent,
		FinalScore:       final,
	}
	b.Recommendation = model.Recommendation{
		Strength:   Bucket(final),
		Confidence: final * 100,
		Reasons:    e.reasons(b, c),
	}
	return b, nil
}

// Score evaluates a candidate and never fails: a scoring error is logged and
// yields a zeroed breakdown that sinks to the bottom of the ranking.
func (e *Engine) Score(c Candidate) model.ScoreBreakdown {
	b, err := e.Evaluate(c)
	if err == nil {
		return b
	}
	e.log.Warn().Err(err).Str("symbol", c.Bar.Symbol).Msg("scoring failed")
	return model.ScoreBreakdown{
		Symbol: c.Bar.Symbol,
		Recommendation: model.Recommendation{
			Strength: Bucket(0),
			Reasons:  []string{},
		},
		Error: err.Error(),
	}
}

// Rank filters, scores and orders candidates.
func (e *Engine) Rank(candidates []Candidate) []model.ScoreBreakdown {
	results := make([]model.ScoreBreakdown, 0, len(candidates))
	for _, c := range candidates {
		if ok, why := e.Qualifies(c.Bar); !ok {
			e.log.Debug().Str("symbol", c.Bar.Symbol).Str("reason", why).Msg("filtered out")
			continue
		}
		results = append(results, e.Score(c))
	}
	return AssignRanks(results)
}

// AssignRanks sorts by final score descending, symbol ascending on ties, and
// numbers the result 1..N. The input slice is left untouched.
func AssignRanks(results []model.ScoreBreakdown) []model.ScoreBreakdown {
	ranked := append([]model.ScoreBreakdown(nil), results...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FinalScore != ranked[j].FinalScore {
			return ranked[i].FinalScore > ranked[j].FinalScore
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	if ranked == nil {
		ranked = []model.ScoreBreakdown{}
	}
	return ranked
}

func (e *Engine) reasons(b model.ScoreBreakdown, c Candidate) []string {
	reasons := []string{}
	if b.TechnicalScore > 0.7 {
		reasons = append(reasons, "Strong technical indicators")
	}
	if b.FundamentalScore > 0.7 {
		reasons = append(reasons, "Solid trading fundamentals")
	}
	if b.SentimentScore > 0.7 {
		reasons = append(reasons, "Positive market sentiment")
	}
	if r := c.Bar.Metrics.DayReturn; r > 5 {
		reasons = append(reasons, fmt.Sprintf("Strong daily gain of %.2f%%", r))
	}
	if v := c.Bar.TradingData.Volume; v > 2*e.cfg.Filter.MinVolume {
		reasons = append(reasons, fmt.Sprintf("High trading volume (%d shares)", v))
	}
	if snap := c.Technical; snap != nil {
		if snap.Momentum.Valid && snap.Momentum.Value > 5 {
			reasons = append(reasons, fmt.Sprintf("%d-day momentum of %+.2f%%", snap.MomentumBars, snap.Momentum.Value))
		}
		if snap.VolumeTrend.Valid && snap.VolumeTrend.Value > 1.5 {
			reasons = append(reasons, fmt.Sprintf("Volume at %.1fx its %d-day average", snap.VolumeTrend.Value, snap.VolumeTrendBars))
		}
		if snap.RangePosition.Valid && snap.RangePosition.Value >= 0.95 {
			reasons = append(reasons, "Trading near its 52-week high")
		}
	}
	return reasons
}
