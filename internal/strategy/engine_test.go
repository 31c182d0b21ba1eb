package strategy

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BhavSentinel/internal/model"
)

func f(v float64) *float64 { return &v }

func makeBar(symbol string, close, prev float64, volume, trades int64) model.PriceBar {
	p := model.PriceData{Open: prev, High: close * 1.01, Low: close * 0.99, Close: close, Last: close, PreviousClose: prev}
	t := model.TradingData{Volume: volume, Value: close * float64(volume), Trades: trades}
	return model.PriceBar{Symbol: symbol, Series: "EQ", PriceData: p, TradingData: t, Metrics: model.DeriveMetrics(p, t)}
}

func bullish(close float64) *model.TechnicalSnapshot {
	return &model.TechnicalSnapshot{
		Close:         close,
		SMA20:         model.Defined(close * 0.95),
		SMA50:         model.Defined(close * 0.9),
		MACDSignal:    model.Defined(0.5),
		MACDHistogram: model.Defined(1),
	}
}

func bearish(close float64) *model.TechnicalSnapshot {
	return &model.TechnicalSnapshot{
		Close:         close,
		SMA20:         model.Defined(close * 1.05),
		SMA50:         model.Defined(close * 1.1),
		MACDSignal:    model.Defined(0.5),
		MACDHistogram: model.Defined(-1),
	}
}

func TestBucket(t *testing.T) {
	tests := []struct {
		score float64
		want  model.Strength
	}{
		{1.0, model.StrongBuy},
		{0.8, model.StrongBuy},
		{0.79999, model.Buy},
		{0.6, model.Buy},
		{0.59, model.Hold},
		{0.4, model.Hold},
		{0.2, model.Sell},
		{0.19999, model.StrongSell},
		{0, model.StrongSell},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Bucket(tt.score), "score %v", tt.score)
	}
}

func TestQualifies(t *testing.T) {
	e := NewEngine(DefaultConfig(), zerolog.Nop())

	ok, why := e.Qualifies(makeBar("TCS", 3525, 3490, 1000000, 5000))
	assert.True(t, ok)
	assert.Empty(t, why)

	tests := []struct {
		name string
		bar  model.PriceBar
	}{
		{"low volume", makeBar("LOWVOL", 500, 490, 50000, 5000)},
		{"penny stock", makeBar("PENNY", 5, 5, 1000000, 5000)},
		{"few trades", makeBar("THIN", 500, 490, 1000000, 999)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, why := e.Qualifies(tt.bar)
			assert.False(t, ok)
			assert.NotEmpty(t, why)
		})
	}

	volatile := makeBar("WILD", 100, 100, 1000000, 5000)
	volatile.Metrics.Volatility = 50.01
	ok, _ = e.Qualifies(volatile)
	assert.False(t, ok)
}

func TestRank_ExcludesLowVolumeRegardlessOfScore(t *testing.T) {
	e := NewEngine(DefaultConfig(), zerolog.Nop())
	bar := makeBar("LOWVOL", 500, 400, 50000, 50000)
	results := e.Rank([]Candidate{{
		Bar:       bar,
		Technical: bullish(500),
		Sentiment: &model.Sentiment{Social: f(1), News: f(1), Analyst: f(1)},
	}})
	assert.Empty(t, results)
}

func TestRank_OrderingAndDenseRanks(t *testing.T) {
	e := NewEngine(DefaultConfig(), zerolog.Nop())
	strong := &model.Sentiment{Social: f(1), News: f(1), Analyst: f(1)}
	cands := []Candidate{
		{Bar: makeBar("WEAK", 100, 101, 150000, 1500), Technical: bearish(100)},
		{Bar: makeBar("ZETA", 100, 98, 1000000, 10000), Technical: bullish(100), Sentiment: strong},
		{Bar: makeBar("ALPHA", 100, 98, 1000000, 10000), Technical: bullish(100), Sentiment: strong},
		{Bar: makeBar("MID", 100, 99, 500000, 4000), Technical: bullish(100)},
		{Bar: makeBar("SKIP", 100, 99, 10, 4000), Technical: bullish(100)},
	}
	results := e.Rank(cands)
	require.Len(t, results, 4)

	assert.Equal(t, []string{"ALPHA", "ZETA", "MID", "WEAK"}, []string{
		results[0].Symbol, results[1].Symbol, results[2].Symbol, results[3].Symbol,
	})
	for i, r := range results {
		assert.Equal(t, i+1, r.Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].FinalScore, r.FinalScore)
		}
		assert.InDelta(t, r.FinalScore*100, r.Recommendation.Confidence, 1e-9)
		assert.Equal(t, Bucket(r.FinalScore), r.Recommendation.Strength)
	}
}

func TestScoreTechnical(t *testing.T) {
	cfg := DefaultConfig()

	got, err := ScoreTechnical("X", bullish(100), 1000000, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, got, 1e-9)

	got, err = ScoreTechnical("X", bearish(100), cfg.Filter.MinVolume, cfg)
	require.NoError(t, err)
	assert.Zero(t, got)

	// Trend without close above SMA20, half momentum, half the volume ramp.
	snap := &model.TechnicalSnapshot{
		Close:         100,
		SMA20:         model.Defined(101),
		SMA50:         model.Defined(99),
		MACDSignal:    model.Defined(2),
		MACDHistogram: model.Defined(1),
	}
	got, err = ScoreTechnical("X", snap, 550000, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 0.6*0.3+0.5*0.3+0.5*0.2, got, 1e-9)

	cfg.Factors = FactorWeights{Trend: 1, Momentum: 1, Volume: 1}
	got, err = ScoreTechnical("X", bullish(100), 1000000, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestScoreTechnical_MissingSnapshot(t *testing.T) {
	var se *ScoringError
	_, err := ScoreTechnical("TCS", nil, 1, DefaultConfig())
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "TCS", se.Symbol)
	assert.Equal(t, "technical", se.Field)
}

func TestScoreTechnical_WarmUpReadings(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name string
		snap *model.TechnicalSnapshot
		want float64
	}{
		{"nothing defined, volume ramp only", &model.TechnicalSnapshot{Close: 100}, 0.2},
		{"sma50 warming up", func() *model.TechnicalSnapshot {
			s := bullish(100)
			s.SMA50 = model.Reading{}
			return s
		}(), 1*0.3 + 0.2},
		{"signal warming up", func() *model.TechnicalSnapshot {
			s := bullish(100)
			s.MACDSignal = model.Reading{}
			return s
		}(), 1*0.3 + 0.5*0.3 + 0.2},
		{"histogram warming up", func() *model.TechnicalSnapshot {
			s := bullish(100)
			s.MACDHistogram = model.Reading{}
			return s
		}(), 1*0.3 + 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScoreTechnical("TCS", tt.snap, 1000000, cfg)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestScoreFundamental(t *testing.T) {
	cfg := DefaultConfig()
	bar := makeBar("TCS", 3525, 3490, 1000000, 5000)
	bar.Metrics.Volatility = 2

	want := (3525.0-3490.0)/3490.0*100/10*0.3 + 0.3 + 0.5*0.2 - 2.0/50*0.2
	assert.InDelta(t, want, ScoreFundamental(bar, cfg), 1e-9)

	loser := makeBar("DOWN", 90, 100, 100, 10)
	loser.Metrics.Volatility = 50
	assert.Zero(t, ScoreFundamental(loser, cfg))
}

func TestScoreSentiment(t *testing.T) {
	assert.Equal(t, 0.5, ScoreSentiment(nil))
	assert.InDelta(t, 0.5, ScoreSentiment(&model.Sentiment{}), 1e-9)
	assert.InDelta(t, 1.0, ScoreSentiment(&model.Sentiment{Social: f(1), News: f(1), Analyst: f(1)}), 1e-9)
	assert.InDelta(t, 0.3+0.15+0.2, ScoreSentiment(&model.Sentiment{Social: f(1)}), 1e-9)
}

func TestScore_ErrorYieldsZeroedBreakdown(t *testing.T) {
	e := NewEngine(DefaultConfig(), zerolog.Nop())
	good := Candidate{Bar: makeBar("GOOD", 100, 99, 200000, 2000), Technical: bearish(100)}
	bad := Candidate{Bar: makeBar("BAD", 100, 99, 200000, 2000)}

	results := e.Rank([]Candidate{bad, good})
	require.Len(t, results, 2)
	assert.Equal(t, "GOOD", results[0].Symbol)

	last := results[1]
	assert.Equal(t, "BAD", last.Symbol)
	assert.Equal(t, 2, last.Rank)
	assert.Zero(t, last.FinalScore)
	assert.Equal(t, model.StrongSell, last.Recommendation.Strength)
	assert.Contains(t, last.Error, "missing technical")
}

func TestEvaluate_ShortHistoryKeepsOtherFactors(t *testing.T) {
	e := NewEngine(DefaultConfig(), zerolog.Nop())
	bar := makeBar("NEW", 103, 100, 1000000, 20000)

	b, err := e.Evaluate(Candidate{
		Bar:       bar,
		Technical: &model.TechnicalSnapshot{Close: 103},
		Sentiment: &model.Sentiment{Social: f(1), News: f(1), Analyst: f(1)},
	})
	require.NoError(t, err)
	assert.Empty(t, b.Error)
	assert.InDelta(t, 0.2, b.TechnicalScore, 1e-9)
	assert.InDelta(t, ScoreFundamental(bar, DefaultConfig()), b.FundamentalScore, 1e-9)
	assert.Greater(t, b.FundamentalScore, 0.0)
	assert.InDelta(t, 1.0, b.SentimentScore, 1e-9)
	assert.InDelta(t, 0.2*0.4+b.FundamentalScore*0.3+0.3, b.FinalScore, 1e-9)
	assert.NotEqual(t, model.StrongSell, b.Recommendation.Strength)
	assert.Contains(t, b.Recommendation.Reasons, "Positive market sentiment")
}

func TestEvaluate_Reasons(t *testing.T) {
	e := NewEngine(DefaultConfig(), zerolog.Nop())
	snap := bullish(106)
	snap.Momentum = model.Defined(8)
	snap.MomentumBars = 10
	snap.VolumeTrend = model.Defined(2)
	snap.VolumeTrendBars = 20
	snap.RangePosition = model.Defined(0.97)

	b, err := e.Evaluate(Candidate{
		Bar:       makeBar("RALLY", 106, 100, 1000000, 20000),
		Technical: snap,
		Sentiment: &model.Sentiment{Social: f(0.9), News: f(0.9), Analyst: f(0.9)},
	})
	require.NoError(t, err)

	assert.Contains(t, b.Recommendation.Reasons, "Strong technical indicators")
	assert.Contains(t, b.Recommendation.Reasons, "Positive market sentiment")
	assert.Contains(t, b.Recommendation.Reasons, "Strong daily gain of 6.00%")
	assert.Contains(t, b.Recommendation.Reasons, "High trading volume (1000000 shares)")
	assert.Contains(t, b.Recommendation.Reasons, "10-day momentum of +8.00%")
	assert.Contains(t, b.Recommendation.Reasons, "Volume at 2.0x its 20-day average")
	assert.Contains(t, b.Recommendation.Reasons, "Trading near its 52-week high")
	assert.Zero(t, b.Rank)

	snap.MomentumBars = 5
	snap.VolumeTrendBars = 30
	b, err = e.Evaluate(Candidate{Bar: makeBar("RALLY", 106, 100, 1000000, 20000), Technical: snap})
	require.NoError(t, err)
	assert.Contains(t, b.Recommendation.Reasons, "5-day momentum of +8.00%")
	assert.Contains(t, b.Recommendation.Reasons, "Volume at 2.0x its 30-day average")
}

func TestAssignRanks_LeavesInputUntouched(t *testing.T) {
	in := []model.ScoreBreakdown{{Symbol: "B", FinalScore: 0.1}, {Symbol: "A", FinalScore: 0.9}}
	out := AssignRanks(in)
	assert.Equal(t, "A", out[0].Symbol)
	assert.Equal(t, 1, out[0].Rank)
	assert.Zero(t, in[0].Rank)
	assert.NotNil(t, AssignRanks(nil))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Filter.MaxVolatility = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Weights = Weights{}
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Factors.Trend = -1
	assert.Error(t, cfg.Validate())
}
