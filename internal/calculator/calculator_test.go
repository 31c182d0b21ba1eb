package calculator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BhavSentinel/internal/model"
)

var day0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func makeBars(closes []float64) []model.PriceBar {
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = model.PriceBar{
			Symbol:    "TEST",
			Series:    "EQ",
			Timestamp: day0.AddDate(0, 0, i),
			PriceData: model.PriceData{
				Open: c, High: c + 1, Low: c - 1, Close: c, Last: c, PreviousClose: c,
			},
			TradingData: model.TradingData{Volume: 1000, Value: 1000 * c, Trades: 10},
		}
	}
	return bars
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func validFrom(t *testing.T, s model.Series, first int) {
	t.Helper()
	for i, r := range s {
		assert.Equal(t, i >= first, r.Valid, "index %d", i)
	}
}

func TestCalculateSMA(t *testing.T) {
	v, err := CalculateSMA([]float64{1, 2, 3, 4}, 2)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, v, 1e-9)

	_, err = CalculateSMA([]float64{1}, 2)
	assert.Error(t, err)
	_, err = CalculateSMA([]float64{1}, 0)
	assert.Error(t, err)
}

func TestSMA_Series(t *testing.T) {
	s := SMA([]float64{100, 102, 104, 103, 105}, 3)
	require.Len(t, s, 5)
	validFrom(t, s, 2)
	assert.InDelta(t, 102.0, s[2].Value, 1e-9)
	assert.InDelta(t, 103.0, s[3].Value, 1e-9)
	assert.InDelta(t, 104.0, s[4].Value, 1e-9)
}

func TestSMA_ShortSeriesIsUndefined(t *testing.T) {
	s := SMA([]float64{1, 2}, 5)
	require.Len(t, s, 2)
	assert.False(t, s[0].Valid)
	assert.False(t, s[1].Valid)
}

func TestEMA_SeedAndRecursion(t *testing.T) {
	// multiplier 0.5; seed SMA(1,2,3) = 2, then each step lags the close by one
	s := EMA(ramp(10, 1, 1), 3)
	validFrom(t, s, 2)
	for i := 2; i < 10; i++ {
		assert.InDelta(t, float64(i), s[i].Value, 1e-9, "index %d", i)
	}
}

func TestRSI_MonotonicRiseSaturates(t *testing.T) {
	s := RSI(ramp(30, 10, 1), 14)
	validFrom(t, s, 14)
	for _, r := range s[14:] {
		assert.Equal(t, 100.0, r.Value)
		assert.False(t, math.IsNaN(r.Value))
	}
}

func TestRSI_MonotonicFallIsZero(t *testing.T) {
	s := RSI(ramp(30, 100, -1), 14)
	for _, r := range s[14:] {
		assert.InDelta(t, 0.0, r.Value, 1e-9)
	}
}

func TestRSI_FlatSeriesDoesNotProduceNaN(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 50
	}
	for _, r := range RSI(closes, 14)[14:] {
		assert.Equal(t, 100.0, r.Value)
	}
}

func TestRSI_AlwaysBounded(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/3) + float64(i%7)
	}
	s := RSI(closes, 14)
	for i, r := range s {
		if !r.Valid {
			continue
		}
		assert.False(t, math.IsNaN(r.Value), "index %d", i)
		assert.GreaterOrEqual(t, r.Value, 0.0)
		assert.LessOrEqual(t, r.Value, 100.0)
	}
}

func TestRSI_WilderFirstValue(t *testing.T) {
	// changes: +1, -1, +2 with period 3 → avgGain 1, avgLoss 1/3 → RS 3 → RSI 75
	s := RSI([]float64{10, 11, 10, 12}, 3)
	require.True(t, s[3].Valid)
	assert.InDelta(t, 75.0, s[3].Value, 1e-9)
}

func TestMACD_SignalFromMACDLine(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i) + 3*math.Sin(float64(i))
	}
	m, err := MACD(closes, 12, 26, 9, SignalFromMACD)
	require.NoError(t, err)
	validFrom(t, m.Line, 25)
	validFrom(t, m.Signal, 33)
	validFrom(t, m.Histogram, 33)

	// the first signal value is the SMA of the first nine MACD values
	sum := 0.0
	for i := 25; i <= 33; i++ {
		sum += m.Line[i].Value
	}
	assert.InDelta(t, sum/9, m.Signal[33].Value, 1e-9)
	assert.InDelta(t, m.Line[35].Value-m.Signal[35].Value, m.Histogram[35].Value, 1e-9)
}

func TestMACD_SignalFromCloseLegacy(t *testing.T) {
	closes := ramp(30, 50, 0.5)
	m, err := MACD(closes, 12, 26, 9, SignalFromClose)
	require.NoError(t, err)
	validFrom(t, m.Signal, 8)
	validFrom(t, m.Histogram, 25)
	assert.InDelta(t, EMA(closes, 9)[20].Value, m.Signal[20].Value, 1e-9)
}

func TestMACD_RejectsBadPeriods(t *testing.T) {
	_, err := MACD(ramp(40, 1, 1), 26, 12, 9, SignalFromMACD)
	assert.Error(t, err)
	_, err = MACD(ramp(40, 1, 1), 12, 26, 9, "open")
	assert.Error(t, err)
}

func TestBollinger_PopulationStdDev(t *testing.T) {
	bb := Bollinger([]float64{1, 2, 3, 4, 5}, 5, 2)
	validFrom(t, bb.Middle, 4)
	assert.InDelta(t, 3.0, bb.Middle[4].Value, 1e-9)
	assert.InDelta(t, 3+2*math.Sqrt2, bb.Upper[4].Value, 1e-9)
	assert.InDelta(t, 3-2*math.Sqrt2, bb.Lower[4].Value, 1e-9)
}

func TestBollinger_FlatSeriesCollapses(t *testing.T) {
	bb := Bollinger([]float64{7, 7, 7, 7}, 3, 2)
	for i := 2; i < 4; i++ {
		assert.Equal(t, bb.Middle[i].Value, bb.Upper[i].Value)
		assert.Equal(t, bb.Middle[i].Value, bb.Lower[i].Value)
	}
}

func TestDetectPatterns(t *testing.T) {
	mk := func(o, h, l, c float64) model.PriceData {
		return model.PriceData{Open: o, High: h, Low: l, Close: c}
	}
	tests := []struct {
		name string
		prev model.PriceData
		cur  model.PriceData
		want []string
	}{
		{"bullish engulfing", mk(105, 106, 99, 100), mk(99, 108, 98, 107), []string{PatternBullishEngulfing}},
		{"bearish engulfing", mk(100, 106, 99, 105), mk(106, 107, 98, 99), []string{PatternBearishEngulfing}},
		{"doji", mk(100, 103, 99, 102), mk(100, 104, 96, 100.2), []string{PatternDoji}},
		{"nothing", mk(100, 103, 99, 102), mk(102, 106, 101, 105), nil},
		{"flat bar is not a doji", mk(100, 103, 99, 102), mk(100, 100, 100, 100), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bars := []model.PriceBar{
				{Symbol: "X", Timestamp: day0, PriceData: tt.prev},
				{Symbol: "X", Timestamp: day0.AddDate(0, 0, 1), PriceData: tt.cur},
			}
			var got []string
			for _, p := range DetectPatterns(bars) {
				if p.Date.Equal(bars[1].Timestamp) {
					got = append(got, p.Name)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateSignals_Crossings(t *testing.T) {
	n := 55
	bars := makeBars(ramp(n, 100, 0))
	constant := func(v float64) model.Series {
		s := make(model.Series, n)
		for i := range s {
			s[i] = model.Defined(v)
		}
		return s
	}
	set := &model.IndicatorSet{
		SMA:  map[int]model.Series{20: constant(10), 50: constant(11)},
		RSI:  map[int]model.Series{14: constant(45)},
		MACD: model.MACDSeries{Histogram: constant(-1)},
	}
	// crossings inside the warm-up are ignored
	set.RSI[14][10] = model.Defined(20)
	// every crossing lands on bar 52
	set.RSI[14][52] = model.Defined(25)
	set.MACD.Histogram[52] = model.Defined(0.5)
	set.SMA[20][52] = model.Defined(12)
	// and reverses on bar 53
	set.RSI[14][53] = model.Defined(75)
	set.MACD.Histogram[53] = model.Defined(-0.5)
	set.SMA[20][53] = model.Defined(10)

	signals := GenerateSignals(bars, set)
	require.Len(t, signals, 6)

	at52 := signals[:3]
	for _, s := range at52 {
		assert.Equal(t, model.SignalBuy, s.Type)
		assert.True(t, s.Date.Equal(bars[52].Timestamp))
	}
	assert.Equal(t, model.StrengthMedium, at52[0].Strength)
	assert.Equal(t, model.StrengthStrong, at52[1].Strength)
	assert.Contains(t, at52[2].Reason, "golden cross")

	// bar 53: rising back through 30 is not a signal, through 70 is
	at53 := signals[3:]
	for _, s := range at53 {
		assert.Equal(t, model.SignalSell, s.Type)
		assert.True(t, s.Date.Equal(bars[53].Timestamp))
	}
	assert.Contains(t, at53[2].Reason, "death cross")
}

func TestCompute(t *testing.T) {
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 200 + 15*math.Sin(float64(i)/6)
	}
	bars := makeBars(closes)

	set, err := Compute(bars, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, "TEST", set.Symbol)
	for _, n := range []int{20, 50, 200} {
		assert.Len(t, set.SMA[n], len(bars))
	}
	assert.Len(t, set.EMA[12], len(bars))
	assert.Len(t, set.RSI[14], len(bars))
	assert.Len(t, set.MACD.Histogram, len(bars))
	assert.Len(t, set.Bollinger.Upper, len(bars))
	assert.False(t, set.SMA[200].Last().Valid)
	assert.True(t, set.SMA[50].Last().Valid)
	for _, s := range set.Signals {
		assert.False(t, s.Date.Before(bars[50].Timestamp))
	}

	snap := Snapshot(bars, set, DefaultParams())
	require.NotNil(t, snap)
	assert.Equal(t, closes[79], snap.Close)
	assert.True(t, snap.SMA20.Valid)
	assert.True(t, snap.MACDHistogram.Valid)
	assert.True(t, snap.Momentum.Valid)
	assert.InDelta(t, 1.0, snap.VolumeTrend.Value, 1e-9)
	assert.Equal(t, 10, snap.MomentumBars)
	assert.Equal(t, 20, snap.VolumeTrendBars)
}

func TestCompute_SingleBar(t *testing.T) {
	set, err := Compute(makeBars([]float64{10}), DefaultParams())
	require.NoError(t, err)
	assert.False(t, set.RSI[14][0].Valid)
	assert.Empty(t, set.Signals)
}

func TestCompute_Errors(t *testing.T) {
	_, err := Compute(nil, DefaultParams())
	assert.ErrorIs(t, err, ErrNoBars)

	bars := makeBars([]float64{1, 2, 3})
	bars[2].Timestamp = bars[0].Timestamp
	_, err = Compute(bars, DefaultParams())
	assert.ErrorIs(t, err, ErrUnorderedBars)

	bars = makeBars([]float64{1, 2, 3})
	bars[1].Symbol = "OTHER"
	_, err = Compute(bars, DefaultParams())
	assert.ErrorIs(t, err, ErrMixedSymbols)

	p := DefaultParams()
	p.MACDSignalSource = "open"
	_, err = Compute(makeBars([]float64{1, 2}), p)
	assert.Error(t, err)
}

func TestMomentum(t *testing.T) {
	r := Momentum(ramp(11, 100, 1), 10)
	require.True(t, r.Valid)
	assert.InDelta(t, 10.0, r.Value, 1e-9)
	assert.False(t, Momentum(ramp(5, 100, 1), 10).Valid)
}

func TestRange(t *testing.T) {
	bars := makeBars(ramp(10, 100, 1))

	high, low, err := Range(bars, TradingDaysPerYear)
	require.NoError(t, err)
	assert.Equal(t, 110.0, high)
	assert.Equal(t, 99.0, low)

	high, low, err = Range(bars, 3)
	require.NoError(t, err)
	assert.Equal(t, 110.0, high)
	assert.Equal(t, 106.0, low)

	_, _, err = Range(nil, 3)
	assert.ErrorIs(t, err, ErrNoBars)
}

func TestRangePosition(t *testing.T) {
	pos, err := RangePosition(109, 110, 99)
	require.NoError(t, err)
	assert.InDelta(t, 10.0/11.0, pos, 1e-9)

	pos, err = RangePosition(5, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, 0.5, pos)

	pos, err = RangePosition(200, 110, 99)
	require.NoError(t, err)
	assert.Equal(t, 1.0, pos)

	_, err = RangePosition(1, 1, 2)
	assert.Error(t, err)

	snap := Snapshot(makeBars(ramp(10, 100, 1)), &model.IndicatorSet{}, DefaultParams())
	require.True(t, snap.RangePosition.Valid)
	assert.InDelta(t, 10.0/11.0, snap.RangePosition.Value, 1e-9)
}
