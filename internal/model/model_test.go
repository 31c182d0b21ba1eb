package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveMetrics(t *testing.T) {
	p := PriceData{Open: 3500, High: 3550, Low: 3480, Close: 3525, Last: 3524, PreviousClose: 3490}
	m := DeriveMetrics(p, TradingData{Volume: 1000000, Value: 3525000000, Trades: 5000})

	assert.InDelta(t, 1.00, m.DayReturn, 0.005)
	assert.InDelta(t, (3550.0-3480.0)/3480.0*100, m.Volatility, 1e-9)
	assert.Equal(t, 3515.0, m.AveragePrice)
	require.NotNil(t, m.VolumeWeightedPrice)
	assert.Equal(t, 3525.0, *m.VolumeWeightedPrice)
}

func TestDeriveMetrics_ZeroVolumeHasNoVWAP(t *testing.T) {
	m := DeriveMetrics(PriceData{High: 10, Low: 9, Close: 10, PreviousClose: 10}, TradingData{Value: 100})
	assert.Nil(t, m.VolumeWeightedPrice)
	assert.Zero(t, m.DayReturn)
}

func TestReadingJSON(t *testing.T) {
	b, err := json.Marshal(Series{{}, Defined(1.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `[null, 1.5]`, string(b))

	var back Series
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, Series{{}, Defined(1.5)}, back)
}

func TestSeriesAccessors(t *testing.T) {
	var empty Series
	assert.False(t, empty.Last().Valid)

	s := Series{{}, Defined(2)}
	assert.Equal(t, 2.0, s.Last().Value)
	assert.False(t, s.At(-1).Valid)
	assert.False(t, s.At(2).Valid)
	assert.False(t, s.At(0).Valid)
}
