package calculator

import (
	"fmt"

	"BhavSentinel/internal/model"
)

const (
	// signalWarmup is the bar index from which every long-window input is defined.
	signalWarmup = 50

	signalRSIPeriod = 14
	fastSMAPeriod   = 20
	slowSMAPeriod   = 50

	rsiOversold   = 30.0
	rsiOverbought = 70.0
)

// GenerateSignals emits BUY/SELL events from RSI, MACD histogram and SMA20/SMA50 crossings.
func GenerateSignals(bars []model.PriceBar, set *model.IndicatorSet) []model.Signal {
	signals := make([]model.Signal, 0)
	if set == nil {
		return signals
	}
	rsi := set.RSI[signalRSIPeriod]
	hist := set.MACD.Histogram
	fast := set.SMA[fastSMAPeriod]
	slow := set.SMA[slowSMAPeriod]

	for i := signalWarmup; i < len(bars); i++ {
		date := bars[i].Timestamp
		emit := func(t model.SignalType, s model.SignalStrength, reason string) {
			signals = append(signals, model.Signal{Date: date, Type: t, Reason: reason, Strength: s})
		}

		prevRSI, curRSI := rsi.At(i-1), rsi.At(i)
		if crossedBelow(prevRSI, curRSI, rsiOversold) {
			emit(model.SignalBuy, model.StrengthMedium, fmt.Sprintf("RSI crossed below %.0f (%.1f)", rsiOversold, curRSI.Value))
		}
		if crossedAbove(prevRSI, curRSI, rsiOverbought) {
			emit(model.SignalSell, model.StrengthMedium, fmt.Sprintf("RSI crossed above %.0f (%.1f)", rsiOverbought, curRSI.Value))
		}

		prevHist, curHist := hist.At(i-1), hist.At(i)
		if crossedAbove(prevHist, curHist, 0) {
			emit(model.SignalBuy, model.StrengthStrong, "MACD histogram turned positive")
		}
		if crossedBelow(prevHist, curHist, 0) {
			emit(model.SignalSell, model.StrengthStrong, "MACD histogram turned negative")
		}

		prevGap := spread(fast.At(i-1), slow.At(i-1))
		curGap := spread(fast.At(i), slow.At(i))
		if crossedAbove(prevGap, curGap, 0) {
			emit(model.SignalBuy, model.StrengthStrong, "golden cross: SMA20 above SMA50")
		}
		if crossedBelow(prevGap, curGap, 0) {
			emit(model.SignalSell, model.StrengthStrong, "death cross: SMA20 below SMA50")
		}
	}
	return signals
}

func crossedBelow(prev, cur model.Reading, level float64) bool {
	return prev.Valid && cur.Valid && prev.Value >= level && cur.Value < level
}

func crossedAbove(prev, cur model.Reading, level float64) bool {
	return prev.Valid && cur.Valid && prev.Value <= level && cur.Value > level
}

func spread(a, b model.Reading) model.Reading {
	if !a.Valid || !b.Valid {
		return model.Reading{}
	}
	return model.Defined(a.Value - b.Value)
}
