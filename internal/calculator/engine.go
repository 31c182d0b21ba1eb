package calculator

import (
	"errors"
	"fmt"

	"BhavSentinel/internal/model"
)

var (
	ErrNoBars        = errors.New("indicator input has no bars")
	ErrUnorderedBars = errors.New("indicator input is not strictly ascending by timestamp")
	ErrMixedSymbols  = errors.New("indicator input mixes symbols")
)

// Params selects the indicator windows. Signal generation always uses
// RSI(14) and SMA(20)/SMA(50); Compute adds them when absent.
type Params struct {
	SMAPeriods       []int        `yaml:"sma_periods"`
	EMAPeriods       []int        `yaml:"ema_periods"`
	RSIPeriods       []int        `yaml:"rsi_periods"`
	MACDShort        int          `yaml:"macd_short"`
	MACDLong         int          `yaml:"macd_long"`
	MACDSignal       int          `yaml:"macd_signal"`
	MACDSignalSource SignalSource `yaml:"macd_signal_source"`
	BollingerPeriod  int          `yaml:"bollinger_period"`
	BollingerK       float64      `yaml:"bollinger_k"`
	MomentumPeriod   int          `yaml:"momentum_period"`
	VolumeTrendBars  int          `yaml:"volume_trend_bars"`
	RangeBars        int          `yaml:"range_bars"`
}

// DefaultParams returns the standard windows.
func DefaultParams() Params {
	return Params{
		SMAPeriods:       []int{20, 50, 200},
		EMAPeriods:       []int{12, 26},
		RSIPeriods:       []int{14},
		MACDShort:        12,
		MACDLong:         26,
		MACDSignal:       9,
		MACDSignalSource: SignalFromMACD,
		BollingerPeriod:  20,
		BollingerK:       2,
		MomentumPeriod:   10,
		VolumeTrendBars:  20,
		RangeBars:        TradingDaysPerYear,
	}
}

// Validate checks that every window is usable.
func (p Params) Validate() error {
	for _, group := range [][]int{p.SMAPeriods, p.EMAPeriods, p.RSIPeriods} {
		for _, n := range group {
			if n <= 0 {
				return fmt.Errorf("indicator period must be positive, got %d", n)
			}
		}
	}
	if p.BollingerPeriod <= 0 || p.BollingerK <= 0 {
		return fmt.Errorf("bollinger period and k must be positive")
	}
	if p.MomentumPeriod <= 0 || p.VolumeTrendBars <= 0 || p.RangeBars <= 0 {
		return fmt.Errorf("momentum, volume trend and range windows must be positive")
	}
	if !p.MACDSignalSource.Valid() {
		return fmt.Errorf("unknown macd signal source %q", p.MACDSignalSource)
	}
	if p.MACDShort <= 0 || p.MACDLong <= p.MACDShort || p.MACDSignal <= 0 {
		return fmt.Errorf("invalid macd periods %d/%d/%d", p.MACDShort, p.MACDLong, p.MACDSignal)
	}
	return nil
}

// Compute derives the full IndicatorSet for one symbol's ascending series.
func Compute(bars []model.PriceBar, p Params) (*model.IndicatorSet, error) {
	if len(bars) == 0 {
		return nil, ErrNoBars
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := checkSeries(bars); err != nil {
		return nil, err
	}

	closes := model.Closes(bars)
	set := &model.IndicatorSet{
		Symbol: bars[0].Symbol,
		SMA:    make(map[int]model.Series),
		EMA:    make(map[int]model.Series),
		RSI:    make(map[int]model.Series),
	}
	for _, n := range withRequired(p.SMAPeriods, fastSMAPeriod, slowSMAPeriod) {
		set.SMA[n] = SMA(closes, n)
	}
	for _, n := range p.EMAPeriods {
		set.EMA[n] = EMA(closes, n)
	}
	for _, n := range withRequired(p.RSIPeriods, signalRSIPeriod) {
		set.RSI[n] = RSI(closes, n)
	}

	macd, err := MACD(closes, p.MACDShort, p.MACDLong, p.MACDSignal, p.MACDSignalSource)
	if err != nil {
		return nil, err
	}
	set.MACD = macd
	set.Bollinger = Bollinger(closes, p.BollingerPeriod, p.BollingerK)
	set.Patterns = DetectPatterns(bars)
	set.Signals = GenerateSignals(bars, set)
	return set, nil
}

// Snapshot reduces an IndicatorSet to the last-bar readings used by ranking.
func Snapshot(bars []model.PriceBar, set *model.IndicatorSet, p Params) *model.TechnicalSnapshot {
	if len(bars) == 0 || set == nil {
		return nil
	}
	closes := model.Closes(bars)
	return &model.TechnicalSnapshot{
		Close:           closes[len(closes)-1],
		SMA20:           set.SMA[fastSMAPeriod].Last(),
		SMA50:           set.SMA[slowSMAPeriod].Last(),
		RSI:             set.RSI[signalRSIPeriod].Last(),
		MACD:            set.MACD.Line.Last(),
		MACDSignal:      set.MACD.Signal.Last(),
		MACDHistogram:   set.MACD.Histogram.Last(),
		Momentum:        Momentum(closes, p.MomentumPeriod),
		VolumeTrend:     VolumeTrend(model.Volumes(bars), p.VolumeTrendBars),
		RangePosition:   rangeReading(bars, p.RangeBars),
		MomentumBars:    p.MomentumPeriod,
		VolumeTrendBars: p.VolumeTrendBars,
	}
}

func checkSeries(bars []model.PriceBar) error {
	for i := 1; i < len(bars); i++ {
		if bars[i].Symbol != bars[0].Symbol {
			return fmt.Errorf("%w: %s and %s", ErrMixedSymbols, bars[0].Symbol, bars[i].Symbol)
		}
		if !bars[i].Timestamp.After(bars[i-1].Timestamp) {
			return fmt.Errorf("%w at index %d", ErrUnorderedBars, i)
		}
	}
	return nil
}

func withRequired(periods []int, required ...int) []int {
	out := append([]int(nil), periods...)
	for _, r := range required {
		found := false
		for _, n := range out {
			if n == r {
				found = true
				break
			}
		}
		if !found {
			out = append(out, r)
		}
	}
	return out
}
