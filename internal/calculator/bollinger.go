package calculator

import (
	"gonum.org/v1/gonum/stat"

	"BhavSentinel/internal/model"
)

// Bollinger computes middle = SMA(period) and upper/lower = middle ± k·σ,
// where σ is the population standard deviation of the window.
func Bollinger(closes []float64, period int, k float64) model.BollingerSeries {
	n := len(closes)
	bb := model.BollingerSeries{
		Upper:  make(model.Series, n),
		Middle: make(model.Series, n),
		Lower:  make(model.Series, n),
	}
	if period <= 0 || n < period {
		return bb
	}
	for i := period - 1; i < n; i++ {
		mean, std := stat.PopMeanStdDev(closes[i-period+1:i+1], nil)
		bb.Middle[i] = model.Defined(mean)
		bb.Upper[i] = model.Defined(mean + k*std)
		bb.Lower[i] = model.Defined(mean - k*std)
	}
	return bb
}
