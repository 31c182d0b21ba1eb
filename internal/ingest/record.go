package ingest

import (
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"BhavSentinel/internal/model"
)

// Bhavcopy column names.
const (
	ColSymbol      = "SYMBOL"
	ColSeries      = "SERIES"
	ColOpen        = "OPEN"
	ColHigh        = "HIGH"
	ColLow         = "LOW"
	ColClose       = "CLOSE"
	ColLast        = "LAST"
	ColPrevClose   = "PREVCLOSE"
	ColVolume      = "TOTTRDQTY"
	ColValue       = "TOTTRDVAL"
	ColTimestamp   = "TIMESTAMP"
	ColTotalTrades = "TOTALTRADES"
)

// RequiredFields lists every column a row must carry.
var RequiredFields = []string{
	ColSymbol, ColSeries, ColOpen, ColHigh, ColLow, ColClose, ColLast,
	ColPrevClose, ColVolume, ColValue, ColTimestamp, ColTotalTrades,
}

var dateLayouts = []string{
	"02-Jan-2006",
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"02 Jan 2006",
	"20060102",
}

// bhavRecord is the strongly typed row checked before any computation.
type bhavRecord struct {
	Symbol        string    `csv:"SYMBOL" validate:"required"`
	Series        string    `csv:"SERIES" validate:"required"`
	Open          float64   `csv:"OPEN" validate:"gt=0"`
	High          float64   `csv:"HIGH" validate:"gt=0"`
	Low           float64   `csv:"LOW" validate:"gt=0"`
	Close         float64   `csv:"CLOSE" validate:"gt=0"`
	Last          float64   `csv:"LAST" validate:"gt=0"`
	PreviousClose float64   `csv:"PREVCLOSE" validate:"gt=0"`
	Volume        int64     `csv:"TOTTRDQTY" validate:"gte=0"`
	Value         float64   `csv:"TOTTRDVAL" validate:"gte=0"`
	Trades        int64     `csv:"TOTALTRADES" validate:"gte=0"`
	Timestamp     time.Time `csv:"TIMESTAMP" validate:"required"`
}

func (r bhavRecord) toBar() model.PriceBar {
	prices := model.PriceData{
		Open:          r.Open,
		High:          r.High,
		Low:           r.Low,
		Close:         r.Close,
		Last:          r.Last,
		PreviousClose: r.PreviousClose,
	}
	trading := model.TradingData{Volume: r.Volume, Value: r.Value, Trades: r.Trades}
	return model.PriceBar{
		Symbol:      r.Symbol,
		Series:      r.Series,
		Timestamp:   r.Timestamp,
		PriceData:   prices,
		TradingData: trading,
		Metrics:     model.DeriveMetrics(prices, trading),
	}
}

// newValidator reports field errors by their bhavcopy column name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("csv"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// rawRecord is one header-keyed row with trimmed values.
type rawRecord map[string]string

func (r rawRecord) missing() (string, bool) {
	for _, f := range RequiredFields {
		if r[f] == "" {
			return f, true
		}
	}
	return "", false
}

func (r rawRecord) float(row int, field string) (float64, *ValidationError) {
	raw := r[field]
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Row: row, Field: field, Value: raw, Err: ErrNotNumeric}
	}
	return v, nil
}

func (r rawRecord) count(row int, field string) (int64, *ValidationError) {
	v, verr := r.float(row, field)
	if verr != nil {
		return 0, verr
	}
	if v != math.Trunc(v) {
		return 0, &ValidationError{Row: row, Field: field, Value: r[field], Err: ErrNotInteger}
	}
	if math.Abs(v) >= math.MaxInt64 {
		return 0, &ValidationError{Row: row, Field: field, Value: r[field], Err: ErrOutOfRange}
	}
	return int64(v), nil
}

func (r rawRecord) date(row int, field string) (time.Time, *ValidationError) {
	raw := normalizeMonth(r[field])
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ValidationError{Row: row, Field: field, Value: r[field], Err: ErrBadDate}
}

// normalizeMonth turns "15-OCT-2026" into "15-Oct-2026" so month names parse.
func normalizeMonth(s string) string {
	b := []byte(strings.ToLower(s))
	for i := range b {
		if isLower(b[i]) && (i == 0 || !isLower(b[i-1])) {
			b[i] -= 'a' - 'A'
		}
	}
	return string(b)
}

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
