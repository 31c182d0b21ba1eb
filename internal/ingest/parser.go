package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"BhavSentinel/internal/model"
	"BhavSentinel/internal/report"
)

// Option configures a Parser.
type Option func(*Parser)

// WithRejectHook is called once per rejected row.
func WithRejectHook(fn func(*ValidationError)) Option {
	return func(p *Parser) { p.onReject = fn }
}

// WithClock overrides the processing timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// DefaultSeries is the series kept when no allow-list is given.
var DefaultSeries = []string{"EQ"}

// AllSeries passed to WithSeries keeps every series.
const AllSeries = "*"

// WithSeries restricts the parser to the listed series (case-insensitive).
// Other valid rows are counted as filtered. AllSeries or an empty list keeps all.
func WithSeries(series ...string) Option {
	return func(p *Parser) { p.series = seriesSet(series) }
}

func seriesSet(series []string) map[string]bool {
	set := make(map[string]bool, len(series))
	for _, s := range series {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == AllSeries {
			return nil
		}
		if s != "" {
			set[s] = true
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// Parser turns a bhavcopy CSV into validated price bars.
type Parser struct {
	log      zerolog.Logger
	validate *validator.Validate
	now      func() time.Time
	onReject func(*ValidationError)
	series   map[string]bool // nil keeps every series
}

// NewParser builds a Parser. It holds no per-batch state and may be reused.
func NewParser(log zerolog.Logger, opts ...Option) *Parser {
	p := &Parser{
		log:      log.With().Str("component", "ingest").Logger(),
		validate: newValidator(),
		now:      time.Now,
		series:   seriesSet(DefaultSeries),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile opens path and parses it.
func (p *Parser) ParseFile(ctx context.Context, path string) (*model.IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &StructuralError{Source: path, Err: err}
	}
	defer f.Close()
	return p.Parse(ctx, f, filepath.Base(path))
}

// Parse streams r once. Bad rows are logged and skipped; only unreadable
// input fails the batch, as a *StructuralError. Rows outside the series
// allow-list are dropped and counted as filtered. A symbol may appear once
// per batch; later rows for it are rejected as duplicates.
func (p *Parser) Parse(ctx context.Context, r io.Reader, fileName string) (*model.IngestResult, error) {
	start := p.now()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &StructuralError{Source: fileName, Err: errors.New("empty input")}
	}
	if err != nil {
		return nil, &StructuralError{Source: fileName, Err: fmt.Errorf("header: %w", err)}
	}
	columns := indexHeader(header)
	if _, ok := columns[ColSymbol]; !ok {
		return nil, &StructuralError{Source: fileName, Err: fmt.Errorf("header has no %s column", ColSymbol)}
	}

	var (
		bars     []model.PriceBar
		total    int
		filtered int
		seen     = make(map[string]int)
	)
	for row := 1; ; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		total++
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, &StructuralError{Source: fileName, Err: err}
			}
			p.reject(&ValidationError{Row: row, Err: fmt.Errorf("%w: %v", ErrMalformedRow, pe.Err)})
			continue
		}

		bar, verr := p.parseRow(row, toRaw(columns, fields))
		if verr != nil {
			p.reject(verr)
			continue
		}
		if p.series != nil && !p.series[strings.ToUpper(bar.Series)] {
			filtered++
			continue
		}
		if first, dup := seen[bar.Symbol]; dup {
			p.reject(&ValidationError{
				Row:   row,
				Field: ColSymbol,
				Value: bar.Symbol,
				Err:   fmt.Errorf("%w: first seen on row %d", ErrDuplicate, first),
			})
			continue
		}
		seen[bar.Symbol] = row
		bars = append(bars, bar)
	}

	end := p.now()
	p.log.Info().
		Str("file", fileName).
		Int("total", total).
		Int("valid", len(bars)).
		Int("filtered", filtered).
		Msg("bhavcopy parsed")

	return &model.IngestResult{
		Data: bars,
		Metadata: model.IngestMetadata{
			FileName:         fileName,
			ProcessedAt:      end.UTC(),
			TotalRecords:     total,
			ValidRecords:     len(bars),
			FilteredRecords:  filtered,
			ProcessingTimeMs: end.Sub(start).Milliseconds(),
		},
		Summary: report.Summarize(bars),
	}, nil
}

func (p *Parser) parseRow(row int, raw rawRecord) (model.PriceBar, *ValidationError) {
	if field, missing := raw.missing(); missing {
		return model.PriceBar{}, &ValidationError{Row: row, Field: field, Err: ErrMissingField}
	}

	rec := bhavRecord{Symbol: raw[ColSymbol], Series: raw[ColSeries]}
	var verr *ValidationError
	floats := []struct {
		field string
		dst   *float64
	}{
		{ColOpen, &rec.Open},
		{ColHigh, &rec.High},
		{ColLow, &rec.Low},
		{ColClose, &rec.Close},
		{ColLast, &rec.Last},
		{ColPrevClose, &rec.PreviousClose},
		{ColValue, &rec.Value},
	}
	for _, f := range floats {
		if *f.dst, verr = raw.float(row, f.field); verr != nil {
			return model.PriceBar{}, verr
		}
	}
	if rec.Volume, verr = raw.count(row, ColVolume); verr != nil {
		return model.PriceBar{}, verr
	}
	if rec.Trades, verr = raw.count(row, ColTotalTrades); verr != nil {
		return model.PriceBar{}, verr
	}
	if rec.Timestamp, verr = raw.date(row, ColTimestamp); verr != nil {
		return model.PriceBar{}, verr
	}

	if err := p.validate.Struct(rec); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return model.PriceBar{}, &ValidationError{
				Row:   row,
				Field: fe.Field(),
				Value: raw[fe.Field()],
				Err:   fmt.Errorf("%w: must satisfy %s", ErrOutOfRange, fe.Tag()+withParam(fe.Param())),
			}
		}
		return model.PriceBar{}, &ValidationError{Row: row, Err: err}
	}
	return rec.toBar(), nil
}

func (p *Parser) reject(err *ValidationError) {
	p.log.Warn().Err(err).Int("row", err.Row).Str("field", err.Field).Msg("row rejected")
	if p.onReject != nil {
		p.onReject(err)
	}
}

func withParam(param string) string {
	if param == "" {
		return ""
	}
	return "=" + param
}

func indexHeader(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if key == "" {
			continue
		}
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	return cols
}

func toRaw(columns map[string]int, fields []string) rawRecord {
	raw := make(rawRecord, len(RequiredFields))
	for name, i := range columns {
		if i < len(fields) {
			if v := strings.TrimSpace(fields[i]); v != "" {
				raw[name] = v
			}
		}
	}
	return raw
}
