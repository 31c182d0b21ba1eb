// Package pipeline runs one end-of-day batch: fetch, ingest, store, rank, record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"BhavSentinel/internal/calculator"
	"BhavSentinel/internal/collector"
	"BhavSentinel/internal/ingest"
	"BhavSentinel/internal/metrics"
	"BhavSentinel/internal/model"
	"BhavSentinel/internal/recorder"
	"BhavSentinel/internal/sentiment"
	"BhavSentinel/internal/strategy"
)

// DefaultHistory is the number of stored bars loaded per symbol.
const DefaultHistory = 300

// Options tune a Runner. Zero values take defaults.
type Options struct {
	Workers int      // defaults to runtime.NumCPU()
	History int      // bars per symbol, defaults to DefaultHistory
	Series  []string // bhavcopy series kept, defaults to ingest.DefaultSeries
	Params  calculator.Params
}

// Report is the outcome of one Run.
type Report struct {
	RunID      string
	Session    time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	Ingest     *model.IngestResult
	Ranking    []model.ScoreBreakdown
}

// Runner wires ingestion, indicators and ranking over a Recorder.
type Runner struct {
	parser    *ingest.Parser
	store     recorder.Recorder
	engine    *strategy.Engine
	sentiment sentiment.Provider
	metrics   *metrics.Metrics
	health    *metrics.Health
	params    calculator.Params
	workers   int
	history   int
	log       zerolog.Logger
	now       func() time.Time
}

// NewRunner builds a Runner. sent, m and health may be nil; a nil m records
// into a private registry that nothing exports.
func NewRunner(store recorder.Recorder, engine *strategy.Engine, sent sentiment.Provider,
	m *metrics.Metrics, health *metrics.Health, opts Options, log zerolog.Logger) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.History <= 0 {
		opts.History = DefaultHistory
	}
	if opts.Params.SMAPeriods == nil {
		opts.Params = calculator.DefaultParams()
	}
	if sent == nil {
		sent = sentiment.Neutral{}
	}
	if m == nil {
		m = metrics.NewMetrics(prometheus.NewRegistry())
	}
	if len(opts.Series) == 0 {
		opts.Series = ingest.DefaultSeries
	}
	return &Runner{
		parser: ingest.NewParser(log,
			ingest.WithSeries(opts.Series...),
			ingest.WithRejectHook(func(e *ingest.ValidationError) { m.Reject(e.Reason()) }),
		),
		store:     store,
		engine:    engine,
		sentiment: sent,
		metrics:   m,
		health:    health,
		params:    opts.Params,
		workers:   opts.Workers,
		history:   opts.History,
		log:       log.With().Str("component", "pipeline").Logger(),
		now:       time.Now,
	}
}

// Run processes the bhavcopy for session. A holiday (collector.ErrNotPublished)
// is returned as-is and counted as skipped.
func (r *Runner) Run(ctx context.Context, src collector.Source, session time.Time) (*Report, error) {
	rep := &Report{RunID: uuid.NewString(), Session: session, StartedAt: r.now()}
	log := r.log.With().Str("run_id", rep.RunID).Time("session", session).Logger()
	log.Info().Str("source", src.Name()).Msg("run started")

	err := r.run(ctx, src, rep)
	rep.FinishedAt = r.now()
	took := rep.FinishedAt.Sub(rep.StartedAt)

	status := metrics.StatusOK
	switch {
	case errors.Is(err, collector.ErrNotPublished):
		status = metrics.StatusSkipped
		log.Info().Err(err).Msg("no bhavcopy for session")
	case err != nil:
		status = metrics.StatusError
		log.Error().Err(err).Dur("took", took).Msg("run failed")
	default:
		log.Info().Int("ranked", len(rep.Ranking)).Dur("took", took).Msg("run finished")
	}
	r.metrics.ObserveRun(status, took, rep.FinishedAt)
	if r.health != nil && status != metrics.StatusSkipped {
		r.health.RunFinished(rep.RunID, rep.FinishedAt, err)
	}
	return rep, err
}

func (r *Runner) run(ctx context.Context, src collector.Source, rep *Report) error {
	rc, name, err := src.Open(ctx, rep.Session)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer rc.Close()

	res, err := r.parser.Parse(ctx, rc, name)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	rep.Ingest = res
	r.metrics.ObserveIngest(res.Metadata.TotalRecords, res.Metadata.ValidRecords)
	r.metrics.SymbolsFiltered.Add(float64(res.Metadata.FilteredRecords))

	if err := r.store.SaveBars(ctx, res.Data); err != nil {
		return fmt.Errorf("save bars: %w", err)
	}

	rep.Ranking, err = r.Rank(ctx, res.Data)
	if err != nil {
		return fmt.Errorf("rank: %w", err)
	}

	run := &recorder.RunRecord{
		ID:         rep.RunID,
		Source:     src.Name(),
		StartedAt:  rep.StartedAt,
		FinishedAt: r.now(),
		Metadata:   res.Metadata,
		Results:    rep.Ranking,
	}
	if err := r.store.RecordRun(ctx, run); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Rank filters the batch, builds each qualifying symbol's candidate (stored
// history, indicators, sentiment) on a bounded worker pool and hands the
// candidates to the engine for scoring and ordering. On cancellation no
// further symbols are dispatched; the symbols already prepared are ranked and
// returned with ctx.Err().
func (r *Runner) Rank(ctx context.Context, bars []model.PriceBar) ([]model.ScoreBreakdown, error) {
	qualified := make([]model.PriceBar, 0, len(bars))
	for _, b := range bars {
		if ok, why := r.engine.Qualifies(b); !ok {
			r.metrics.SymbolsFiltered.Inc()
			r.log.Debug().Str("symbol", b.Symbol).Str("reason", why).Msg("filtered out")
			continue
		}
		qualified = append(qualified, b)
	}

	// Each worker owns one slot; the slices are read only after Wait.
	cands := make([]strategy.Candidate, len(qualified))
	done := make([]bool, len(qualified))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, bar := range qualified {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			cands[i] = r.candidate(ctx, bar)
			done[i] = true
			return nil
		})
	}
	g.Wait()

	completed := make([]strategy.Candidate, 0, len(cands))
	for i, ok := range done {
		if ok {
			completed = append(completed, cands[i])
		}
	}

	ranked := r.engine.Rank(completed)
	for _, b := range ranked {
		if b.Error != "" {
			r.metrics.ScoringErrors.Inc()
		} else {
			r.metrics.SymbolsScored.Inc()
		}
	}
	return ranked, ctx.Err()
}

// candidate gathers one symbol's scoring inputs. Failures leave the
// corresponding input empty; the engine decides what that costs.
func (r *Runner) candidate(ctx context.Context, bar model.PriceBar) strategy.Candidate {
	log := r.log.With().Str("symbol", bar.Symbol).Logger()
	cand := strategy.Candidate{Bar: bar}

	series, err := r.series(ctx, bar)
	if err != nil {
		log.Warn().Err(err).Msg("load series failed")
	} else if set, err := calculator.Compute(series, r.params); err != nil {
		log.Warn().Err(err).Msg("indicators failed")
	} else {
		cand.Technical = calculator.Snapshot(series, set, r.params)
	}

	if s, err := r.sentiment.Lookup(ctx, bar.Symbol); err != nil {
		log.Warn().Err(err).Msg("sentiment lookup failed, using neutral")
	} else {
		cand.Sentiment = s
	}
	return cand
}

// series loads stored history up to and including bar's session.
func (r *Runner) series(ctx context.Context, bar model.PriceBar) ([]model.PriceBar, error) {
	stored, err := r.store.LoadSeries(ctx, bar.Symbol, 0)
	if err != nil {
		return nil, err
	}
	out := make([]model.PriceBar, 0, len(stored)+1)
	for _, b := range stored {
		if b.Timestamp.Before(bar.Timestamp) {
			out = append(out, b)
		}
	}
	out = append(out, bar)
	if len(out) > r.history {
		out = out[len(out)-r.history:]
	}
	return out, nil
}
