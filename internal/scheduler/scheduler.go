// Package scheduler triggers pipeline runs on a cron schedule and answers
// chat commands.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"BhavSentinel/internal/collector"
	"BhavSentinel/internal/pipeline"
	"BhavSentinel/internal/recorder"
	"BhavSentinel/internal/report"
)

// ErrBusy is returned when a run is requested while another is in progress.
var ErrBusy = errors.New("a run is already in progress")

// Sender delivers a report. *notifier.TelegramNotifier satisfies it.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Options configure a Scheduler.
type Options struct {
	Location  *time.Location // session dates are taken in this zone
	ReportTop int            // ranking rows in a report, <= 0 for all
	Retries   int            // notification retries
}

// Scheduler manages the daily cron task.
type Scheduler struct {
	cron     *cron.Cron
	runner   *pipeline.Runner
	source   collector.Source
	store    recorder.Recorder
	notifier Sender
	opts     Options
	ctx      context.Context
	log      zerolog.Logger
	now      func() time.Time

	running sync.Mutex
}

// NewScheduler creates a new Scheduler. notifier may be nil, in which case
// reports are only logged.
func NewScheduler(ctx context.Context, runner *pipeline.Runner, src collector.Source, store recorder.Recorder,
	notifier Sender, opts Options, log zerolog.Logger) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds(), cron.WithLocation(opts.Location)),
		runner:   runner,
		source:   src,
		store:    store,
		notifier: notifier,
		opts:     opts,
		ctx:      ctx,
		log:      log.With().Str("component", "scheduler").Logger(),
		now:      time.Now,
	}
}

// Register adds the end-of-day run on dailyCron (six fields, with seconds).
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// Session returns today's trading date in the configured location.
func (s *Scheduler) Session() time.Time {
	y, m, d := s.now().In(s.opts.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RunNow processes session immediately and notifies the outcome. It returns
// ErrBusy if a run is already in progress.
func (s *Scheduler) RunNow(ctx context.Context, session time.Time) (*pipeline.Report, error) {
	if !s.running.TryLock() {
		return nil, ErrBusy
	}
	defer s.running.Unlock()

	rep, err := s.runner.Run(ctx, s.source, session)
	s.trySend(ctx, s.outcome(session, rep, err))
	return rep, err
}

func (s *Scheduler) dailyTask() {
	s.log.Info().Msg("running daily task")
	if _, err := s.RunNow(s.ctx, s.Session()); errors.Is(err, ErrBusy) {
		s.log.Warn().Msg("daily task skipped, previous run still in progress")
	}
}

func (s *Scheduler) outcome(session time.Time, rep *pipeline.Report, err error) string {
	day := session.Format("2006-01-02")
	switch {
	case errors.Is(err, collector.ErrNotPublished):
		return fmt.Sprintf("No bhavcopy published for %s, market closed.", day)
	case err != nil:
		return fmt.Sprintf("Run for %s failed: %v", day, err)
	}
	var b strings.Builder
	if rep.Ingest != nil {
		b.WriteString(report.FormatSummary(rep.Ingest))
		b.WriteString("\n")
	}
	b.WriteString(report.FormatRanking(rep.Ranking, session, s.opts.ReportTop))
	return b.String()
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return help
	}
	switch strings.ToLower(fields[0]) {
	case "/run":
		session := s.Session()
		if len(fields) > 1 {
			d, err := time.Parse("2006-01-02", fields[1])
			if err != nil {
				return fmt.Sprintf("Bad date %q, want YYYY-MM-DD.", fields[1])
			}
			session = d
		}
		if _, err := s.RunNow(ctx, session); errors.Is(err, ErrBusy) {
			return "A run is already in progress."
		}
		// RunNow has already sent the outcome.
		return ""
	case "/top", "/latest":
		run, err := s.store.LatestRun(ctx)
		if errors.Is(err, recorder.ErrNotFound) {
			return "No runs recorded yet."
		}
		if err != nil {
			s.log.Error().Err(err).Msg("load latest run")
			return "Could not load the latest run."
		}
		return report.FormatRanking(run.Results, run.FinishedAt, s.opts.ReportTop)
	default:
		return help
	}
}

const help = "Commands:\n" +
	"/run [YYYY-MM-DD]  process a session now\n" +
	"/top               latest ranking"

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.notifier == nil {
		s.log.Info().Msg(text)
		return
	}
	if err := s.notifier.SendWithRetry(ctx, text, s.opts.Retries); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
