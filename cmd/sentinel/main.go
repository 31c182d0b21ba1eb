package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"BhavSentinel/internal/collector"
	"BhavSentinel/internal/config"
	"BhavSentinel/internal/logger"
	"BhavSentinel/internal/metrics"
	"BhavSentinel/internal/notifier"
	"BhavSentinel/internal/pipeline"
	"BhavSentinel/internal/recorder"
	"BhavSentinel/internal/report"
	"BhavSentinel/internal/scheduler"
	"BhavSentinel/internal/sentiment"
	"BhavSentinel/internal/strategy"
)

func main() {
	once := flag.Bool("once", false, "process one session, print the report and exit")
	date := flag.String("date", "", "session date for -once (YYYY-MM-DD), defaults to today")
	file := flag.String("file", "", "read this bhavcopy instead of the configured source")
	flag.Parse()

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *file != "" {
		cfg.Source.Kind = config.SourceFile
		cfg.Source.Path = *file
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)
	log.Info().Str("config", cfgPath).Msg("BhavSentinel starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init recorder
	var rec recorder.Recorder
	if sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log); err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, keeping history in memory")
		rec = recorder.NewMemoryRecorder()
	} else {
		rec = sr
	}
	defer rec.Close()

	// Init sentiment
	var sent sentiment.Provider = sentiment.Neutral{}
	if cfg.Redis.Addr != "" {
		client, err := sentiment.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, sentiment is neutral")
		} else {
			defer client.Close()
			sent = sentiment.NewRedisProvider(client, cfg.Redis.KeyPrefix, log)
		}
	}

	src := newSource(cfg, log)
	log.Info().Str("source", src.Name()).Msg("data source")

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)
	health := metrics.NewHealth()

	engine := strategy.NewEngine(cfg.Ranking, log)
	runner := pipeline.NewRunner(rec, engine, sent, m, health, pipeline.Options{
		Workers: cfg.Workers,
		History: cfg.History,
		Series:  cfg.Series,
		Params:  cfg.Indicators,
	}, log)

	if *once {
		code := runOnce(ctx, runner, src, *date, cfg.ReportTop, log)
		rec.Close()
		os.Exit(code)
	}

	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(cfg.Metrics.Addr, reg, health, log)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("stop metrics server")
			}
		}()
	}

	// Init Telegram notifier
	var tn *notifier.TelegramNotifier
	var sender scheduler.Sender
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		sender = tn
	}

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("load timezone")
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, runner, src, rec, sender, scheduler.Options{
		Location:  loc,
		ReportTop: cfg.ReportTop,
		Retries:   3,
	}, log)
	if err := sched.Register(cfg.Schedule.DailyCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, processing today's session now")
		go func() {
			if _, err := sched.RunNow(ctx, sched.Session()); err != nil && !errors.Is(err, collector.ErrNotPublished) {
				log.Error().Err(err).Msg("startup run")
			}
		}()
	}

	log.Info().Str("cron", cfg.Schedule.DailyCron).Str("tz", cfg.Schedule.Timezone).
		Msg("BhavSentinel is running. Press Ctrl+C to stop.")

	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping...")
}

func newSource(cfg *config.Config, log zerolog.Logger) collector.Source {
	var src collector.Source
	switch cfg.Source.Kind {
	case config.SourceHTTP:
		src = collector.NewHTTPSource(cfg.Source.URL, cfg.Proxy, cfg.Source.Timeout, log)
	default:
		src = collector.NewFileSource(cfg.Source.Path)
	}
	policy := collector.RetryPolicy{
		MaxAttempts: cfg.Source.Retry.MaxAttempts,
		Backoff:     collector.ExponentialBackoff(cfg.Source.Retry.Backoff, cfg.Source.Retry.MaxBackoff),
	}
	return collector.NewRetryingSource(src, policy, log)
}

func runOnce(ctx context.Context, runner *pipeline.Runner, src collector.Source, date string, top int, log zerolog.Logger) int {
	session := time.Now()
	if date != "" {
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			log.Error().Err(err).Msg("bad -date")
			return 2
		}
		session = d
	}
	session = time.Date(session.Year(), session.Month(), session.Day(), 0, 0, 0, 0, time.UTC)

	rep, err := runner.Run(ctx, src, session)
	if errors.Is(err, collector.ErrNotPublished) {
		fmt.Printf("No bhavcopy published for %s.\n", session.Format("2006-01-02"))
		return 0
	}
	if err != nil {
		return 1
	}
	fmt.Println(report.FormatSummary(rep.Ingest))
	fmt.Print(report.FormatRanking(rep.Ranking, session, top))
	return 0
}
