package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BhavSentinel/internal/collector"
	"BhavSentinel/internal/metrics"
	"BhavSentinel/internal/pipeline"
	"BhavSentinel/internal/recorder"
	"BhavSentinel/internal/strategy"
)

const fixture = "SYMBOL,SERIES,OPEN,HIGH,LOW,CLOSE,LAST,PREVCLOSE,TOTTRDQTY,TOTTRDVAL,TIMESTAMP,TOTALTRADES\n" +
	"TCS,EQ,3500,3550,3480,3525,3524,3490,1000000,3525000000,15-OCT-2026,5000\n" +
	"INFY,EQ,1500,1520,1490,1510,1509,1495,2000000,3020000000,15-OCT-2026,8000\n"

var session = time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingSender) SendWithRetry(_ context.Context, text string, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, text)
	return nil
}

func (r *recordingSender) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return ""
	}
	return r.sent[len(r.sent)-1]
}

func newScheduler(t *testing.T) (*Scheduler, *recordingSender) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cm15OCT2026bhav.csv"), []byte(fixture), 0o600))

	store := recorder.NewMemoryRecorder()
	engine := strategy.NewEngine(strategy.DefaultConfig(), zerolog.Nop())
	runner := pipeline.NewRunner(store, engine, nil, metrics.NewMetrics(prometheus.NewRegistry()), nil,
		pipeline.Options{Workers: 2}, zerolog.Nop())
	src := collector.NewFileSource(filepath.Join(dir, "cm{date}bhav.csv"))

	sender := &recordingSender{}
	s := NewScheduler(context.Background(), runner, src, store, sender, Options{ReportTop: 5}, zerolog.Nop())
	return s, sender
}

func TestRunNow_SendsReport(t *testing.T) {
	s, sender := newScheduler(t)

	rep, err := s.RunNow(context.Background(), session)
	require.NoError(t, err)
	require.Len(t, rep.Ranking, 2)

	msg := sender.last()
	assert.Contains(t, msg, "Records: 2 valid of 2")
	assert.Contains(t, msg, "BhavSentinel ranking | 2026-10-15")
	assert.Contains(t, msg, "INFY")
	assert.Contains(t, msg, "TCS")
}

func TestRunNow_Holiday(t *testing.T) {
	s, sender := newScheduler(t)

	_, err := s.RunNow(context.Background(), session.AddDate(0, 0, 1))
	require.ErrorIs(t, err, collector.ErrNotPublished)
	assert.Equal(t, "No bhavcopy published for 2026-10-16, market closed.", sender.last())
}

func TestRunNow_Busy(t *testing.T) {
	s, sender := newScheduler(t)

	s.running.Lock()
	_, err := s.RunNow(context.Background(), session)
	s.running.Unlock()
	assert.ErrorIs(t, err, ErrBusy)
	assert.Empty(t, sender.sent)

	s.running.Lock()
	reply := s.HandleCommand(context.Background(), "/run 2026-10-15")
	s.running.Unlock()
	assert.Equal(t, "A run is already in progress.", reply)
}

func TestHandleCommand(t *testing.T) {
	s, sender := newScheduler(t)
	ctx := context.Background()

	assert.Equal(t, "No runs recorded yet.", s.HandleCommand(ctx, "/top"))
	assert.Contains(t, s.HandleCommand(ctx, "/run 15-10-2026"), "Bad date")
	assert.Equal(t, help, s.HandleCommand(ctx, "hello"))
	assert.Equal(t, help, s.HandleCommand(ctx, ""))

	assert.Empty(t, s.HandleCommand(ctx, "/run 2026-10-15"))
	assert.Contains(t, sender.last(), "TCS")

	top := s.HandleCommand(ctx, "/TOP")
	assert.Contains(t, top, "  1. ")
	assert.Contains(t, top, "INFY")
}

func TestSession(t *testing.T) {
	s, _ := newScheduler(t)
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	s.opts.Location = ist
	// 20:00 UTC on the 14th is already the 15th in India.
	s.now = func() time.Time { return time.Date(2026, 10, 14, 20, 0, 0, 0, time.UTC) }

	assert.Equal(t, session, s.Session())
}

func TestRegister(t *testing.T) {
	s, _ := newScheduler(t)

	require.NoError(t, s.Register("0 30 18 * * 1-5"))
	assert.Error(t, s.Register("not a cron"))

	s.Start()
	assert.Len(t, s.cron.Entries(), 1)
	s.Stop()
}
