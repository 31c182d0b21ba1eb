package recorder

import (
	"context"
	"sort"
	"sync"

	"BhavSentinel/internal/model"
)

// MemoryRecorder keeps everything in process. Used when no database is configured.
type MemoryRecorder struct {
	mu   sync.RWMutex
	bars map[string]map[int64]model.PriceBar
	runs []*RunRecord
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{bars: make(map[string]map[int64]model.PriceBar)}
}

func (m *MemoryRecorder) SaveBars(_ context.Context, bars []model.PriceBar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range bars {
		series, ok := m.bars[b.Symbol]
		if !ok {
			series = make(map[int64]model.PriceBar)
			m.bars[b.Symbol] = series
		}
		b.Timestamp = sessionDay(b.Timestamp)
		series[b.Timestamp.Unix()] = b
	}
	return nil
}

func (m *MemoryRecorder) LoadSeries(_ context.Context, symbol string, limit int) ([]model.PriceBar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.PriceBar, 0, len(m.bars[symbol]))
	for _, b := range m.bars[symbol] {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *MemoryRecorder) RecordRun(_ context.Context, run *RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	cp.Results = append([]model.ScoreBreakdown(nil), run.Results...)
	m.runs = append(m.runs, &cp)
	return nil
}

func (m *MemoryRecorder) LatestRun(_ context.Context) (*RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.runs) == 0 {
		return nil, ErrNotFound
	}
	cp := *m.runs[len(m.runs)-1]
	return &cp, nil
}

func (m *MemoryRecorder) Close() error { return nil }
