package state

import (
	"context"
	"sync"
)

// Memory keeps state in process memory. Used in tests and for throwaway runs.
type Memory struct {
	mu      sync.Mutex
	enabled bool
	logs    []LogEntry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Enabled(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled, nil
}

func (m *Memory) SetEnabled(_ context.Context, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
	return nil
}

func (m *Memory) Logs(_ context.Context, limit int) ([]LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.logs)
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]LogEntry, n)
	copy(out, m.logs[:n])
	return out, nil
}

func (m *Memory) AppendLog(_ context.Context, entry LogEntry, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = Prepend(m.logs, entry, limit)
	return nil
}

func (m *Memory) Close() error { return nil }
