package telemetry

import (
	"context"
	"sync"
	"time"
)

// Memory aggregates events in memory. It is safe for concurrent use.
type Memory struct {
	mu sync.RWMutex

	queries     map[string]int64
	failures    map[string]int64
	rows        map[string]int64
	durations   map[string]time.Duration
	errors      int64
	connections map[string]int64
}

// Snapshot is a point in time copy of the collected metrics, keyed by
// operation or connection event.
type Snapshot struct {
	Queries     map[string]int64
	Failures    map[string]int64
	Rows        map[string]int64
	Durations   map[string]time.Duration
	Errors      int64
	Connections map[string]int64
}

// NewMemory creates an empty in-memory collector.
func NewMemory() *Memory {
	return &Memory{
		queries:     make(map[string]int64),
		failures:    make(map[string]int64),
		rows:        make(map[string]int64),
		durations:   make(map[string]time.Duration),
		connections: make(map[string]int64),
	}
}

// RecordQuery counts the statement under its operation.
func (m *Memory) RecordQuery(_ context.Context, info QueryInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queries[info.Operation]++
	if !info.Success {
		m.failures[info.Operation]++
	}
	m.rows[info.Operation] += info.RowsAffected
	m.durations[info.Operation] += info.Duration
}

// RecordError counts the failure.
func (m *Memory) RecordError(context.Context, ErrorInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
}

// RecordConnection counts the event.
func (m *Memory) RecordConnection(_ context.Context, info ConnectionInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[info.Event]++
}

// Close is a no-op.
func (m *Memory) Close(context.Context) error {
	return nil
}

// Snapshot copies the current metrics.
func (m *Memory) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Snapshot{
		Queries:     copyMap(m.queries),
		Failures:    copyMap(m.failures),
		Rows:        copyMap(m.rows),
		Durations:   copyMap(m.durations),
		Errors:      m.errors,
		Connections: copyMap(m.connections),
	}
}

func copyMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var _ Telemetry = (*Memory)(nil)
