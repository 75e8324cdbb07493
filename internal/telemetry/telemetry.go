// Package telemetry records query and connection metrics.
package telemetry

import (
	"context"
	"fmt"
	"time"
)

// Telemetry receives query and connection events.
type Telemetry interface {
	// RecordQuery records an executed statement.
	RecordQuery(ctx context.Context, info QueryInfo)

	// RecordError records a failed operation.
	RecordError(ctx context.Context, info ErrorInfo)

	// RecordConnection records a connect, disconnect or reconnect.
	RecordConnection(ctx context.Context, info ConnectionInfo)

	// Close releases the collector.
	Close(ctx context.Context) error
}

// QueryInfo describes an executed statement.
type QueryInfo struct {
	// Operation is the statement kind (select, insert, update, delete, raw).
	Operation string

	// SQL is the statement text.
	SQL string

	Duration     time.Duration
	Success      bool
	RowsAffected int64
}

// ErrorInfo describes a failed operation.
type ErrorInfo struct {
	Err       error
	Operation string
	SQL       string
}

// ConnectionInfo describes a connection event.
type ConnectionInfo struct {
	// Event is connect, disconnect or reconnect.
	Event    string
	Duration time.Duration
	Success  bool
}

// Type selects a collector.
type Type string

const (
	// TypeNoop discards every event.
	TypeNoop Type = "noop"
	// TypeMemory keeps counters and durations in memory.
	TypeMemory Type = "memory"
)

// New creates the collector named by typ. An empty type yields a no-op
// collector.
func New(typ string) (Telemetry, error) {
	switch Type(typ) {
	case TypeNoop, "":
		return NewNoop(), nil
	case TypeMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown telemetry type: %s", typ)
}
