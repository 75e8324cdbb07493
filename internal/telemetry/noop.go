package telemetry

import "context"

// Noop discards every event.
type Noop struct{}

// NewNoop creates a no-op collector.
func NewNoop() *Noop {
	return &Noop{}
}

func (n *Noop) RecordQuery(context.Context, QueryInfo)           {}
func (n *Noop) RecordError(context.Context, ErrorInfo)           {}
func (n *Noop) RecordConnection(context.Context, ConnectionInfo) {}
func (n *Noop) Close(context.Context) error                      { return nil }

var _ Telemetry = (*Noop)(nil)
