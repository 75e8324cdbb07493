package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		typ     string
		want    any
		wantErr bool
	}{
		{"", &Noop{}, false},
		{"noop", &Noop{}, false},
		{"memory", &Memory{}, false},
		{"statsd", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			tel, err := New(tt.typ)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, tel)
		})
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.RecordQuery(ctx, QueryInfo{Operation: "select", Duration: time.Millisecond, Success: i%2 == 0, RowsAffected: 1})
		}(i)
	}
	wg.Wait()

	m.RecordQuery(ctx, QueryInfo{Operation: "insert", Success: true, RowsAffected: 3})
	m.RecordError(ctx, ErrorInfo{Err: errors.New("boom"), Operation: "insert"})
	m.RecordConnection(ctx, ConnectionInfo{Event: "connect", Success: true})

	s := m.Snapshot()
	assert.Equal(t, int64(10), s.Queries["select"])
	assert.Equal(t, int64(5), s.Failures["select"])
	assert.Equal(t, int64(10), s.Rows["select"])
	assert.Equal(t, 10*time.Millisecond, s.Durations["select"])
	assert.Equal(t, int64(3), s.Rows["insert"])
	assert.Equal(t, int64(1), s.Errors)
	assert.Equal(t, int64(1), s.Connections["connect"])

	s.Queries["select"] = 0
	assert.Equal(t, int64(10), m.Snapshot().Queries["select"])
	assert.NoError(t, m.Close(ctx))
}
