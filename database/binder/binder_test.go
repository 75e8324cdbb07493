package binder_test

import (
	"testing"

	"github.com/satishbabariya/bear/database/binder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	names  []string
	values []any
}

func (r *recorder) Bind(placeholder string, value any) {
	r.names = append(r.names, placeholder)
	r.values = append(r.values, value)
}

func TestPlaceholder_Unique(t *testing.T) {
	b := binder.New()
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		prefix := "c"
		if i%3 == 0 {
			prefix = "tuple"
		}
		token := b.Placeholder(prefix)
		require.False(t, seen[token], "duplicate token %s", token)
		seen[token] = true
	}
}

func TestPlaceholder_PassThrough(t *testing.T) {
	b := binder.New()
	assert.Equal(t, "?", b.Placeholder("?"))
	assert.Equal(t, ":name", b.Placeholder(":name"))
	assert.Equal(t, ":c0", b.Placeholder("c"))
	assert.Equal(t, ":c1", b.Placeholder("c"))
}

func TestBind_CanonicalPlaceholder(t *testing.T) {
	b := binder.New()
	b.Bind(":id", 10)
	b.BindPosition(0, "x")

	bd, ok := b.Get(":id")
	require.True(t, ok)
	assert.Equal(t, "id", bd.Placeholder)
	assert.Equal(t, 10, bd.Value)

	bd, ok = b.Get("0")
	require.True(t, ok)
	assert.Equal(t, "0", bd.Placeholder)
}

func TestBind_OverwriteKeepsOrder(t *testing.T) {
	b := binder.New()
	b.Bind(":a", 1)
	b.Bind(":b", 2)
	b.Bind(":a", 3)

	bindings := b.Bindings()
	require.Len(t, bindings, 2)
	assert.Equal(t, "a", bindings[0].Placeholder)
	assert.Equal(t, 3, bindings[0].Value)
	assert.Equal(t, "b", bindings[1].Placeholder)
}

func TestGenerateManyNamed_Order(t *testing.T) {
	b := binder.New()
	tokens := b.GenerateManyNamed([]any{"x", "y", "z"})
	assert.Equal(t, []string{":c0", ":c1", ":c2"}, tokens)

	bindings := b.Bindings()
	require.Len(t, bindings, 3)
	assert.Equal(t, "x", bindings[0].Value)
	assert.Equal(t, "z", bindings[2].Value)
}

func TestReset(t *testing.T) {
	b := binder.New()
	b.GenerateManyNamed([]any{1, 2})
	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, ":c0", b.Placeholder("c"))
}

func TestResetCount_KeepsBindings(t *testing.T) {
	b := binder.New()
	b.GenerateManyNamed([]any{1, 2})
	b.ResetCount()
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, ":c0", b.Placeholder("c"))
}

func TestAttachTo(t *testing.T) {
	b := binder.New()
	r := &recorder{}
	b.AttachTo(r)
	assert.Empty(t, r.names)

	b.Bind(":c0", 1)
	b.Bind(":name", "bob")
	b.AttachTo(r)
	assert.Equal(t, []string{"c0", "name"}, r.names)
	assert.Equal(t, []any{1, "bob"}, r.values)
}
