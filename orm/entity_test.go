package orm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEntity(t *testing.T) {
	e := NewEntity(map[string]any{"name": "ann", "age": 31})

	assert.True(t, e.IsNew())
	assert.Equal(t, []string{"age", "name"}, e.Dirty())
	assert.Equal(t, "ann", e.Get("name"))
	assert.True(t, e.Has("age"))
	assert.False(t, e.Has("missing"))
}

func TestEntity_DirtyTracking(t *testing.T) {
	e := hydrate("users", map[string]any{"id": int64(1), "name": "ann", "nick": nil})

	assert.False(t, e.IsNew())
	assert.False(t, e.IsDirty())
	assert.False(t, e.Has("nick"), "nil fields are not set")

	e.Set("name", "ann")
	assert.False(t, e.IsDirty(), "same value")

	e.Set("name", "anna")
	assert.True(t, e.IsDirty("name"))
	assert.Equal(t, "ann", e.Original("name"))

	e.Set("name", "ann")
	assert.False(t, e.IsDirty("name"), "restoring the original clears the flag")

	e.Set("email", "ann@example.com")
	assert.Equal(t, []string{"email"}, e.Dirty())
	assert.Equal(t, []string{"id", "name", "nick", "email"}, e.Fields())

	e.Clean()
	assert.False(t, e.IsDirty())
	assert.Equal(t, "ann@example.com", e.Original("email"))
}

func TestEntity_ToMapIsCopy(t *testing.T) {
	e := NewEntity(map[string]any{"name": "ann"})
	m := e.ToMap()
	m["name"] = "bob"
	assert.Equal(t, "ann", e.Get("name"))

	assert.Equal(t, map[string]any{"name": "ann", "x": nil}, e.Extract("name", "x"))

	e.Unset("name")
	assert.Empty(t, e.Fields())
	assert.Empty(t, e.Dirty())
}
