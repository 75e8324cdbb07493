package orm

import (
	"maps"
	"reflect"
	"slices"
)

// Entity is one table row. It tracks which fields changed since it was
// loaded or last saved.
type Entity struct {
	source   string
	keys     []string
	fields   map[string]any
	original map[string]any
	dirty    map[string]bool
	isNew    bool
}

// NewEntity creates an unsaved entity. Every given field starts dirty.
func NewEntity(data map[string]any) *Entity {
	e := &Entity{
		fields:   make(map[string]any, len(data)),
		original: map[string]any{},
		dirty:    map[string]bool{},
		isNew:    true,
	}
	for _, k := range sortedKeys(data) {
		e.Set(k, data[k])
	}
	return e
}

// hydrate builds a clean, persisted entity from a fetched row.
func hydrate(source string, row map[string]any) *Entity {
	e := &Entity{
		source:   source,
		keys:     sortedKeys(row),
		fields:   maps.Clone(row),
		original: maps.Clone(row),
		dirty:    map[string]bool{},
	}
	if e.fields == nil {
		e.fields = map[string]any{}
		e.original = map[string]any{}
	}
	return e
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}

// Source returns the table the entity was loaded from or saved to.
func (e *Entity) Source() string {
	return e.source
}

// Get returns the value of field, or nil.
func (e *Entity) Get(field string) any {
	return e.fields[field]
}

// Set assigns field. The field becomes dirty unless the value is unchanged.
func (e *Entity) Set(field string, value any) *Entity {
	if _, exists := e.fields[field]; !exists {
		e.keys = append(e.keys, field)
	}
	e.fields[field] = value

	if orig, ok := e.original[field]; ok && !e.isNew && reflect.DeepEqual(orig, value) {
		delete(e.dirty, field)
		return e
	}
	e.dirty[field] = true
	return e
}

// SetMany assigns every field of data in sorted key order.
func (e *Entity) SetMany(data map[string]any) *Entity {
	for _, k := range sortedKeys(data) {
		e.Set(k, data[k])
	}
	return e
}

// Has reports whether field is set to a non-nil value.
func (e *Entity) Has(field string) bool {
	v, ok := e.fields[field]
	return ok && v != nil
}

// Unset removes field from the entity.
func (e *Entity) Unset(field string) *Entity {
	delete(e.fields, field)
	delete(e.dirty, field)
	e.keys = slices.DeleteFunc(e.keys, func(k string) bool { return k == field })
	return e
}

// Original returns the value field had when the entity was loaded or
// last cleaned.
func (e *Entity) Original(field string) any {
	if v, ok := e.original[field]; ok {
		return v
	}
	return e.fields[field]
}

// Dirty returns the changed fields in the order they were first set.
func (e *Entity) Dirty() []string {
	var out []string
	for _, k := range e.keys {
		if e.dirty[k] {
			out = append(out, k)
		}
	}
	return out
}

// IsDirty reports whether any of fields changed, or any field at all when
// none are given.
func (e *Entity) IsDirty(fields ...string) bool {
	if len(fields) == 0 {
		return len(e.dirty) > 0
	}
	for _, f := range fields {
		if e.dirty[f] {
			return true
		}
	}
	return false
}

// IsNew reports whether the entity has not been persisted yet.
func (e *Entity) IsNew() bool {
	return e.isNew
}

// SetNew marks the entity as persisted or not.
func (e *Entity) SetNew(isNew bool) *Entity {
	e.isNew = isNew
	return e
}

// Fields returns the field names in the order they were first set.
func (e *Entity) Fields() []string {
	return slices.Clone(e.keys)
}

// ToMap returns a copy of the entity's fields.
func (e *Entity) ToMap() map[string]any {
	return maps.Clone(e.fields)
}

// Extract returns a copy of the named fields.
func (e *Entity) Extract(fields ...string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f] = e.fields[f]
	}
	return out
}

// Clean forgets all changes and makes the current values the originals.
func (e *Entity) Clean() *Entity {
	e.original = maps.Clone(e.fields)
	e.dirty = map[string]bool{}
	return e
}
