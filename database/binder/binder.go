// Package binder tracks placeholder to value bindings for a compiled query.
package binder

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPrefix is the prefix used for generated placeholder tokens.
const DefaultPrefix = "c"

// Binding is a single value bound to a placeholder.
type Binding struct {
	// Value is the bound value.
	Value any
	// Placeholder is the canonical name of the placeholder, without the
	// leading colon, or the decimal position for positional parameters.
	Placeholder string
}

// Bindable is implemented by anything that can receive bound values,
// typically a prepared statement.
type Bindable interface {
	Bind(placeholder string, value any)
}

// ValueBinder stores bindings and generates unique placeholder tokens.
// It is not safe for concurrent use.
type ValueBinder struct {
	bindings map[string]*Binding
	order    []string
	counter  int
}

// New creates an empty ValueBinder.
func New() *ValueBinder {
	return &ValueBinder{bindings: make(map[string]*Binding)}
}

// Bind associates value with param. Binding the same param twice replaces
// the value but keeps its original position.
func (b *ValueBinder) Bind(param string, value any) {
	if b.bindings == nil {
		b.bindings = make(map[string]*Binding)
	}
	if existing, ok := b.bindings[param]; ok {
		existing.Value = value
		return
	}
	b.bindings[param] = &Binding{Value: value, Placeholder: canonical(param)}
	b.order = append(b.order, param)
}

// BindPosition binds a positional (?) parameter.
func (b *ValueBinder) BindPosition(position int, value any) {
	b.Bind(strconv.Itoa(position), value)
}

func canonical(param string) string {
	return strings.TrimPrefix(param, ":")
}

// Placeholder returns a token for prefix. Tokens that are already
// placeholders ("?" or ":name") are returned unchanged; anything else
// produces a fresh ":<prefix><n>" token.
func (b *ValueBinder) Placeholder(prefix string) string {
	if prefix == "?" || strings.HasPrefix(prefix, ":") {
		return prefix
	}
	token := fmt.Sprintf(":%s%d", prefix, b.counter)
	b.counter++
	return token
}

// GenerateManyNamed binds every value under a freshly generated token and
// returns the tokens in the order of values.
func (b *ValueBinder) GenerateManyNamed(values []any) []string {
	tokens := make([]string, 0, len(values))
	for _, v := range values {
		token := b.Placeholder(DefaultPrefix)
		b.Bind(token, v)
		tokens = append(tokens, token)
	}
	return tokens
}

// Get returns the binding stored under param.
func (b *ValueBinder) Get(param string) (Binding, bool) {
	bd, ok := b.bindings[param]
	if !ok {
		return Binding{}, false
	}
	return *bd, true
}

// Bindings returns a copy of all bindings in the order they were added.
func (b *ValueBinder) Bindings() []Binding {
	out := make([]Binding, 0, len(b.order))
	for _, k := range b.order {
		out = append(out, *b.bindings[k])
	}
	return out
}

// Values returns the bound values keyed by placeholder name.
func (b *ValueBinder) Values() map[string]any {
	out := make(map[string]any, len(b.order))
	for _, k := range b.order {
		bd := b.bindings[k]
		out[bd.Placeholder] = bd.Value
	}
	return out
}

// Len returns the number of bindings.
func (b *ValueBinder) Len() int {
	return len(b.order)
}

// Reset clears all bindings and the placeholder counter.
func (b *ValueBinder) Reset() {
	b.bindings = make(map[string]*Binding)
	b.order = nil
	b.counter = 0
}

// ResetCount resets only the placeholder counter. Tokens generated after
// the reset overwrite the previously bound values.
func (b *ValueBinder) ResetCount() {
	b.counter = 0
}

// AttachTo binds every stored value onto s.
func (b *ValueBinder) AttachTo(s Bindable) {
	if len(b.order) == 0 {
		return
	}
	for _, k := range b.order {
		bd := b.bindings[k]
		s.Bind(bd.Placeholder, bd.Value)
	}
}

// String renders the bindings for debug output.
func (b *ValueBinder) String() string {
	parts := make([]string, 0, len(b.order))
	for _, k := range b.order {
		bd := b.bindings[k]
		parts = append(parts, fmt.Sprintf("%s=%v", k, bd.Value))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Clone returns an independent copy of the binder.
func (b *ValueBinder) Clone() *ValueBinder {
	c := &ValueBinder{
		bindings: make(map[string]*Binding, len(b.bindings)),
		order:    append([]string(nil), b.order...),
		counter:  b.counter,
	}
	for k, v := range b.bindings {
		cp := *v
		c.bindings[k] = &cp
	}
	return c
}
