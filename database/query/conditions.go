package query

import (
	"sort"
	"strings"
)

// KV is a keyed condition. The key holds a field optionally followed by an
// operator ("age >", "name LIKE", "id IN", "deleted_at IS"), or one of the
// group keys and, or, xor and not whose value holds nested conditions.
type KV struct {
	Key   string
	Value any
}

// And groups conditions joined with AND.
type And []any

// Or groups conditions joined with OR.
type Or []any

// Xor groups conditions joined with XOR.
type Xor []any

// Not negates the AND of its conditions.
type Not []any

// ConditionFunc builds conditions on a fresh expression. It receives the
// query the conditions are being added to.
type ConditionFunc = func(exp *QueryExpression, q *Query) *QueryExpression

// conditionsOf expands a condition container into a flat list.
func conditionsOf(v any) []any {
	switch c := v.(type) {
	case nil:
		return nil
	case []any:
		return c
	case And:
		return []any(c)
	case Or:
		return []any(c)
	case Xor:
		return []any(c)
	case Not:
		return []any(c)
	case []KV:
		out := make([]any, len(c))
		for i, kv := range c {
			out[i] = kv
		}
		return out
	case map[string]any:
		return sortedKVs(c)
	case []string:
		out := make([]any, len(c))
		for i, s := range c {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

// sortedKVs converts m into KV conditions in key order so rendering is
// deterministic.
func sortedKVs(m map[string]any) []any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = KV{Key: k, Value: m[k]}
	}
	return out
}

// splitCondition splits "field operator" into its parts. Two word
// operators ("IS NOT", "NOT IN", "NOT LIKE") are recognised; a key
// without an operator compares with "=".
func splitCondition(key string) (string, string) {
	words := strings.Fields(key)
	switch len(words) {
	case 0:
		return "", "="
	case 1:
		return words[0], "="
	case 2:
		return words[0], strings.ToUpper(words[1])
	}

	n := len(words)
	last, prev := strings.ToUpper(words[n-1]), strings.ToUpper(words[n-2])
	if prev == "NOT" || (prev == "IS" && last == "NOT") {
		return strings.Join(words[:n-2], " "), prev + " " + last
	}
	return strings.Join(words[:n-1], " "), last
}
