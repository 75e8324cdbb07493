package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/bear/database/query"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"age >= 18", query.KV{Key: "age >=", Value: int64(18)}},
		{"age>=18", query.KV{Key: "age >=", Value: int64(18)}},
		{"name = 'Ann Lee'", query.KV{Key: "name =", Value: "Ann Lee"}},
		{"score < 1.5", query.KV{Key: "score <", Value: 1.5}},
		{"u.status != banned", query.KV{Key: "u.status !=", Value: "banned"}},
		{"title not like %draft%", query.KV{Key: "title NOT LIKE", Value: "%draft%"}},
		{"deleted_at is null", query.KV{Key: "deleted_at IS", Value: nil}},
		{"deleted_at IS NOT NULL", query.KV{Key: "deleted_at IS NOT", Value: nil}},
		{"id in 1, 2,3", query.KV{Key: "id IN", Value: []any{int64(1), int64(2), int64(3)}}},
		{"role NOT IN admin,owner", query.KV{Key: "role NOT IN", Value: []any{"admin", "owner"}}},
		{"id in (4, 5)", query.KV{Key: "id IN", Value: []any{int64(4), int64(5)}}},
		{`note = "it's"`, query.KV{Key: "note =", Value: "it's"}},
		{"note = 'it''s'", query.KV{Key: "note =", Value: "it's"}},
		{"a = 1 and b = 2", query.And{
			query.KV{Key: "a =", Value: int64(1)},
			query.KV{Key: "b =", Value: int64(2)},
		}},
		{"a = 1 AND (b = 2 or c is null)", query.And{
			query.KV{Key: "a =", Value: int64(1)},
			query.Or{
				query.KV{Key: "b =", Value: int64(2)},
				query.KV{Key: "c IS", Value: nil},
			},
		}},
		{"a = 1 or b = 2 and c = 3", query.Or{
			query.KV{Key: "a =", Value: int64(1)},
			query.And{
				query.KV{Key: "b =", Value: int64(2)},
				query.KV{Key: "c =", Value: int64(3)},
			},
		}},
		{"not active = true", query.Not{query.KV{Key: "active =", Value: true}}},
		{"index = 2", query.KV{Key: "index =", Value: int64(2)}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFilter(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFilter_Invalid(t *testing.T) {
	for _, in := range []string{"", "age", "= 3", "a = 1 and", "a not = 1", "a = 1, 2", "(a = 1"} {
		_, err := parseFilter(in)
		assert.ErrorContains(t, err, "invalid condition", in)
	}
}

func TestParseAssignment(t *testing.T) {
	field, value, err := parseAssignment("active = true")
	require.NoError(t, err)
	assert.Equal(t, "active", field)
	assert.Equal(t, true, value)

	field, value, err = parseAssignment("note=a=b")
	require.NoError(t, err)
	assert.Equal(t, "note", field)
	assert.Equal(t, "a=b", value)

	_, _, err = parseAssignment("=1")
	assert.Error(t, err)
	_, _, err = parseAssignment("flag")
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	assert.Nil(t, parseValue("NULL"))
	assert.Equal(t, false, parseValue("false"))
	assert.Equal(t, int64(-4), parseValue("-4"))
	assert.Equal(t, 2.25, parseValue("2.25"))
	assert.Equal(t, "42", parseValue(`"42"`))
	assert.Equal(t, "plain", parseValue("plain"))
}

func TestSuggest(t *testing.T) {
	tables := []string{"users", "user_roles", "orders"}

	assert.Equal(t, []string{"users"}, suggest("userz", tables))
	assert.Contains(t, suggest("usr", tables), "users")
	assert.Empty(t, suggest("invoices", tables))
}
