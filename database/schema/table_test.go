package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/bear/database/schema"
)

func TestAddColumn(t *testing.T) {
	table := schema.NewTable("users")

	require.NoError(t, table.AddColumn(schema.Column{Name: "id", Type: schema.TypeInteger}))
	require.NoError(t, table.AddColumn(schema.Column{Name: "name"}))

	c, ok := table.Column("name")
	require.True(t, ok)
	assert.Equal(t, schema.TypeString, c.Type, "type defaults to string")

	err := table.AddColumn(schema.Column{Name: "blob", Type: "blobby"})
	assert.ErrorIs(t, err, schema.ErrSchema)

	require.NoError(t, table.AddColumn(schema.Column{Name: "name", Type: schema.TypeText}))
	assert.Equal(t, []string{"id", "name"}, table.ColumnNames(), "re-adding replaces in place")
	c, _ = table.Column("name")
	assert.Equal(t, schema.TypeText, c.Type)
}

func TestColumnReferences(t *testing.T) {
	t.Run("index before column fails", func(t *testing.T) {
		table := schema.NewTable("posts")
		err := table.AddIndex(schema.Index{Name: "title_idx", Columns: []string{"title"}})

		var se *schema.Error
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "posts", se.Table)
		assert.ErrorIs(t, err, schema.ErrSchema)
	})

	t.Run("index after column succeeds", func(t *testing.T) {
		table := schema.NewTable("posts")
		require.NoError(t, table.AddColumn(schema.Column{Name: "title"}))
		require.NoError(t, table.AddIndex(schema.Index{Name: "title_idx", Columns: []string{"title"}}))
	})

	t.Run("constraint before column fails", func(t *testing.T) {
		table := schema.NewTable("posts")
		err := table.AddConstraint(schema.Constraint{Name: "primary", Type: schema.ConstraintPrimary, Columns: []string{"id"}})
		assert.ErrorIs(t, err, schema.ErrSchema)
	})

	t.Run("constraint after column succeeds", func(t *testing.T) {
		table := schema.NewTable("posts")
		require.NoError(t, table.AddColumn(schema.Column{Name: "id", Type: schema.TypeInteger}))
		require.NoError(t, table.AddConstraint(schema.Constraint{Name: "primary", Type: schema.ConstraintPrimary, Columns: []string{"id"}}))
		assert.Equal(t, []string{"id"}, table.PrimaryKey())
	})
}

func TestAddIndex_Validation(t *testing.T) {
	table := schema.NewTable("posts")
	require.NoError(t, table.AddColumn(schema.Column{Name: "body", Type: schema.TypeText}))

	tests := []struct {
		name string
		idx  schema.Index
	}{
		{"no name", schema.Index{Columns: []string{"body"}}},
		{"bad type", schema.Index{Name: "i", Type: "spatial", Columns: []string{"body"}}},
		{"no columns", schema.Index{Name: "i"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, table.AddIndex(tt.idx), schema.ErrSchema)
		})
	}

	require.NoError(t, table.AddIndex(schema.Index{Name: "body_ft", Type: schema.IndexFulltext, Columns: []string{"body"}}))
	idx, ok := table.Index("body_ft")
	require.True(t, ok)
	assert.Equal(t, schema.IndexFulltext, idx.Type)
}

func TestAddConstraint_Validation(t *testing.T) {
	table := schema.NewTable("posts")
	require.NoError(t, table.AddColumn(schema.Column{Name: "author_id", Type: schema.TypeInteger}))

	tests := []struct {
		name string
		c    schema.Constraint
	}{
		{"bad type", schema.Constraint{Name: "c", Type: "check", Columns: []string{"author_id"}}},
		{"no columns", schema.Constraint{Name: "c", Type: schema.ConstraintUnique}},
		{"foreign without reference", schema.Constraint{Name: "c", Type: schema.ConstraintForeign, Columns: []string{"author_id"}}},
		{"bad action", schema.Constraint{
			Name: "c", Type: schema.ConstraintForeign, Columns: []string{"author_id"},
			References: &schema.Reference{Table: "users", Columns: []string{"id"}},
			Delete:     "explode",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, table.AddConstraint(tt.c), schema.ErrSchema)
		})
	}
}

func TestAddConstraint_ForeignKeysMerge(t *testing.T) {
	table := schema.NewTable("line_items")
	require.NoError(t, table.AddColumn(schema.Column{Name: "order_id", Type: schema.TypeInteger}))
	require.NoError(t, table.AddColumn(schema.Column{Name: "order_rev", Type: schema.TypeInteger}))

	require.NoError(t, table.AddConstraint(schema.Constraint{
		Name: "order_fk", Type: schema.ConstraintForeign, Columns: []string{"order_id"},
		References: &schema.Reference{Table: "orders", Columns: []string{"id"}},
		Delete:     schema.ActionCascade,
	}))
	require.NoError(t, table.AddConstraint(schema.Constraint{
		Name: "order_fk", Type: schema.ConstraintForeign, Columns: []string{"order_rev"},
		References: &schema.Reference{Table: "orders", Columns: []string{"rev"}},
	}))

	require.Len(t, table.Constraints(), 1)
	c, _ := table.Constraint("order_fk")
	assert.Equal(t, []string{"order_id", "order_rev"}, c.Columns)
	assert.Equal(t, []string{"id", "rev"}, c.References.Columns)
	assert.Equal(t, schema.ActionCascade, c.Delete)
	assert.Equal(t, schema.ActionRestrict, c.Update)
}

func TestAddConstraint_UniqueReplaces(t *testing.T) {
	table := schema.NewTable("users")
	require.NoError(t, table.AddColumn(schema.Column{Name: "email"}))
	require.NoError(t, table.AddColumn(schema.Column{Name: "login"}))

	require.NoError(t, table.AddConstraint(schema.Constraint{Name: "u", Type: schema.ConstraintUnique, Columns: []string{"email"}}))
	require.NoError(t, table.AddConstraint(schema.Constraint{Name: "u", Type: schema.ConstraintUnique, Columns: []string{"login"}}))

	c, _ := table.Constraint("u")
	assert.Equal(t, []string{"login"}, c.Columns)
}

func TestRemoveColumn(t *testing.T) {
	table := schema.NewTable("users")
	require.NoError(t, table.AddColumn(schema.Column{Name: "id", Type: schema.TypeInteger}))
	require.NoError(t, table.AddColumn(schema.Column{Name: "nick"}))
	require.NoError(t, table.AddConstraint(schema.Constraint{Name: "primary", Type: schema.ConstraintPrimary, Columns: []string{"id"}}))

	assert.ErrorIs(t, table.RemoveColumn("id"), schema.ErrSchema)
	require.NoError(t, table.RemoveColumn("nick"))
	assert.False(t, table.HasColumn("nick"))

	table.DropConstraint("primary")
	require.NoError(t, table.RemoveColumn("id"))
	assert.Empty(t, table.Columns())
}
