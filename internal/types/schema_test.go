package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAffinityString(t *testing.T) {
	tests := []struct {
		affinity Affinity
		expected string
	}{
		{AffinityText, "TEXT"},
		{AffinityInteger, "INTEGER"},
		{AffinityReal, "REAL"},
		{AffinityBlob, "BLOB"},
		{AffinityNumeric, "NUMERIC"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.affinity.String())
		})
	}
}

func TestMigrationModeString(t *testing.T) {
	assert.Equal(t, "full", ModeFull.String())
	assert.Equal(t, "schema-only", ModeSchemaOnly.String())
	assert.Equal(t, "fk-skeleton", ModeFKSkeleton.String())
}

func TestSchemaAddTable(t *testing.T) {
	s := NewSchema("test.sqlite")

	require.NoError(t, s.AddTable(&TableDescriptor{Name: "users"}))
	require.NoError(t, s.AddTable(&TableDescriptor{Name: "orders"}))

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"users", "orders"}, s.TableNames())
}

func TestSchemaAddTableDuplicate(t *testing.T) {
	s := NewSchema("test.sqlite")

	require.NoError(t, s.AddTable(&TableDescriptor{Name: "users"}))

	// Lookup keys are case-insensitive, so a differently cased duplicate
	// must still be rejected.
	err := s.AddTable(&TableDescriptor{Name: "USERS"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate table name")
}

func TestSchemaTableLookup(t *testing.T) {
	s := NewSchema("test.sqlite")
	require.NoError(t, s.AddTable(&TableDescriptor{Name: "users"}))

	assert.NotNil(t, s.Table("users"))
	assert.NotNil(t, s.Table("USERS"))
	assert.Nil(t, s.Table("missing"))
}

func TestSchemaPreservesOrder(t *testing.T) {
	s := NewSchema("test.sqlite")
	names := []string{"zeta", "alpha", "mid"}
	for _, n := range names {
		require.NoError(t, s.AddTable(&TableDescriptor{Name: n}))
	}

	assert.Equal(t, names, s.TableNames())
}

func TestTableDescriptorColumn(t *testing.T) {
	table := &TableDescriptor{
		Name: "users",
		Columns: []ColumnDescriptor{
			{Name: "id", Affinity: AffinityInteger},
			{Name: "name", Affinity: AffinityText},
		},
	}

	col := table.Column("NAME")
	require.NotNil(t, col)
	assert.Equal(t, "name", col.Name)
	assert.Nil(t, table.Column("missing"))
}

func TestTableDescriptorKeyMembership(t *testing.T) {
	table := &TableDescriptor{
		Name:        "orders",
		PrimaryKeys: []string{"id"},
		ForeignKeys: []ForeignKeyDescriptor{
			{Columns: []string{"user_id"}, RefTable: "users", RefColumns: []string{"id"}},
		},
	}

	assert.True(t, table.IsPrimaryKey("id"))
	assert.True(t, table.IsPrimaryKey("ID"))
	assert.False(t, table.IsPrimaryKey("user_id"))

	assert.True(t, table.IsForeignKey("user_id"))
	assert.False(t, table.IsForeignKey("id"))
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected int64
	}{
		{"int64", int64(42), 42},
		{"int", int(100), 100},
		{"int32", int32(200), 200},
		{"uint64", uint64(1000), 1000},
		{"float64", float64(12.0), 12},
		{"string number", "345", 345},
		{"bytes number", []byte("678"), 678},
		{"string garbage", "abc", 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToInt64(tt.input))
		})
	}
}
