package typemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/sqlora/internal/types"
)

func TestResolveAffinity(t *testing.T) {
	tests := []struct {
		declared string
		expected types.Affinity
	}{
		{"INTEGER", types.AffinityInteger},
		{"int", types.AffinityInteger},
		{"BIGINT", types.AffinityInteger},
		{"UNSIGNED BIG INT", types.AffinityInteger},
		{"TINYINT(1)", types.AffinityInteger},
		{"TEXT", types.AffinityText},
		{"VARCHAR(255)", types.AffinityText},
		{"NVARCHAR(100)", types.AffinityText},
		{"CHARACTER(20)", types.AffinityText},
		{"CLOB", types.AffinityText},
		{"BLOB", types.AffinityBlob},
		{"", types.AffinityBlob},
		{"REAL", types.AffinityReal},
		{"DOUBLE PRECISION", types.AffinityReal},
		{"FLOAT", types.AffinityReal},
		{"NUMERIC", types.AffinityNumeric},
		{"DECIMAL(10,5)", types.AffinityNumeric},
		{"BOOLEAN", types.AffinityNumeric},
		{"DATE", types.AffinityNumeric},
		{"DATETIME", types.AffinityNumeric},
	}

	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveAffinity(tt.declared))
		})
	}
}

// FLOATING POINT is a known SQLite oddity: the INT in POINT wins, giving
// INTEGER affinity. The mapper must follow the rule, not intuition.
func TestResolveAffinityFloatingPoint(t *testing.T) {
	assert.Equal(t, types.AffinityInteger, ResolveAffinity("FLOATING POINT"))
}

func TestMapTypeTotalAndDeterministic(t *testing.T) {
	affinities := []types.Affinity{
		types.AffinityText,
		types.AffinityInteger,
		types.AffinityReal,
		types.AffinityBlob,
		types.AffinityNumeric,
	}

	for _, aff := range affinities {
		col := types.ColumnDescriptor{Name: "c", Affinity: aff}

		first, err := MapType(col, false, Options{})
		require.NoError(t, err, "affinity %s must map", aff)
		require.NotEmpty(t, first)

		for i := 0; i < 3; i++ {
			again, err := MapType(col, false, Options{})
			require.NoError(t, err)
			assert.Equal(t, first, again, "mapping for %s must be deterministic", aff)
		}
	}
}

func TestMapTypeBasics(t *testing.T) {
	tests := []struct {
		name     string
		col      types.ColumnDescriptor
		singlePK bool
		opts     Options
		expected string
	}{
		{
			name:     "text",
			col:      types.ColumnDescriptor{Name: "name", Affinity: types.AffinityText},
			expected: "VARCHAR2(4000)",
		},
		{
			name:     "integer",
			col:      types.ColumnDescriptor{Name: "qty", Affinity: types.AffinityInteger},
			expected: "NUMBER(19)",
		},
		{
			name:     "integer single-column pk becomes identity",
			col:      types.ColumnDescriptor{Name: "id", Affinity: types.AffinityInteger, PrimaryKey: true},
			singlePK: true,
			expected: "NUMBER GENERATED BY DEFAULT AS IDENTITY",
		},
		{
			name:     "integer in composite pk stays plain",
			col:      types.ColumnDescriptor{Name: "id", Affinity: types.AffinityInteger, PrimaryKey: true},
			singlePK: false,
			expected: "NUMBER(19)",
		},
		{
			name:     "real",
			col:      types.ColumnDescriptor{Name: "price", Affinity: types.AffinityReal},
			expected: "BINARY_DOUBLE",
		},
		{
			name:     "blob",
			col:      types.ColumnDescriptor{Name: "payload", Affinity: types.AffinityBlob},
			expected: "BLOB",
		},
		{
			name:     "numeric without declared precision",
			col:      types.ColumnDescriptor{Name: "amount", Affinity: types.AffinityNumeric},
			expected: "NUMBER(38,10)",
		},
		{
			name:     "numeric with declared precision",
			col:      types.ColumnDescriptor{Name: "amount", DeclaredType: "DECIMAL(10,2)", Affinity: types.AffinityNumeric},
			expected: "NUMBER(10,2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MapType(tt.col, tt.singlePK, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMapTypeUseVarchar(t *testing.T) {
	opts := Options{UseVarchar: true}

	for _, aff := range []types.Affinity{types.AffinityInteger, types.AffinityReal, types.AffinityNumeric} {
		got, err := MapType(types.ColumnDescriptor{Name: "c", Affinity: aff}, false, opts)
		require.NoError(t, err)
		assert.Equal(t, "VARCHAR2(4000)", got, "affinity %s", aff)
	}

	// BLOB is never string-encoded.
	got, err := MapType(types.ColumnDescriptor{Name: "c", Affinity: types.AffinityBlob}, false, opts)
	require.NoError(t, err)
	assert.Equal(t, "BLOB", got)

	// Identity keys survive the varchar fallback so FK targets stay numeric.
	got, err = MapType(types.ColumnDescriptor{Name: "id", Affinity: types.AffinityInteger, PrimaryKey: true}, true, opts)
	require.NoError(t, err)
	assert.Equal(t, "NUMBER GENERATED BY DEFAULT AS IDENTITY", got)
}

func TestMapTypeSampledTextPromotesToClob(t *testing.T) {
	opts := Options{
		SampleText:    true,
		MaxTextLength: map[string]int64{"body": 12000, "title": 80},
	}

	got, err := MapType(types.ColumnDescriptor{Name: "body", Affinity: types.AffinityText}, false, opts)
	require.NoError(t, err)
	assert.Equal(t, "CLOB", got)

	got, err = MapType(types.ColumnDescriptor{Name: "title", Affinity: types.AffinityText}, false, opts)
	require.NoError(t, err)
	assert.Equal(t, "VARCHAR2(4000)", got)

	// Without sampling the observed lengths are ignored.
	got, err = MapType(types.ColumnDescriptor{Name: "body", Affinity: types.AffinityText}, false, Options{MaxTextLength: opts.MaxTextLength})
	require.NoError(t, err)
	assert.Equal(t, "VARCHAR2(4000)", got)
}

func TestMapTypeUnknownAffinity(t *testing.T) {
	col := types.ColumnDescriptor{Name: "weird", Affinity: types.Affinity(99)}

	_, err := MapType(col, false, Options{})
	require.Error(t, err)

	var mapErr *TypeMappingError
	require.ErrorAs(t, err, &mapErr)
	assert.Equal(t, "weird", mapErr.Column)
}

func TestDeclaredPrecisionClamping(t *testing.T) {
	tests := []struct {
		declared  string
		precision int
		scale     int
		ok        bool
	}{
		{"DECIMAL(10,2)", 10, 2, true},
		{"DECIMAL(10)", 10, 0, true},
		{"DECIMAL(99,50)", 38, 38, true},
		{"DECIMAL(0,0)", 1, 0, true},
		{"NUMERIC( 12 , 4 )", 12, 4, true},
		{"NUMERIC", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			p, s, ok := declaredPrecision(tt.declared)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.precision, p)
				assert.Equal(t, tt.scale, s)
				assert.LessOrEqual(t, s, p)
			}
		})
	}
}

func TestResolvePopulatesSchema(t *testing.T) {
	schema := types.NewSchema("app.sqlite")
	require.NoError(t, schema.AddTable(&types.TableDescriptor{
		Name: "users",
		Columns: []types.ColumnDescriptor{
			{Name: "id", Affinity: types.AffinityInteger, PrimaryKey: true},
			{Name: "name", Affinity: types.AffinityText},
		},
		PrimaryKeys: []string{"id"},
	}))

	require.NoError(t, Resolve(schema, Options{}))

	users := schema.Table("users")
	assert.Equal(t, "NUMBER GENERATED BY DEFAULT AS IDENTITY", users.Columns[0].TargetType)
	assert.Equal(t, "VARCHAR2(4000)", users.Columns[1].TargetType)
}

func TestResolveSampledLengthsAreTableScoped(t *testing.T) {
	schema := types.NewSchema("app.sqlite")
	require.NoError(t, schema.AddTable(&types.TableDescriptor{
		Name: "articles",
		Columns: []types.ColumnDescriptor{
			{Name: "notes", Affinity: types.AffinityText},
		},
	}))
	require.NoError(t, schema.AddTable(&types.TableDescriptor{
		Name: "invoices",
		Columns: []types.ColumnDescriptor{
			{Name: "notes", Affinity: types.AffinityText},
		},
	}))

	require.NoError(t, Resolve(schema, Options{
		SampleText: true,
		MaxTextLength: map[string]int64{
			"articles.notes": 12000,
			"invoices.notes": 80,
		},
	}))

	assert.Equal(t, "CLOB", schema.Table("articles").Columns[0].TargetType)
	assert.Equal(t, "VARCHAR2(4000)", schema.Table("invoices").Columns[0].TargetType,
		"a long column in one table must not promote a same-named column elsewhere")
}
