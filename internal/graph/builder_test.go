package graph

import (
	"testing"

	"github.com/dbsmedya/sqlora/internal/types"
)

func schemaFixture(t *testing.T, tables ...*types.TableDescriptor) *types.Schema {
	t.Helper()
	s := types.NewSchema("fixture.sqlite")
	for _, table := range tables {
		if err := s.AddTable(table); err != nil {
			t.Fatalf("AddTable(%s) failed: %v", table.Name, err)
		}
	}
	return s
}

func TestBuildSimpleReference(t *testing.T) {
	schema := schemaFixture(t,
		&types.TableDescriptor{Name: "users"},
		&types.TableDescriptor{
			Name: "orders",
			ForeignKeys: []types.ForeignKeyDescriptor{
				{Columns: []string{"user_id"}, RefTable: "users", RefColumns: []string{"id"}},
			},
		},
	)

	g := Build(schema)

	if g.NodeCount() != 2 {
		t.Fatalf("NodeCount() = %d, expected 2", g.NodeCount())
	}
	if !g.HasEdge("users", "orders") {
		t.Error("expected edge users -> orders")
	}
}

func TestBuildSelfReferenceAddsNoEdge(t *testing.T) {
	schema := schemaFixture(t,
		&types.TableDescriptor{
			Name: "t",
			ForeignKeys: []types.ForeignKeyDescriptor{
				{Columns: []string{"parent_id"}, RefTable: "t", RefColumns: []string{"id"}},
			},
		},
	)

	g := Build(schema)

	if g.EdgeCount() != 0 {
		t.Errorf("EdgeCount() = %d, expected 0 for self-reference", g.EdgeCount())
	}
	if g.HasCycle() {
		t.Error("self-reference must not register as a graph cycle")
	}
}

func TestBuildCaseInsensitiveReference(t *testing.T) {
	schema := schemaFixture(t,
		&types.TableDescriptor{Name: "Users"},
		&types.TableDescriptor{
			Name: "orders",
			ForeignKeys: []types.ForeignKeyDescriptor{
				{Columns: []string{"user_id"}, RefTable: "USERS", RefColumns: []string{"id"}},
			},
		},
	)

	g := Build(schema)

	// The edge uses the declared table name, not the FK's spelling.
	if !g.HasEdge("Users", "orders") {
		t.Error("expected edge Users -> orders despite case mismatch in FK")
	}
}

func TestBuildDanglingReferenceIgnored(t *testing.T) {
	schema := schemaFixture(t,
		&types.TableDescriptor{
			Name: "orders",
			ForeignKeys: []types.ForeignKeyDescriptor{
				{Columns: []string{"ghost_id"}, RefTable: "ghosts", RefColumns: []string{"id"}},
			},
		},
	)

	g := Build(schema)

	if g.NodeCount() != 1 {
		t.Errorf("NodeCount() = %d, expected 1", g.NodeCount())
	}
	if g.EdgeCount() != 0 {
		t.Errorf("EdgeCount() = %d, expected 0", g.EdgeCount())
	}
}

func TestBuildCycle(t *testing.T) {
	schema := schemaFixture(t,
		&types.TableDescriptor{
			Name: "employees",
			ForeignKeys: []types.ForeignKeyDescriptor{
				{Columns: []string{"dept_id"}, RefTable: "departments", RefColumns: []string{"id"}},
			},
		},
		&types.TableDescriptor{
			Name: "departments",
			ForeignKeys: []types.ForeignKeyDescriptor{
				{Columns: []string{"manager_id"}, RefTable: "employees", RefColumns: []string{"id"}},
			},
		},
	)

	g := Build(schema)

	if !g.HasCycle() {
		t.Fatal("expected mutual references to form a cycle")
	}

	order, deferred, err := g.CreationOrder()
	if err != nil {
		t.Fatalf("CreationOrder() error = %v", err)
	}
	if len(order) != 2 {
		t.Errorf("order = %v", order)
	}
	if len(deferred) != 2 {
		t.Errorf("deferred = %v, expected both edges", deferred)
	}
}

func TestBuildPreservesDeclarationOrder(t *testing.T) {
	schema := schemaFixture(t,
		&types.TableDescriptor{Name: "gamma"},
		&types.TableDescriptor{Name: "alpha"},
		&types.TableDescriptor{Name: "beta"},
	)

	g := Build(schema)

	nodes := g.AllNodes()
	expected := []string{"gamma", "alpha", "beta"}
	for i, n := range expected {
		if nodes[i] != n {
			t.Fatalf("AllNodes() = %v, expected %v", nodes, expected)
		}
	}
}
