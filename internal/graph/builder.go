package graph

import (
	"strings"

	"github.com/dbsmedya/sqlora/internal/types"
)

// Build constructs the foreign key dependency graph for a schema. Each
// foreign key adds an edge from the referenced table to the referencing one.
// Self-references add no edge: they never constrain table ordering and the
// DDL generator always defers them.
func Build(schema *types.Schema) *Graph {
	g := NewGraph()

	for _, table := range schema.Tables() {
		g.AddNode(table.Name)
	}

	for _, table := range schema.Tables() {
		for _, fk := range table.ForeignKeys {
			if strings.EqualFold(fk.RefTable, table.Name) {
				continue
			}
			ref := schema.Table(fk.RefTable)
			if ref == nil {
				// Dangling reference; SQLite tolerates these with
				// enforcement off. There is nothing to order against.
				continue
			}
			g.AddEdge(ref.Name, table.Name)
		}
	}

	return g
}
