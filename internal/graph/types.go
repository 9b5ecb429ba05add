// Package graph provides the foreign key dependency graph and ordering
// algorithms used to sequence Oracle DDL.
package graph

// Node represents a table in the dependency graph.
type Node struct {
	Name string
}

// Edge represents a referential dependency: From is the referenced (parent)
// table, To is the referencing (child) table. The child's CREATE TABLE must
// come after the parent's unless the constraint is deferred.
type Edge struct {
	From string
	To   string
}

// Graph is the foreign key dependency structure for one schema. Node
// insertion order is preserved so orderings are deterministic and ties fall
// back to source declaration order.
type Graph struct {
	Nodes    map[string]*Node
	Children map[string][]string // parent -> child table names (outgoing edges)
	Parents  map[string][]string // child -> parent table names (incoming edges)
	order    []string            // insertion order of nodes
	edgeSet  map[Edge]bool       // dedupe: two FKs to the same table are one edge
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:    make(map[string]*Node),
		Children: make(map[string][]string),
		Parents:  make(map[string][]string),
		edgeSet:  make(map[Edge]bool),
	}
}

// AddNode adds a table node to the graph. Re-adding is a no-op.
func (g *Graph) AddNode(name string) {
	if _, exists := g.Nodes[name]; exists {
		return
	}
	g.Nodes[name] = &Node{Name: name}
	g.order = append(g.order, name)
}

// AddEdge adds a parent -> child dependency. Duplicate edges collapse; a
// second foreign key between the same pair adds no ordering information.
func (g *Graph) AddEdge(parent, child string) {
	edge := Edge{From: parent, To: child}
	if g.edgeSet[edge] {
		return
	}
	g.edgeSet[edge] = true

	g.Children[parent] = append(g.Children[parent], child)
	g.Parents[child] = append(g.Parents[child], parent)
}

// HasEdge reports whether the parent -> child dependency exists.
func (g *Graph) HasEdge(parent, child string) bool {
	return g.edgeSet[Edge{From: parent, To: child}]
}

// GetChildren returns all direct children of a table.
func (g *Graph) GetChildren(parent string) []string {
	return g.Children[parent]
}

// GetParents returns all direct parents of a table.
func (g *Graph) GetParents(child string) []string {
	return g.Parents[child]
}

// HasNode returns true if the graph contains a node with the given name.
func (g *Graph) HasNode(name string) bool {
	_, exists := g.Nodes[name]
	return exists
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edgeSet)
}

// AllNodes returns all table names in insertion order.
func (g *Graph) AllNodes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// AllEdges returns all edges, grouped by parent in insertion order.
func (g *Graph) AllEdges() []Edge {
	var edges []Edge
	for _, parent := range g.order {
		for _, child := range g.Children[parent] {
			edges = append(edges, Edge{From: parent, To: child})
		}
	}
	return edges
}

// InDegree returns the number of incoming edges (parents) for a node.
func (g *Graph) InDegree(name string) int {
	return len(g.Parents[name])
}

// OutDegree returns the number of outgoing edges (children) for a node.
func (g *Graph) OutDegree(name string) int {
	return len(g.Children[name])
}

// withoutEdges returns a copy of the graph with the given edges removed,
// preserving node insertion order.
func (g *Graph) withoutEdges(removed map[Edge]bool) *Graph {
	reduced := NewGraph()
	for _, name := range g.order {
		reduced.AddNode(name)
	}
	for _, edge := range g.AllEdges() {
		if !removed[edge] {
			reduced.AddEdge(edge.From, edge.To)
		}
	}
	return reduced
}
