package graph

import (
	"reflect"
	"testing"
)

func TestAddNodeIdempotent(t *testing.T) {
	g := NewGraph()
	g.AddNode("users")
	g.AddNode("users")

	if g.NodeCount() != 1 {
		t.Errorf("NodeCount() = %d, expected 1", g.NodeCount())
	}
}

func TestAddEdgeDeduplicates(t *testing.T) {
	g := NewGraph()
	g.AddNode("users")
	g.AddNode("orders")

	// Two foreign keys between the same tables add one ordering edge.
	g.AddEdge("users", "orders")
	g.AddEdge("users", "orders")

	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, expected 1", g.EdgeCount())
	}
	if !g.HasEdge("users", "orders") {
		t.Error("HasEdge(users, orders) = false, expected true")
	}
	if g.HasEdge("orders", "users") {
		t.Error("HasEdge(orders, users) = true, expected false")
	}
}

func TestDegrees(t *testing.T) {
	g := NewGraph()
	for _, n := range []string{"a", "b", "c"} {
		g.AddNode(n)
	}
	g.AddEdge("a", "b")
	g.AddEdge("a", "c")
	g.AddEdge("b", "c")

	if g.OutDegree("a") != 2 {
		t.Errorf("OutDegree(a) = %d, expected 2", g.OutDegree("a"))
	}
	if g.InDegree("c") != 2 {
		t.Errorf("InDegree(c) = %d, expected 2", g.InDegree("c"))
	}
	if g.InDegree("a") != 0 {
		t.Errorf("InDegree(a) = %d, expected 0", g.InDegree("a"))
	}
}

func TestAllNodesPreservesInsertionOrder(t *testing.T) {
	g := NewGraph()
	names := []string{"zeta", "alpha", "mid"}
	for _, n := range names {
		g.AddNode(n)
	}

	if got := g.AllNodes(); !reflect.DeepEqual(got, names) {
		t.Errorf("AllNodes() = %v, expected %v", got, names)
	}
}

func TestAllEdges(t *testing.T) {
	g := NewGraph()
	for _, n := range []string{"a", "b", "c"} {
		g.AddNode(n)
	}
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")

	edges := g.AllEdges()
	expected := []Edge{{From: "a", To: "b"}, {From: "b", To: "c"}}
	if !reflect.DeepEqual(edges, expected) {
		t.Errorf("AllEdges() = %v, expected %v", edges, expected)
	}
}

func TestWithoutEdges(t *testing.T) {
	g := NewGraph()
	for _, n := range []string{"a", "b"} {
		g.AddNode(n)
	}
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")

	reduced := g.withoutEdges(map[Edge]bool{{From: "b", To: "a"}: true})

	if reduced.EdgeCount() != 1 {
		t.Errorf("reduced EdgeCount() = %d, expected 1", reduced.EdgeCount())
	}
	if reduced.HasEdge("b", "a") {
		t.Error("removed edge still present in reduced graph")
	}
	if !reflect.DeepEqual(reduced.AllNodes(), g.AllNodes()) {
		t.Error("reduced graph must preserve node order")
	}
}
