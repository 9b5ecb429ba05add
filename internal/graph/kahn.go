package graph

import (
	"fmt"
	"strings"
)

// readyNodes returns the nodes with in-degree 0, in insertion order so the
// resulting sort is deterministic.
func (g *Graph) readyNodes(inDegree map[string]int) []string {
	var ready []string
	for _, name := range g.order {
		if inDegree[name] == 0 {
			ready = append(ready, name)
		}
	}
	return ready
}

// CalculateInDegrees computes the number of incoming edges for each node.
// This is the first step of Kahn's algorithm for topological sorting.
func (g *Graph) CalculateInDegrees() map[string]int {
	inDegree := make(map[string]int)

	for name := range g.Nodes {
		inDegree[name] = 0
	}

	for _, children := range g.Children {
		for _, child := range children {
			inDegree[child]++
		}
	}

	return inDegree
}

// CycleInfo contains information about incomplete processing due to cycles.
type CycleInfo struct {
	TotalNodes        int      // Total number of nodes in the graph
	ProcessedNodes    int      // Number of nodes successfully processed
	UnprocessedNodes  []string // Nodes that couldn't be processed (part of or blocked by cycle)
	CycleParticipants []string // Nodes that are actually part of a cycle (subset of UnprocessedNodes)
	CyclePath         []string // Ordered path showing the cycle (e.g., [A, B, C, A])
}

// CycleError reports a reference cycle with the tables involved and the
// tables blocked behind it.
type CycleError struct {
	Info *CycleInfo
}

func (e *CycleError) Error() string {
	msg := fmt.Sprintf("cycle detected in foreign key graph: %d of %d tables could not be ordered",
		len(e.Info.UnprocessedNodes), e.Info.TotalNodes)

	if len(e.Info.CyclePath) > 0 {
		msg += fmt.Sprintf("\nCycle path: %s", strings.Join(e.Info.CyclePath, " -> "))
	}

	if len(e.Info.CycleParticipants) > 0 {
		msg += fmt.Sprintf("\nTables in cycle: %s", strings.Join(e.Info.CycleParticipants, ", "))
	}

	if len(e.Info.UnprocessedNodes) > len(e.Info.CycleParticipants) {
		participantSet := make(map[string]bool)
		for _, p := range e.Info.CycleParticipants {
			participantSet[p] = true
		}

		var blocked []string
		for _, u := range e.Info.UnprocessedNodes {
			if !participantSet[u] {
				blocked = append(blocked, u)
			}
		}

		if len(blocked) > 0 {
			msg += fmt.Sprintf("\nTables blocked by cycle: %s", strings.Join(blocked, ", "))
		}
	}

	return msg
}

// DetectIncompleteProcessing runs Kahn's algorithm and returns information
// about any nodes that couldn't be processed. If all nodes are processed,
// returns nil (no cycle).
func (g *Graph) DetectIncompleteProcessing() *CycleInfo {
	inDegree := g.CalculateInDegrees()
	queue := g.readyNodes(inDegree)

	processed := make(map[string]bool)

	for i := 0; i < len(queue); i++ {
		node := queue[i]
		processed[node] = true

		for _, child := range g.GetChildren(node) {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(processed) == len(g.Nodes) {
		return nil // No cycle detected
	}

	var unprocessed []string
	for _, name := range g.order {
		if !processed[name] {
			unprocessed = append(unprocessed, name)
		}
	}

	unprocessedSet := make(map[string]bool)
	for _, node := range unprocessed {
		unprocessedSet[node] = true
	}

	var cycleParticipants []string
	for _, node := range unprocessed {
		if g.canReachSelf(node, unprocessedSet) {
			cycleParticipants = append(cycleParticipants, node)
		}
	}

	var cyclePath []string
	if len(cycleParticipants) > 0 {
		cyclePath = g.FindCyclePath(cycleParticipants[0], unprocessedSet)
	}

	return &CycleInfo{
		TotalNodes:        len(g.Nodes),
		ProcessedNodes:    len(processed),
		UnprocessedNodes:  unprocessed,
		CycleParticipants: cycleParticipants,
		CyclePath:         cyclePath,
	}
}

// HasCycle returns true if the dependency graph contains a cycle.
func (g *Graph) HasCycle() bool {
	return g.DetectIncompleteProcessing() != nil
}

// FindCyclePath finds the actual path that forms a cycle starting from the given node.
// Returns the ordered list of nodes forming the cycle (including the start node at both ends).
func (g *Graph) FindCyclePath(start string, allowedNodes map[string]bool) []string {
	visited := make(map[string]bool)
	path := []string{start}

	if g.dfsFindPath(start, start, visited, allowedNodes, &path) {
		return path
	}

	return nil
}

// dfsFindPath performs DFS to find a path back to the target node.
func (g *Graph) dfsFindPath(current, target string, visited, allowedNodes map[string]bool, path *[]string) bool {
	for _, child := range g.GetChildren(current) {
		if !allowedNodes[child] {
			continue
		}

		// Found path back to target - append target to complete the cycle
		if child == target {
			*path = append(*path, target)
			return true
		}

		if visited[child] {
			continue
		}

		visited[child] = true
		*path = append(*path, child)

		if g.dfsFindPath(child, target, visited, allowedNodes, path) {
			return true
		}

		// Backtrack
		*path = (*path)[:len(*path)-1]
	}

	return false
}

// canReachSelf checks if a node can reach itself through the subgraph
// defined by the allowedNodes set. Uses DFS with path tracking.
func (g *Graph) canReachSelf(start string, allowedNodes map[string]bool) bool {
	visited := make(map[string]bool)
	return g.dfsCanReach(start, start, visited, allowedNodes, true)
}

// dfsCanReach performs DFS to check if we can reach the target node.
// isStart is true only for the initial call to avoid immediate self-match.
func (g *Graph) dfsCanReach(current, target string, visited, allowedNodes map[string]bool, isStart bool) bool {
	if current == target && !isStart {
		return true
	}

	if visited[current] {
		return false
	}
	if !allowedNodes[current] {
		return false
	}

	visited[current] = true

	for _, child := range g.GetChildren(current) {
		if g.dfsCanReach(child, target, visited, allowedNodes, false) {
			return true
		}
	}

	return false
}

// TopologicalSort returns tables in topological order using Kahn's algorithm:
// referenced tables first, referencing tables after. Returns a CycleError if
// the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]string, error) {
	inDegree := g.CalculateInDegrees()
	queue := g.readyNodes(inDegree)

	var result []string

	for i := 0; i < len(queue); i++ {
		node := queue[i]
		result = append(result, node)

		for _, child := range g.GetChildren(node) {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	processed := len(result)

	if processed != len(g.Nodes) {
		cycleInfo := g.DetectIncompleteProcessing()
		return nil, &CycleError{Info: cycleInfo}
	}

	return result, nil
}

// DeferrableEdges returns the edges that must be deferred to break every
// cycle: all edges whose endpoints both participate in a cycle. Deferring a
// superset of the strictly necessary edges is safe since deferred constraints
// are added only after every table exists.
func (g *Graph) DeferrableEdges() map[Edge]bool {
	info := g.DetectIncompleteProcessing()
	if info == nil {
		return nil
	}

	participants := make(map[string]bool)
	for _, p := range info.CycleParticipants {
		participants[p] = true
	}

	deferred := make(map[Edge]bool)
	for _, edge := range g.AllEdges() {
		if participants[edge.From] && participants[edge.To] {
			deferred[edge] = true
		}
	}
	return deferred
}

// CreationOrder returns the CREATE TABLE order plus the set of edges whose
// foreign key constraints must be deferred to ALTER TABLE statements.
// Cycles never cause failure here: the offending edges are removed and the
// reduced graph is sorted. An error is returned only if deferral somehow
// leaves a cycle behind, which indicates a defect.
func (g *Graph) CreationOrder() ([]string, map[Edge]bool, error) {
	order, err := g.TopologicalSort()
	if err == nil {
		return order, nil, nil
	}

	deferred := g.DeferrableEdges()
	reduced := g.withoutEdges(deferred)

	order, err = reduced.TopologicalSort()
	if err != nil {
		return nil, nil, err
	}
	return order, deferred, nil
}

// DropOrder returns the order for dropping tables: children before parents,
// so no table is dropped while a referencing table still exists. Deferred
// edges are ignored for ordering, mirroring CreationOrder.
func (g *Graph) DropOrder() ([]string, error) {
	order, _, err := g.CreationOrder()
	if err != nil {
		return nil, err
	}

	dropOrder := make([]string, len(order))
	for i, table := range order {
		dropOrder[len(order)-1-i] = table
	}

	return dropOrder, nil
}
