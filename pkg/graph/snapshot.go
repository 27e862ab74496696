package graph

import (
	"sort"

	"github.com/ha1tch/kgview/pkg/geometry"
)

// Snapshot is a validated, immutable graph ready for layout. Edge indices
// are positions in Edges and are stable for the snapshot's lifetime.
type Snapshot struct {
	Nodes []Node
	Edges []Edge

	// Dropped holds edges rejected because an endpoint was missing.
	Dropped []Edge

	index    map[string]int
	incident [][]int
}

// NewSnapshot validates a document: duplicate node ids keep their first
// occurrence, edges with unresolved endpoints are dropped, and multi-edge
// ranks are assigned to the surviving edges.
func NewSnapshot(doc Document) *Snapshot {
	s := &Snapshot{
		Nodes: make([]Node, 0, len(doc.Nodes)),
		Edges: make([]Edge, 0, len(doc.Edges)),
		index: make(map[string]int, len(doc.Nodes)),
	}

	for _, n := range doc.Nodes {
		if n.ID == "" {
			continue
		}
		if _, dup := s.index[n.ID]; dup {
			continue
		}
		s.index[n.ID] = len(s.Nodes)
		s.Nodes = append(s.Nodes, n)
	}

	for _, e := range doc.Edges {
		if !s.HasNode(e.Source) || !s.HasNode(e.Target) {
			s.Dropped = append(s.Dropped, e)
			continue
		}
		s.Edges = append(s.Edges, e)
	}

	pairs := make([]geometry.Pair, len(s.Edges))
	for i, e := range s.Edges {
		pairs[i] = geometry.Pair{Source: e.Source, Target: e.Target}
	}
	for i, l := range geometry.AssignLinkIndices(pairs) {
		s.Edges[i].LinkIndex = l.Index
		s.Edges[i].LinkCount = l.Count
	}

	s.incident = make([][]int, len(s.Nodes))
	for i, e := range s.Edges {
		si, ti := s.index[e.Source], s.index[e.Target]
		s.incident[si] = append(s.incident[si], i)
		if ti != si {
			s.incident[ti] = append(s.incident[ti], i)
		}
	}
	return s
}

// HasNode reports whether id is part of the snapshot.
func (s *Snapshot) HasNode(id string) bool {
	_, ok := s.index[id]
	return ok
}

// NodeIndex returns the position of a node in Nodes.
func (s *Snapshot) NodeIndex(id string) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// Node returns the node with the given id.
func (s *Snapshot) Node(id string) (Node, bool) {
	i, ok := s.index[id]
	if !ok {
		return Node{}, false
	}
	return s.Nodes[i], true
}

// Edge returns the edge at index i.
func (s *Snapshot) Edge(i int) (Edge, bool) {
	if i < 0 || i >= len(s.Edges) {
		return Edge{}, false
	}
	return s.Edges[i], true
}

// Link returns the multi-edge rank of edge i in geometry form.
func (s *Snapshot) Link(i int) geometry.Link {
	e := s.Edges[i]
	return geometry.Link{Index: e.LinkIndex, Count: e.LinkCount, Reversed: e.Target < e.Source}
}

// IncidentEdges returns the ascending indices of edges touching id.
func (s *Snapshot) IncidentEdges(id string) []int {
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	return s.incident[i]
}

// Neighbors returns the sorted identifiers of nodes adjacent to id. A node
// with a self-loop is its own neighbour.
func (s *Snapshot) Neighbors(id string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, ei := range s.IncidentEdges(id) {
		e := s.Edges[ei]
		other := e.Target
		if other == id {
			other = e.Source
		}
		if !seen[other] {
			seen[other] = true
			out = append(out, other)
		}
	}
	sort.Strings(out)
	return out
}

// Types returns the sorted distinct node kinds present in the snapshot.
func (s *Snapshot) Types() []string {
	seen := make(map[string]bool)
	var types []string
	for _, n := range s.Nodes {
		k := n.Kind()
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}

// Groups returns the sorted distinct group identifiers in the snapshot.
func (s *Snapshot) Groups() []string {
	return Document{Nodes: s.Nodes}.Groups()
}

// Stats holds summary counts.
type Stats struct {
	Nodes      int
	Edges      int
	Dropped    int
	Episodes   int // distinct episode ids referenced by edges
	MultiPairs int // node pairs carrying more than one edge
	SelfLoops  int
	ByType     map[string]int
}

// Stats summarises the snapshot.
func (s *Snapshot) Stats() Stats {
	st := Stats{
		Nodes:   len(s.Nodes),
		Edges:   len(s.Edges),
		Dropped: len(s.Dropped),
		ByType:  make(map[string]int),
	}
	episodes := make(map[string]bool)
	for _, n := range s.Nodes {
		st.ByType[n.Kind()]++
	}
	for _, e := range s.Edges {
		for _, id := range e.Episodes {
			episodes[id] = true
		}
		if e.IsSelfLoop() {
			st.SelfLoops++
		}
		if e.LinkCount > 1 && e.LinkIndex == 0 {
			st.MultiPairs++
		}
	}
	st.Episodes = len(episodes)
	return st
}
