// Package selection implements the node/edge selection state machine as a
// pure reducer. Highlight sets are always derived from the selection and
// the snapshot index, never stored independently.
package selection

import (
	"fmt"
	"sort"

	"github.com/ha1tch/kgview/pkg/graph"
)

// Index is the read-only view of a snapshot the reducer needs.
// *graph.Snapshot satisfies it.
type Index interface {
	HasNode(id string) bool
	Neighbors(id string) []string
	IncidentEdges(id string) []int
	Edge(i int) (graph.Edge, bool)
}

// Kind identifies the state.
type Kind int

const (
	Idle Kind = iota
	NodeSelected
	EdgeSelected
)

func (k Kind) String() string {
	switch k {
	case NodeSelected:
		return "node"
	case EdgeSelected:
		return "edge"
	default:
		return "idle"
	}
}

// State is one selection plus its highlight sets. The zero value is Idle.
type State struct {
	Kind  Kind
	Node  string // valid when Kind == NodeSelected
	Edge  int    // valid when Kind == EdgeSelected
	Nodes map[string]bool
	Edges map[int]bool
}

// Empty reports whether nothing is highlighted.
func (s State) Empty() bool { return len(s.Nodes) == 0 && len(s.Edges) == 0 }

func (s State) HasNode(id string) bool { return s.Nodes[id] }
func (s State) HasEdge(i int) bool      { return s.Edges[i] }

// NodeIDs returns the highlighted node ids in sorted order.
func (s State) NodeIDs() []string {
	ids := make([]string, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EdgeIndices returns the highlighted edge indices in ascending order.
func (s State) EdgeIndices() []int {
	idx := make([]int, 0, len(s.Edges))
	for i := range s.Edges {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

func (s State) String() string {
	switch s.Kind {
	case NodeSelected:
		return fmt.Sprintf("node %s", s.Node)
	case EdgeSelected:
		return fmt.Sprintf("edge %d", s.Edge)
	default:
		return "idle"
	}
}

// Event is an input to Reduce.
type Event interface{ isEvent() }

type (
	// ClickNode is a pointer click on a node.
	ClickNode struct{ ID string }
	// ClickEdge is a pointer click on an edge curve or label.
	ClickEdge struct{ Index int }
	// ClickBackground is a click on empty canvas.
	ClickBackground struct{}
	// Clear drops the selection programmatically.
	Clear struct{}
	// NavigateNode selects a node from a panel or keyboard.
	NavigateNode struct{ ID string }
	// NavigateEdge selects an edge from a panel or keyboard.
	NavigateEdge struct{ Index int }
)

func (ClickNode) isEvent()       {}
func (ClickEdge) isEvent()       {}
func (ClickBackground) isEvent() {}
func (Clear) isEvent()           {}
func (NavigateNode) isEvent()    {}
func (NavigateEdge) isEvent()    {}

// Reduce returns the state after ev. Events naming a node or edge absent
// from idx return s unchanged.
func Reduce(idx Index, s State, ev Event) State {
	switch ev := ev.(type) {
	case ClickNode:
		return selectNode(idx, s, ev.ID)
	case NavigateNode:
		return selectNode(idx, s, ev.ID)
	case ClickEdge:
		return selectEdge(idx, s, ev.Index)
	case NavigateEdge:
		return selectEdge(idx, s, ev.Index)
	case ClickBackground, Clear:
		return State{}
	}
	return s
}

func selectNode(idx Index, s State, id string) State {
	if !idx.HasNode(id) {
		return s
	}
	next := State{
		Kind:  NodeSelected,
		Node:  id,
		Nodes: map[string]bool{id: true},
		Edges: make(map[int]bool),
	}
	for _, n := range idx.Neighbors(id) {
		next.Nodes[n] = true
	}
	for _, e := range idx.IncidentEdges(id) {
		next.Edges[e] = true
	}
	return next
}

func selectEdge(idx Index, s State, i int) State {
	e, ok := idx.Edge(i)
	if !ok {
		return s
	}
	return State{
		Kind:  EdgeSelected,
		Edge:  i,
		Nodes: map[string]bool{e.Source: true, e.Target: true},
		Edges: map[int]bool{i: true},
	}
}
