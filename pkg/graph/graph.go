// Package graph provides the snapshot data model consumed by the layout engine:
// entity nodes, relationship edges and the episodes attached to them.
package graph

import (
	"errors"
	"sort"
	"time"
)

// ErrUnknownNode is returned when a node identifier is not part of a snapshot.
var ErrUnknownNode = errors.New("unknown node")

// Node is an entity in a snapshot. Content is immutable; layout state lives
// in the force simulation.
type Node struct {
	ID         string         `json:"id" yaml:"id"`
	Name       string         `json:"name" yaml:"name"`
	Type       string         `json:"type,omitempty" yaml:"type,omitempty"`
	GroupID    string         `json:"group_id,omitempty" yaml:"group_id,omitempty"`
	Summary    string         `json:"summary,omitempty" yaml:"summary,omitempty"`
	Labels     []string       `json:"labels,omitempty" yaml:"labels,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	CreatedAt  *time.Time     `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// Kind returns the label used for colour grouping. An explicit type wins;
// otherwise the first specific classification label is used.
func (n Node) Kind() string {
	if n.Type != "" {
		return n.Type
	}
	for _, l := range n.Labels {
		if l != "" && l != "Entity" {
			return l
		}
	}
	return ""
}

// DisplayName returns the name, falling back to the identifier.
func (n Node) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

// Edge is a relationship between two nodes.
type Edge struct {
	Source    string     `json:"source" yaml:"source"`
	Target    string     `json:"target" yaml:"target"`
	Type      string     `json:"type" yaml:"type"`
	Fact      string     `json:"fact,omitempty" yaml:"fact,omitempty"`
	ID        string     `json:"id,omitempty" yaml:"id,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	ValidAt   *time.Time `json:"valid_at,omitempty" yaml:"valid_at,omitempty"`
	ExpiredAt *time.Time `json:"expired_at,omitempty" yaml:"expired_at,omitempty"`
	Episodes  []string   `json:"episodes,omitempty" yaml:"episodes,omitempty"`

	// Assigned once per snapshot for curve offsetting.
	LinkIndex int `json:"-" yaml:"-"`
	LinkCount int `json:"-" yaml:"-"`
}

// IsSelfLoop reports whether both endpoints are the same node.
func (e Edge) IsSelfLoop() bool {
	return e.Source == e.Target
}

// Episode is an auxiliary text record attached to edges, fetched on demand.
type Episode struct {
	ID                string     `json:"id" yaml:"id"`
	Name              string     `json:"name" yaml:"name"`
	Content           string     `json:"content" yaml:"content"`
	Source            string     `json:"source" yaml:"source"`
	SourceDescription string     `json:"source_description" yaml:"source_description"`
	ValidAt           *time.Time `json:"valid_at,omitempty" yaml:"valid_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at" yaml:"created_at"`
	GroupID           string     `json:"group_id" yaml:"group_id"`
}

// Document is the wire shape of a graph snapshot.
type Document struct {
	Nodes    []Node    `json:"nodes" yaml:"nodes"`
	Edges    []Edge    `json:"edges" yaml:"edges"`
	Episodes []Episode `json:"episodes,omitempty" yaml:"episodes,omitempty"`
}

// Query selects a snapshot from a backend.
type Query struct {
	Limit int    // maximum number of nodes; 0 means unlimited
	Group string // empty means all groups
}

// Filter applies a query to a document. Edges survive only when both
// endpoints survive.
func (d Document) Filter(q Query) Document {
	out := Document{Episodes: d.Episodes}
	keep := make(map[string]bool)
	for _, n := range d.Nodes {
		if q.Group != "" && n.GroupID != q.Group {
			continue
		}
		if q.Limit > 0 && len(out.Nodes) >= q.Limit {
			break
		}
		out.Nodes = append(out.Nodes, n)
		keep[n.ID] = true
	}
	for _, e := range d.Edges {
		if keep[e.Source] && keep[e.Target] {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}

// Groups returns the sorted distinct group identifiers of the document's nodes.
func (d Document) Groups() []string {
	seen := make(map[string]bool)
	var groups []string
	for _, n := range d.Nodes {
		if n.GroupID == "" || seen[n.GroupID] {
			continue
		}
		seen[n.GroupID] = true
		groups = append(groups, n.GroupID)
	}
	sort.Strings(groups)
	return groups
}
