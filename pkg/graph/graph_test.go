package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func abcDocument() Document {
	return Document{
		Nodes: []Node{
			{ID: "A", Name: "Alice", Type: "Person", GroupID: "g1"},
			{ID: "B", Name: "Bob", Type: "Person", GroupID: "g1"},
			{ID: "C", Name: "Acme", Labels: []string{"Entity", "Company"}, GroupID: "g2"},
		},
		Edges: []Edge{
			{Source: "A", Target: "B", Type: "TYPE1"},
			{Source: "A", Target: "B", Type: "TYPE2"},
			{Source: "B", Target: "C", Type: "TYPE3", Episodes: []string{"e1", "e2"}},
		},
	}
}

func TestNewSnapshotScenario(t *testing.T) {
	s := NewSnapshot(abcDocument())

	require.Len(t, s.Edges, 3)
	assert.Equal(t, 2, s.Edges[0].LinkCount)
	assert.Equal(t, 2, s.Edges[1].LinkCount)
	assert.ElementsMatch(t, []int{0, 1}, []int{s.Edges[0].LinkIndex, s.Edges[1].LinkIndex})
	assert.Equal(t, 1, s.Edges[2].LinkCount)
	assert.Equal(t, 0, s.Edges[2].LinkIndex)

	assert.Equal(t, []string{"A", "C"}, s.Neighbors("B"))
	assert.Equal(t, []int{0, 1, 2}, s.IncidentEdges("B"))
	assert.Equal(t, []int{2}, s.IncidentEdges("C"))
	assert.Nil(t, s.IncidentEdges("nope"))
}

func TestNewSnapshotDropsMalformedEdges(t *testing.T) {
	doc := abcDocument()
	doc.Edges = append(doc.Edges,
		Edge{Source: "A", Target: "ghost", Type: "BROKEN"},
		Edge{Source: "ghost", Target: "ghost", Type: "BROKEN"},
	)
	doc.Nodes = append(doc.Nodes, Node{ID: "A", Name: "duplicate"}, Node{Name: "no id"})

	s := NewSnapshot(doc)
	assert.Len(t, s.Nodes, 3)
	assert.Len(t, s.Edges, 3)
	assert.Len(t, s.Dropped, 2)

	n, ok := s.Node("A")
	require.True(t, ok)
	assert.Equal(t, "Alice", n.Name)
}

func TestSnapshotSelfLoopNeighbors(t *testing.T) {
	s := NewSnapshot(Document{
		Nodes: []Node{{ID: "x"}},
		Edges: []Edge{{Source: "x", Target: "x", Type: "SELF"}},
	})
	assert.Equal(t, []string{"x"}, s.Neighbors("x"))
	assert.Equal(t, []int{0}, s.IncidentEdges("x"))
	assert.True(t, s.Edges[0].IsSelfLoop())
}

func TestSnapshotTypesAndStats(t *testing.T) {
	s := NewSnapshot(abcDocument())
	assert.Equal(t, []string{"Company", "Person"}, s.Types())
	assert.Equal(t, []string{"g1", "g2"}, s.Groups())

	st := s.Stats()
	assert.Equal(t, 3, st.Nodes)
	assert.Equal(t, 3, st.Edges)
	assert.Equal(t, 2, st.Episodes)
	assert.Equal(t, 1, st.MultiPairs)
	assert.Equal(t, 2, st.ByType["Person"])
}

func TestDocumentFilter(t *testing.T) {
	doc := abcDocument()

	g1 := doc.Filter(Query{Group: "g1"})
	assert.Len(t, g1.Nodes, 2)
	assert.Len(t, g1.Edges, 2)

	limited := doc.Filter(Query{Limit: 1})
	assert.Len(t, limited.Nodes, 1)
	assert.Empty(t, limited.Edges)

	assert.Len(t, doc.Filter(Query{}).Edges, 3)
}

func TestDecode(t *testing.T) {
	jsonDoc := []byte(`{"nodes":[{"id":"a","name":"A"},{"id":"b","name":"B"}],
		"edges":[{"source":"a","target":"b","type":"KNOWS","episodes":["e1"]}]}`)
	doc, err := Decode(jsonDoc, FormatJSON)
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 2)
	assert.Equal(t, []string{"e1"}, doc.Edges[0].Episodes)

	yamlDoc := []byte("nodes:\n  - id: a\n    name: A\n    labels: [Entity, Person]\nedges: []\n")
	doc, err = Decode(yamlDoc, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "Person", doc.Nodes[0].Kind())

	_, err = Decode([]byte("{"), FormatJSON)
	assert.Error(t, err)

	assert.Equal(t, FormatYAML, FormatFor("graph.YML"))
	assert.Equal(t, FormatJSON, FormatFor("graph.json"))
}
