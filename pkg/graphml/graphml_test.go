package graphml

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowtrace/flowtrace/internal/core/flow"
)

func sampleGraph(t *testing.T) *flow.Graph {
	t.Helper()
	sub := flow.NewGraph()
	inner := &flow.Node{ID: flow.NodeName("inner"), QualName: "inner", Module: "lib"}
	require.NoError(t, sub.AddNode(inner))
	require.NoError(t, sub.AddEdge(&flow.Edge{
		Source: inner.ID, Target: sub.OutputID, ObjectID: "obj-1", SourcePort: "__return__",
	}))

	g := flow.NewGraph()
	outer := &flow.Node{
		ID:       flow.NodeName("outer"),
		QualName: "outer",
		Module:   "lib",
		Graph:    sub,
		Ports: []*flow.Port{
			{Name: "x", ArgName: "x", Kind: flow.PortInput, ObjectID: "obj-0",
				Value:      &flow.Value{Data: "hello"},
				Type:       &flow.TypeRef{Module: "lib", QualName: "Foo"},
				Annotation: "py/lib/foo", AnnotationIndex: 1},
			{Name: "__return__", Kind: flow.PortOutput, ObjectID: "obj-1"},
		},
		Annotation:     "py/lib/outer",
		AnnotationKind: flow.AnnotationFunction,
	}
	slot := &flow.Node{
		ID:              flow.NodeName("slot"),
		Slot:            "x",
		Annotation:      "py/lib/foo",
		AnnotationIndex: 2,
		AnnotationKind:  flow.AnnotationSlot,
	}
	construct := &flow.Node{ID: flow.NodeName("init"), QualName: "Foo.__init__", Construct: true}
	require.NoError(t, g.AddNode(outer))
	require.NoError(t, g.AddNode(slot))
	require.NoError(t, g.AddNode(construct))
	require.NoError(t, g.AddEdge(&flow.Edge{
		Source: g.InputID, Target: outer.ID, ObjectID: "obj-0", TargetPort: "x",
	}))
	require.NoError(t, g.AddEdge(&flow.Edge{
		Source: outer.ID, Target: g.OutputID, ObjectID: "obj-1",
		SourcePort: "__return__", Annotation: "py/lib/foo",
	}))
	return g
}

func TestGraphML_RoundTrip(t *testing.T) {
	g := sampleGraph(t)
	doc := FromGraph(g, Options{})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, doc))

	back, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	restored := back.Graph()
	require.NotNil(t, restored)

	if diff := cmp.Diff(g, restored); diff != "" {
		t.Errorf("graph changed through round trip (-want +got):\n%s", diff)
	}
	assert.Equal(t, doc.Root.Ports[0].Name, back.Root.Ports[0].Name)
}

func TestGraphML_PortValueRoundTrip(t *testing.T) {
	values := []any{
		nil,
		true,
		"text",
		42,
		int64(-7),
		uint8(255),
		3.5,
		float32(1.25),
		[]any{1, "x", false, []any{2.5}},
		map[string]any{"n": 7, "nested": map[string]any{"s": "v"}},
	}
	g := flow.NewGraph()
	node := &flow.Node{ID: flow.NodeName("f"), QualName: "f"}
	for i, v := range values {
		node.Ports = append(node.Ports, &flow.Port{
			Name:  fmt.Sprintf("p%d", i),
			Kind:  flow.PortInput,
			Value: &flow.Value{Data: v},
		})
	}
	require.NoError(t, g.AddNode(node))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FromGraph(g, Options{})))
	back, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	restored := back.Graph()
	require.NotNil(t, restored)
	got := restored.Node(node.ID)
	require.NotNil(t, got)
	require.Len(t, got.Ports, len(values))
	for i, want := range values {
		require.NotNil(t, got.Ports[i].Value)
		if diff := cmp.Diff(want, got.Ports[i].Value.Data); diff != "" {
			t.Errorf("port %d value changed through round trip (-want +got):\n%s", i, diff)
		}
	}
}

func TestGraphML_PortValueCanonicalizesContainers(t *testing.T) {
	g := flow.NewGraph()
	node := &flow.Node{
		ID:       flow.NodeName("f"),
		QualName: "f",
		Ports: []*flow.Port{
			{Name: "xs", Kind: flow.PortInput, Value: &flow.Value{Data: []int{1, 2}}},
		},
	}
	require.NoError(t, g.AddNode(node))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FromGraph(g, Options{})))
	back, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	got := back.Graph().Node(node.ID)
	require.NotNil(t, got)
	assert.Equal(t, []any{1, 2}, got.Ports[0].Value.Data)
}

func TestFromGraph_RootPorts(t *testing.T) {
	g := sampleGraph(t)
	doc := FromGraph(g, Options{})

	require.Len(t, doc.Root.Ports, 1, "one port per annotated live output")
	port := doc.Root.Ports[0]
	assert.Equal(t, "__return__", port.Name)
	assert.Equal(t, "obj-1", port.ObjectID)
	assert.Equal(t, "py/lib/foo", port.Annotation)
	assert.Equal(t, flow.PortOutput, port.Kind)
}

func TestFromGraph_Simplify(t *testing.T) {
	g := sampleGraph(t)
	second := &flow.Node{ID: flow.NodeName("later"), QualName: "later"}
	require.NoError(t, g.AddNode(second))
	require.NoError(t, g.AddEdge(&flow.Edge{
		Source: second.ID, Target: g.OutputID, ObjectID: "obj-2",
		SourcePort: "__return__", Annotation: "py/lib/bar",
	}))

	doc := FromGraph(g, Options{Simplify: true})
	simplified := doc.Graph()

	require.Len(t, simplified.InEdges(simplified.OutputID), 1)
	assert.Equal(t, "obj-2", simplified.InEdges(simplified.OutputID)[0].ObjectID,
		"the most recently annotated output wins")
	require.Len(t, doc.Root.Ports, 1)
	assert.Equal(t, "obj-2", doc.Root.Ports[0].ObjectID)

	// The caller's graph is untouched.
	assert.Len(t, g.InEdges(g.OutputID), 2)
}

func TestFromGraph_SimplifyWithoutAnnotatedOutputs(t *testing.T) {
	g := flow.NewGraph()
	node := &flow.Node{ID: flow.NodeName("f"), QualName: "f"}
	require.NoError(t, g.AddNode(node))
	require.NoError(t, g.AddEdge(&flow.Edge{
		Source: node.ID, Target: g.OutputID, ObjectID: "obj-1",
	}))

	doc := FromGraph(g, Options{Simplify: true})
	assert.Len(t, doc.Graph().Edges, 1, "nothing annotated, nothing collapsed")
	assert.Empty(t, doc.Root.Ports)
}

func TestWrite_Invalid(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Write(&buf, nil), ErrNilDocument)
	assert.ErrorIs(t, Write(&buf, &Document{}), ErrNilDocument)
}

func TestRead_Invalid(t *testing.T) {
	t.Run("not xml", func(t *testing.T) {
		_, err := Read(strings.NewReader("not xml at all"))
		assert.Error(t, err)
	})
	t.Run("no root node", func(t *testing.T) {
		_, err := Read(strings.NewReader(
			`<graphml xmlns="http://graphml.graphdrawing.org/xmlns"><graph id="G" edgedefault="directed"/></graphml>`))
		assert.ErrorIs(t, err, ErrNoRootNode)
	})
	t.Run("missing sentinels", func(t *testing.T) {
		_, err := Read(strings.NewReader(
			`<graphml xmlns="http://graphml.graphdrawing.org/xmlns"><graph id="G" edgedefault="directed">` +
				`<node id="__root__"><graph id="g" edgedefault="directed"/></node></graph></graphml>`))
		assert.ErrorIs(t, err, ErrMissingSentinels)
	})
}
