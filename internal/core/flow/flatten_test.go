package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nestedFixture builds an outer graph whose single node wraps a subgraph:
//
//	input --x--> outer[ input --x--> inner --y--> output ] --y--> output
func nestedFixture(t *testing.T) (outer *Graph, outerNode, innerNode *Node) {
	t.Helper()
	sub := NewGraph()
	innerNode = &Node{ID: NodeName("inner"), QualName: "inner"}
	require.NoError(t, sub.AddNode(innerNode))
	require.NoError(t, sub.AddEdge(&Edge{
		Source: sub.InputID, Target: innerNode.ID, ObjectID: "x", TargetPort: "a",
	}))
	require.NoError(t, sub.AddEdge(&Edge{
		Source: innerNode.ID, Target: sub.OutputID, ObjectID: "y", SourcePort: "__return__",
	}))

	outer = NewGraph()
	outerNode = &Node{ID: NodeName("wrapper"), QualName: "wrapper", Graph: sub}
	require.NoError(t, outer.AddNode(outerNode))
	require.NoError(t, outer.AddEdge(&Edge{
		Source: outer.InputID, Target: outerNode.ID, ObjectID: "x", TargetPort: "a",
	}))
	require.NoError(t, outer.AddEdge(&Edge{
		Source: outerNode.ID, Target: outer.OutputID, ObjectID: "y", SourcePort: "__return__",
	}))
	return outer, outerNode, innerNode
}

func TestFlatten(t *testing.T) {
	outer, outerNode, innerNode := nestedFixture(t)

	flat := Flatten(outer)
	require.NoError(t, flat.Validate())

	assert.Nil(t, flat.Node(outerNode.ID), "wrapper node is inlined away")
	inner := flat.Node(innerNode.ID)
	require.NotNil(t, inner)
	assert.Nil(t, inner.Graph)

	require.Len(t, flat.Edges, 2)
	in := flat.InEdges(inner.ID)
	require.Len(t, in, 1)
	assert.Equal(t, flat.InputID, in[0].Source)
	assert.Equal(t, "x", in[0].ObjectID)
	assert.Equal(t, "a", in[0].TargetPort)

	owner, port, ok := flat.Owner("y")
	require.True(t, ok)
	assert.Equal(t, inner.ID, owner)
	assert.Equal(t, "__return__", port)
}

func TestFlatten_DoesNotModifyInput(t *testing.T) {
	outer, outerNode, _ := nestedFixture(t)
	_ = Flatten(outer)
	assert.NotNil(t, outer.Node(outerNode.ID))
	assert.NotNil(t, outer.Node(outerNode.ID).Graph)
}

func TestFlatten_Idempotent(t *testing.T) {
	outer, _, _ := nestedFixture(t)
	flat := Flatten(outer)
	again := Flatten(flat)
	assert.True(t, IsIsomorphic(flat, again, IsoOptions{}))
}

func TestFlatten_DoublyNested(t *testing.T) {
	innermost := NewGraph()
	leaf := &Node{ID: NodeName("leaf"), QualName: "leaf"}
	require.NoError(t, innermost.AddNode(leaf))
	require.NoError(t, innermost.AddEdge(&Edge{
		Source: leaf.ID, Target: innermost.OutputID, ObjectID: "v", SourcePort: "__return__",
	}))

	middle := NewGraph()
	middleNode := &Node{ID: NodeName("middle"), QualName: "middle", Graph: innermost}
	require.NoError(t, middle.AddNode(middleNode))
	require.NoError(t, middle.AddEdge(&Edge{
		Source: middleNode.ID, Target: middle.OutputID, ObjectID: "v", SourcePort: "__return__",
	}))

	outer := NewGraph()
	outerNode := &Node{ID: NodeName("outer"), QualName: "outer", Graph: middle}
	require.NoError(t, outer.AddNode(outerNode))
	require.NoError(t, outer.AddEdge(&Edge{
		Source: outerNode.ID, Target: outer.OutputID, ObjectID: "v", SourcePort: "__return__",
	}))

	flat := Flatten(outer)
	require.NoError(t, flat.Validate())
	require.Len(t, flat.Order, 1)
	got := flat.Node(flat.Order[0])
	assert.Equal(t, "leaf", got.QualName)

	owner, _, ok := flat.Owner("v")
	require.True(t, ok)
	assert.Equal(t, got.ID, owner)
}

// mutatorFixture builds a wrapper node whose subgraph mutates the identity:
//
//	input --id--> inner[self] --id!--> output
func mutatorFixture(t *testing.T, name, id string) *Node {
	t.Helper()
	sub := NewGraph()
	mutator := &Node{ID: NodeName(name + ".setter"), QualName: name + ".setter"}
	require.NoError(t, sub.AddNode(mutator))
	require.NoError(t, sub.AddEdge(&Edge{
		Source: sub.InputID, Target: mutator.ID, ObjectID: id, TargetPort: "self",
	}))
	require.NoError(t, sub.AddEdge(&Edge{
		Source: mutator.ID, Target: sub.OutputID, ObjectID: id, SourcePort: "self!",
	}))
	return &Node{ID: NodeName(name), QualName: name, Graph: sub}
}

// Two sibling wrappers each mutate the same object internally. Inlining merges
// their promoted owner edges in order, so the later wrapper's mutator ends up
// as the single owner and the flattened graph still validates.
func TestFlatten_SiblingMutatorsKeepSingleOwner(t *testing.T) {
	g := NewGraph()
	first := mutatorFixture(t, "f", "y")
	second := mutatorFixture(t, "g", "y")
	require.NoError(t, g.AddNode(first))
	require.NoError(t, g.AddNode(second))
	require.NoError(t, g.AddEdge(&Edge{
		Source: g.InputID, Target: first.ID, ObjectID: "y", TargetPort: "obj",
	}))
	require.NoError(t, g.AddEdge(&Edge{
		Source: g.InputID, Target: second.ID, ObjectID: "y", TargetPort: "obj",
	}))
	require.NoError(t, g.Validate())

	flat := Flatten(g)
	require.NoError(t, flat.Validate())

	var owners []*Edge
	for _, e := range flat.InEdges(flat.OutputID) {
		if e.ObjectID == "y" {
			owners = append(owners, e)
		}
	}
	require.Len(t, owners, 1)
	assert.Equal(t, "g.setter", flat.Node(owners[0].Source).QualName)
	assert.Equal(t, "self!", owners[0].SourcePort)
}

// A wrapper whose subgraph never touches a pass-through identity keeps the
// identity's flow: its boundary edges are bridged from the matching incoming
// edge instead of being dropped with the node.
func TestFlatten_EmptySubgraphBridgesPassThrough(t *testing.T) {
	g := NewGraph()
	producer := &Node{ID: NodeName("producer"), QualName: "producer"}
	wrapper := &Node{ID: NodeName("wrapper"), QualName: "wrapper", Graph: NewGraph()}
	consumer := &Node{ID: NodeName("consumer"), QualName: "consumer"}
	require.NoError(t, g.AddNode(producer))
	require.NoError(t, g.AddNode(wrapper))
	require.NoError(t, g.AddNode(consumer))
	require.NoError(t, g.AddEdge(&Edge{
		Source: producer.ID, Target: wrapper.ID, ObjectID: "y",
		SourcePort: "__return__", TargetPort: "data",
	}))
	require.NoError(t, g.AddEdge(&Edge{
		Source: wrapper.ID, Target: consumer.ID, ObjectID: "y",
		SourcePort: "data!", TargetPort: "x",
	}))
	require.NoError(t, g.AddEdge(&Edge{
		Source: wrapper.ID, Target: g.OutputID, ObjectID: "y", SourcePort: "data!",
	}))

	flat := Flatten(g)
	require.NoError(t, flat.Validate())
	assert.Nil(t, flat.Node(wrapper.ID))

	in := flat.InEdges(consumer.ID)
	require.Len(t, in, 1)
	assert.Equal(t, producer.ID, in[0].Source)
	assert.Equal(t, "__return__", in[0].SourcePort)
	assert.Equal(t, "x", in[0].TargetPort)

	owner, port, ok := flat.Owner("y")
	require.True(t, ok)
	assert.Equal(t, producer.ID, owner)
	assert.Equal(t, "__return__", port)
}

// An owned identity with no incoming edge at all falls back to the boundary
// input when its wrapper's subgraph is empty.
func TestFlatten_EmptySubgraphOwnerFallsBackToInput(t *testing.T) {
	g := NewGraph()
	wrapper := &Node{ID: NodeName("wrapper"), QualName: "wrapper", Graph: NewGraph()}
	require.NoError(t, g.AddNode(wrapper))
	require.NoError(t, g.AddEdge(&Edge{
		Source: wrapper.ID, Target: g.OutputID, ObjectID: "y", SourcePort: "__return__",
	}))

	flat := Flatten(g)
	require.NoError(t, flat.Validate())

	owner, _, ok := flat.Owner("y")
	require.True(t, ok)
	assert.Equal(t, flat.InputID, owner)
}

// An identity produced inside a subgraph but never surfaced by the wrapper
// still becomes a boundary output after flattening.
func TestFlatten_PromotesUnexposedBoundary(t *testing.T) {
	sub := NewGraph()
	inner := &Node{ID: NodeName("inner"), QualName: "inner"}
	require.NoError(t, sub.AddNode(inner))
	require.NoError(t, sub.AddEdge(&Edge{
		Source: inner.ID, Target: sub.OutputID, ObjectID: "hidden", SourcePort: "__return__",
	}))

	outer := NewGraph()
	wrapper := &Node{ID: NodeName("wrapper"), QualName: "wrapper", Graph: sub}
	require.NoError(t, outer.AddNode(wrapper))

	flat := Flatten(outer)
	owner, _, ok := flat.Owner("hidden")
	require.True(t, ok)
	assert.Equal(t, "inner", flat.Node(owner).QualName)
}
