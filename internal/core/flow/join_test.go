package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// producerGraph owns objID from a single node named qualName.
func producerGraph(t *testing.T, qualName, objID string) (*Graph, *Node) {
	t.Helper()
	g := NewGraph()
	node := &Node{ID: NodeName(qualName), QualName: qualName}
	require.NoError(t, g.AddNode(node))
	require.NoError(t, g.AddEdge(&Edge{
		Source: node.ID, Target: g.OutputID, ObjectID: objID, SourcePort: "__return__",
	}))
	return g, node
}

// consumerGraph takes inID as a boundary input of a node named qualName and
// owns outID from it.
func consumerGraph(t *testing.T, qualName, inID, outID string) (*Graph, *Node) {
	t.Helper()
	g := NewGraph()
	node := &Node{ID: NodeName(qualName), QualName: qualName}
	require.NoError(t, g.AddNode(node))
	require.NoError(t, g.AddEdge(&Edge{
		Source: g.InputID, Target: node.ID, ObjectID: inID, TargetPort: "arg",
	}))
	require.NoError(t, g.AddEdge(&Edge{
		Source: node.ID, Target: g.OutputID, ObjectID: outID, SourcePort: "__return__",
	}))
	return g, node
}

func TestJoin_LinksPhases(t *testing.T) {
	first, producer := producerGraph(t, "create", "foo")
	second, consumer := consumerGraph(t, "use", "foo", "bar")

	joined := Join(first, second)
	require.NoError(t, joined.Validate())
	require.Len(t, joined.Order, 2)

	// The boundary input of the second phase is now a direct edge from the
	// first phase's owning node and port.
	in := joined.InEdges(joined.Node(consumer.ID).ID)
	require.Len(t, in, 1)
	assert.Equal(t, producer.ID, in[0].Source)
	assert.Equal(t, "__return__", in[0].SourcePort)
	assert.Equal(t, "arg", in[0].TargetPort)
	assert.Equal(t, "foo", in[0].ObjectID)

	// foo was only read, so the first phase still owns it; bar is owned by
	// the second phase.
	fooOwner, _, ok := joined.Owner("foo")
	require.True(t, ok)
	assert.Equal(t, producer.ID, fooOwner)
	barOwner, _, ok := joined.Owner("bar")
	require.True(t, ok)
	assert.Equal(t, consumer.ID, barOwner)
}

func TestJoin_MutationTransfersOwnership(t *testing.T) {
	first, _ := producerGraph(t, "create", "foo")

	second := NewGraph()
	mutator := &Node{ID: NodeName("mutate"), QualName: "mutate"}
	require.NoError(t, second.AddNode(mutator))
	require.NoError(t, second.AddEdge(&Edge{
		Source: second.InputID, Target: mutator.ID, ObjectID: "foo", TargetPort: "self",
	}))
	require.NoError(t, second.AddEdge(&Edge{
		Source: mutator.ID, Target: second.OutputID, ObjectID: "foo", SourcePort: "self!",
	}))

	joined := Join(first, second)
	require.NoError(t, joined.Validate())

	owner, port, ok := joined.Owner("foo")
	require.True(t, ok)
	assert.Equal(t, mutator.ID, owner)
	assert.Equal(t, "self!", port)
}

func TestJoin_UnknownInputStaysBoundary(t *testing.T) {
	first, _ := producerGraph(t, "create", "foo")
	second, consumer := consumerGraph(t, "use", "stranger", "bar")

	joined := Join(first, second)
	in := joined.InEdges(consumer.ID)
	require.Len(t, in, 1)
	assert.Equal(t, joined.InputID, in[0].Source)
}

func TestJoin_DoesNotModifyInputs(t *testing.T) {
	first, _ := producerGraph(t, "create", "foo")
	second, _ := consumerGraph(t, "use", "foo", "bar")
	firstEdges, secondEdges := len(first.Edges), len(second.Edges)

	_ = Join(first, second)
	assert.Len(t, first.Edges, firstEdges)
	assert.Len(t, second.Edges, secondEdges)
	for _, e := range second.Edges {
		if e.TargetPort == "arg" {
			assert.Equal(t, second.InputID, e.Source)
		}
	}
}

func TestJoin_Associative(t *testing.T) {
	build := func() (*Graph, *Graph, *Graph) {
		a, _ := producerGraph(t, "create", "foo")
		b, _ := consumerGraph(t, "use", "foo", "bar")
		c, _ := consumerGraph(t, "sink", "bar", "baz")
		return a, b, c
	}

	a1, b1, c1 := build()
	left := Join(Join(a1, b1), c1)
	a2, b2, c2 := build()
	right := Join(a2, Join(b2, c2))

	assert.True(t, IsIsomorphic(left, right, IsoOptions{}))
}

// Ownership lookup is root-level only: an identity owned somewhere inside a
// nested graph of the first phase is not a join candidate.
func TestJoin_IgnoresNestedOwnership(t *testing.T) {
	sub := NewGraph()
	subNode := &Node{ID: NodeName("inner"), QualName: "inner"}
	require.NoError(t, sub.AddNode(subNode))
	require.NoError(t, sub.AddEdge(&Edge{
		Source: subNode.ID, Target: sub.OutputID, ObjectID: "foo", SourcePort: "__return__",
	}))

	first := NewGraph()
	wrapper := &Node{ID: NodeName("wrapper"), QualName: "wrapper", Graph: sub}
	require.NoError(t, first.AddNode(wrapper))

	second, consumer := consumerGraph(t, "use", "foo", "bar")
	joined := Join(first, second)

	in := joined.InEdges(consumer.ID)
	require.Len(t, in, 1)
	assert.Equal(t, joined.InputID, in[0].Source)
}
