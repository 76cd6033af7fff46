package replay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowtrace/flowtrace/internal/adapters/repository/memory"
	"github.com/flowtrace/flowtrace/internal/app/dto"
	"github.com/flowtrace/flowtrace/internal/core/flow"
	"github.com/flowtrace/flowtrace/internal/core/trace"
)

func ref(id string) dto.ValueRef {
	return dto.ValueRef{Ref: id, Type: &flow.TypeRef{Module: "lib", QualName: "Foo"}}
}

func call(qualName string, args ...dto.Argument) dto.Event {
	return dto.Event{Kind: dto.EventKindCall, QualName: qualName, Module: "lib", Atomic: true, Arguments: args}
}

func ret(qualName string, value *dto.ValueRef, args ...dto.Argument) dto.Event {
	return dto.Event{Kind: dto.EventKindReturn, QualName: qualName, Module: "lib", Atomic: true, Arguments: args, Return: value}
}

// producerConsumer records create_foo() returning an object that compute()
// then consumes.
func producerConsumer() []dto.Event {
	foo := ref("obj-1")
	return []dto.Event{
		call("create_foo"),
		ret("create_foo", &foo),
		call("compute", dto.Argument{Name: "x", Value: foo}),
		ret("compute", &dto.ValueRef{Value: "done"}),
	}
}

func nodeByQual(t *testing.T, g *flow.Graph, qualName string) *flow.Node {
	t.Helper()
	for _, n := range g.NodesInOrder() {
		if n.QualName == qualName {
			return n
		}
	}
	t.Fatalf("no node with qual name %q", qualName)
	return nil
}

func edgeBetween(g *flow.Graph, source, target string) *flow.Edge {
	for _, e := range g.Edges {
		if e.Source == source && e.Target == target {
			return e
		}
	}
	return nil
}

func TestService_Replay(t *testing.T) {
	svc := NewService(nil, nil)
	resp, err := svc.Replay(context.Background(), &dto.ReplayRequest{
		SessionID: "sess-1",
		Events:    producerConsumer(),
	})
	require.NoError(t, err)

	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, 4, resp.Events)
	assert.Equal(t, 2, resp.Nodes)
	assert.Empty(t, resp.ArchiveID)

	g := resp.Graph
	require.NotNil(t, g)
	create := nodeByQual(t, g, "create_foo")
	compute := nodeByQual(t, g, "compute")

	flowEdge := edgeBetween(g, create.ID, compute.ID)
	require.NotNil(t, flowEdge, "the created object flows into the consumer")
	assert.Equal(t, "x", flowEdge.TargetPort)

	owner, port, ok := g.Owner(flowEdge.ObjectID)
	require.True(t, ok)
	assert.Equal(t, create.ID, owner, "a pure consumer does not take ownership")
	assert.Equal(t, "__return__", port)
}

func TestService_Replay_RestoresCapturedTypes(t *testing.T) {
	svc := NewService(nil, nil)
	resp, err := svc.Replay(context.Background(), &dto.ReplayRequest{
		SessionID: "sess-1",
		Events:    producerConsumer(),
	})
	require.NoError(t, err)

	compute := nodeByQual(t, resp.Graph, "compute")
	var input *flow.Port
	for _, p := range compute.Ports {
		if p.Kind == flow.PortInput {
			input = p
		}
	}
	require.NotNil(t, input)
	require.NotNil(t, input.Type)
	assert.Equal(t, "lib", input.Type.Module)
	assert.Equal(t, "Foo", input.Type.QualName)
}

func TestService_Replay_Chunks(t *testing.T) {
	foo := ref("obj-1")
	svc := NewService(nil, nil)
	resp, err := svc.Replay(context.Background(), &dto.ReplayRequest{
		SessionID: "sess-1",
		Chunks: [][]dto.Event{
			{call("create_foo"), ret("create_foo", &foo)},
			{call("compute", dto.Argument{Name: "x", Value: foo}), ret("compute", nil)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, resp.Events)
	g := resp.Graph
	create := nodeByQual(t, g, "create_foo")
	compute := nodeByQual(t, g, "compute")

	// The same reference resolves to the same identity in both chunks, so the
	// join wires the second chunk's input to the first chunk's output.
	linked := edgeBetween(g, create.ID, compute.ID)
	require.NotNil(t, linked)
	assert.Equal(t, "__return__", linked.SourcePort)
	assert.Equal(t, "x", linked.TargetPort)
	assert.Empty(t, g.OutEdges(g.InputID), "nothing remains an external input")
}

func TestService_Replay_Flatten(t *testing.T) {
	foo := ref("obj-1")
	events := []dto.Event{
		{Kind: dto.EventKindCall, QualName: "outer", Module: "lib"},
		call("inner"),
		ret("inner", &foo),
		{Kind: dto.EventKindReturn, QualName: "outer", Module: "lib", Return: &foo},
	}

	svc := NewService(nil, nil)

	nested, err := svc.Replay(context.Background(), &dto.ReplayRequest{SessionID: "s", Events: events})
	require.NoError(t, err)
	require.Equal(t, 1, nested.Nodes)
	outer := nodeByQual(t, nested.Graph, "outer")
	require.NotNil(t, outer.Graph, "a non-atomic call keeps its nested graph")

	flat, err := svc.Replay(context.Background(), &dto.ReplayRequest{SessionID: "s", Events: events, Flatten: true})
	require.NoError(t, err)
	require.Equal(t, 1, flat.Nodes)
	inner := nodeByQual(t, flat.Graph, "inner")
	assert.Nil(t, inner.Graph)
}

func TestService_Replay_Archive(t *testing.T) {
	ctx := context.Background()
	saver := memory.NewArchiveSaver()
	svc := NewService(nil, saver)

	resp, err := svc.Replay(ctx, &dto.ReplayRequest{
		SessionID: "sess-1",
		Events:    producerConsumer(),
		Archive:   true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ArchiveID)

	stored, err := saver.Load(ctx, resp.ArchiveID)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", stored.SessionID)
	assert.Equal(t, "replay", stored.Metadata.Source)
	assert.Len(t, stored.Graph.Nodes, 2)
}

func TestService_Replay_ArchiveWithoutSaver(t *testing.T) {
	svc := NewService(nil, nil)
	_, err := svc.Replay(context.Background(), &dto.ReplayRequest{
		SessionID: "sess-1",
		Events:    producerConsumer(),
		Archive:   true,
	})
	assert.ErrorIs(t, err, ErrNoSaver)
}

func TestService_Replay_Validation(t *testing.T) {
	svc := NewService(nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *dto.ReplayRequest
		want error
	}{
		{"nil request", nil, dto.ErrNoEvents},
		{"missing session", &dto.ReplayRequest{Events: producerConsumer()}, dto.ErrMissingSessionID},
		{"no events", &dto.ReplayRequest{SessionID: "s"}, dto.ErrNoEvents},
		{"events and chunks", &dto.ReplayRequest{
			SessionID: "s",
			Events:    producerConsumer(),
			Chunks:    [][]dto.Event{producerConsumer()},
		}, dto.ErrAmbiguousEvents},
		{"bad kind", &dto.ReplayRequest{
			SessionID: "s",
			Events:    []dto.Event{{Kind: "yield", QualName: "f"}},
		}, dto.ErrInvalidEventKind},
		{"missing qual name", &dto.ReplayRequest{
			SessionID: "s",
			Events:    []dto.Event{{Kind: dto.EventKindCall}},
		}, dto.ErrMissingQualName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Replay(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestService_Replay_UnbalancedEvents(t *testing.T) {
	svc := NewService(nil, nil)
	_, err := svc.Replay(context.Background(), &dto.ReplayRequest{
		SessionID: "s",
		Events:    []dto.Event{call("f")},
	})
	assert.ErrorIs(t, err, ErrUnbalancedEvents)
}

func TestService_Replay_MismatchedReturn(t *testing.T) {
	svc := NewService(nil, nil)
	_, err := svc.Replay(context.Background(), &dto.ReplayRequest{
		SessionID: "s",
		Events:    []dto.Event{call("f"), ret("g", nil)},
	})
	assert.Error(t, err)
}

func TestMaterializer_StableIdentities(t *testing.T) {
	m := newMaterializer()

	v1 := m.value(&dto.ValueRef{Ref: "obj-1"})
	v2 := m.value(&dto.ValueRef{Ref: "obj-1"})
	v3 := m.value(&dto.ValueRef{Ref: "obj-2"})

	assert.Same(t, v1, v2, "one placeholder per reference")
	assert.NotSame(t, v1, v3)
	assert.Equal(t, m.tracker.ID(v1), m.tracker.ID(v2))
	assert.NotEqual(t, m.tracker.ID(v1), m.tracker.ID(v3))
}

func TestMaterializer_Literals(t *testing.T) {
	m := newMaterializer()
	assert.Equal(t, 42, m.value(&dto.ValueRef{Value: 42}))
	assert.Nil(t, m.value(nil))
}

func TestMaterializer_Tuples(t *testing.T) {
	m := newMaterializer()
	v := m.value(&dto.ValueRef{Tuple: []dto.ValueRef{{Ref: "obj-1"}, {Value: "x"}}})

	tuple, ok := v.(trace.Tuple)
	require.True(t, ok)
	require.Len(t, tuple, 2)
	assert.Same(t, m.value(&dto.ValueRef{Ref: "obj-1"}), tuple[0])
	assert.Equal(t, "x", tuple[1])
}

func TestMaterializer_ReportsCapturedType(t *testing.T) {
	m := newMaterializer()
	v := m.value(&dto.ValueRef{Ref: "obj-1", Type: &flow.TypeRef{Module: "pandas", QualName: "DataFrame"}})

	module, qualName := trace.TypeName(v)
	assert.Equal(t, "pandas", module)
	assert.Equal(t, "DataFrame", qualName)
}
