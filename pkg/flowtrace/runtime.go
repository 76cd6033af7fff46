package flowtrace

import (
	"context"
	"time"

	"github.com/google/uuid"

	memory "github.com/flowtrace/flowtrace/internal/adapters/repository/memory"
	"github.com/flowtrace/flowtrace/internal/app/builder"
	"github.com/flowtrace/flowtrace/internal/app/dto"
	"github.com/flowtrace/flowtrace/internal/app/replay"
	"github.com/flowtrace/flowtrace/internal/core/annotate"
	"github.com/flowtrace/flowtrace/internal/core/archive"
	"github.com/flowtrace/flowtrace/internal/core/flow"
	"github.com/flowtrace/flowtrace/internal/core/trace"
)

// Re-export core flow graph types for convenience
type Graph = flow.Graph
type Node = flow.Node
type Edge = flow.Edge
type Port = flow.Port

// Re-export trace event types
type Event = trace.Event
type CallEvent = trace.CallEvent
type ReturnEvent = trace.ReturnEvent
type Argument = trace.Argument
type Tuple = trace.Tuple

// Re-export annotation types
type Annotation = annotate.Document

// Re-export replay wire types
type ReplayRequest = dto.ReplayRequest
type ReplayResponse = dto.ReplayResponse

// Builder is the event-driven flow graph builder.
type Builder = builder.Builder

// Flatten recursively inlines nested call graphs.
func Flatten(g *Graph) *Graph { return flow.Flatten(g) }

// Join concatenates two sequentially captured graphs.
func Join(first, second *Graph) *Graph { return flow.Join(first, second) }

// Runtime is a façade wiring the default in-memory components: an annotation
// database, an identity tracker, and an in-memory archive store. It is
// suitable for local usage and tests.
type Runtime struct {
	annotations *annotate.DB
	tracker     *trace.Tracker
	saver       archive.Saver
	replayer    *replay.Service
}

// NewRuntime constructs a runtime with in-memory components.
func NewRuntime() *Runtime {
	db := annotate.NewDB()
	saver := memory.NewArchiveSaver()
	return &Runtime{
		annotations: db,
		tracker:     trace.NewTracker(),
		saver:       saver,
		replayer:    replay.NewService(db, saver),
	}
}

// Annotations returns the runtime's annotation database, for registering
// function and object annotations.
func (rt *Runtime) Annotations() *annotate.DB { return rt.annotations }

// Tracker returns the runtime's identity tracker. Events captured against
// this runtime should carry it so object identities are stable.
func (rt *Runtime) Tracker() *trace.Tracker { return rt.tracker }

// NewBuilder creates a builder wired to the runtime's annotation database.
func (rt *Runtime) NewBuilder(opts ...builder.Option) *Builder {
	opts = append([]builder.Option{builder.WithAnnotator(rt.annotations)}, opts...)
	return builder.New(opts...)
}

// Capture feeds an event sequence to a fresh builder and returns the
// resulting graph.
func (rt *Runtime) Capture(events ...trace.Event) (*Graph, error) {
	b := rt.NewBuilder()
	for _, e := range events {
		if err := b.PushEvent(e); err != nil {
			return nil, err
		}
	}
	return b.Graph(), nil
}

// Replay rebuilds a graph from a recorded event stream.
func (rt *Runtime) Replay(ctx context.Context, req *ReplayRequest) (*ReplayResponse, error) {
	return rt.replayer.Replay(ctx, req)
}

// Archive persists a captured graph and returns the archive ID.
func (rt *Runtime) Archive(ctx context.Context, sessionID string, g *Graph) (string, error) {
	a := &archive.Archive{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Graph:     g,
		CreatedAt: time.Now().UTC(),
		Version:   archive.Version,
	}
	if err := rt.saver.Save(ctx, a); err != nil {
		return "", err
	}
	return a.ID, nil
}

// LoadArchive retrieves a previously archived graph.
func (rt *Runtime) LoadArchive(ctx context.Context, id string) (*Graph, error) {
	a, err := rt.saver.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.Graph, nil
}
