// Package replay rebuilds object flow graphs from recorded trace event
// streams. A recording carries object references instead of live values; the
// service materializes each reference into a stable placeholder so the
// identity tracker recognizes the same object across events, then drives a
// graph builder with the reconstructed events.
package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowtrace/flowtrace/internal/app/builder"
	"github.com/flowtrace/flowtrace/internal/app/dto"
	"github.com/flowtrace/flowtrace/internal/core/annotate"
	"github.com/flowtrace/flowtrace/internal/core/archive"
	"github.com/flowtrace/flowtrace/internal/core/flow"
	"github.com/flowtrace/flowtrace/internal/ctxlog"
	"github.com/flowtrace/flowtrace/internal/infrastructure/metrics"
)

// Service replays recorded event streams into flow graphs.
type Service struct {
	annotator annotate.Annotator
	saver     archive.Saver
}

// NewService creates a replay service. The saver may be nil when archiving is
// not requested.
func NewService(annotator annotate.Annotator, saver archive.Saver) *Service {
	if annotator == nil {
		annotator = annotate.Nop{}
	}
	return &Service{annotator: annotator, saver: saver}
}

// Replay rebuilds the graph described by the request. Chunked requests are
// replayed chunk by chunk against one shared identity tracker and joined
// sequentially.
func (s *Service) Replay(ctx context.Context, req *dto.ReplayRequest) (*dto.ReplayResponse, error) {
	if req == nil {
		return nil, dto.ErrNoEvents
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Archive && s.saver == nil {
		return nil, ErrNoSaver
	}

	logger := ctxlog.FromContext(ctx).With("session_id", req.SessionID)
	start := time.Now()

	m := newMaterializer()
	chunks := req.Chunks
	if len(chunks) == 0 {
		chunks = [][]dto.Event{req.Events}
	}

	var (
		graph  *flow.Graph
		events int
	)
	for i, chunk := range chunks {
		g, n, err := s.replayChunk(m, req, chunk)
		if err != nil {
			return nil, fmt.Errorf("replaying chunk %d: %w", i, err)
		}
		events += n
		if graph == nil {
			graph = g
		} else {
			graph = flow.Join(graph, g)
		}
	}

	if req.Flatten {
		graph = flow.Flatten(graph)
	}

	resp := &dto.ReplayResponse{
		SessionID: req.SessionID,
		Graph:     graph,
		Events:    events,
		Nodes:     len(graph.Nodes),
		Edges:     len(graph.Edges),
		Duration:  time.Since(start),
	}

	if req.Archive {
		id, err := s.archiveGraph(ctx, req, graph, len(chunks))
		if err != nil {
			return nil, err
		}
		resp.ArchiveID = id
	}

	logger.Debug("replay finished",
		"events", resp.Events, "nodes", resp.Nodes, "edges", resp.Edges,
		"duration", resp.Duration)
	return resp, nil
}

// replayChunk drives a fresh builder over one event sequence. The shared
// materializer keeps identities stable across chunks.
func (s *Service) replayChunk(m *materializer, req *dto.ReplayRequest, chunk []dto.Event) (*flow.Graph, int, error) {
	opts := []builder.Option{builder.WithAnnotator(s.annotator)}
	if req.StoreSlots != nil {
		opts = append(opts, builder.WithStoreSlots(*req.StoreSlots))
	}
	b := builder.New(opts...)

	for i := range chunk {
		event, err := m.event(&chunk[i])
		if err != nil {
			return nil, 0, err
		}
		if err := b.PushEvent(event); err != nil {
			return nil, 0, fmt.Errorf("event %d (%s %s): %w",
				i, chunk[i].Kind, chunk[i].QualName, err)
		}
	}
	if b.Depth() != 1 {
		return nil, 0, ErrUnbalancedEvents
	}
	return b.Graph(), len(chunk), nil
}

func (s *Service) archiveGraph(ctx context.Context, req *dto.ReplayRequest, g *flow.Graph, chunks int) (string, error) {
	a := &archive.Archive{
		ID:        uuid.NewString(),
		SessionID: req.SessionID,
		Graph:     g,
		Metadata: archive.Metadata{
			Chunk:  chunks,
			Source: "replay",
		},
		CreatedAt: time.Now().UTC(),
		Version:   archive.Version,
	}
	if err := s.saver.Save(ctx, a); err != nil {
		return "", fmt.Errorf("archiving replayed graph: %w", err)
	}
	metrics.IncGraphsArchived()
	return a.ID, nil
}
