package builder

import (
	"fmt"

	"github.com/flowtrace/flowtrace/internal/core/flow"
	"github.com/flowtrace/flowtrace/internal/core/trace"
	"github.com/flowtrace/flowtrace/internal/infrastructure/metrics"
)

// setObjectOutput makes node/port the current owner of an object identity:
// the previous owning edge into the output sentinel (exactly one must exist)
// is removed, the new one added, and — if slot capture is enabled — the
// object's annotated slots are expanded.
func (b *Builder) setObjectOutput(ctx *callContext, tracker trace.Identities, obj any, objID, node, port string) error {
	graph := ctx.graph

	if old, ok := ctx.outputs[objID]; ok {
		var owned []*flow.Edge
		for _, e := range graph.OutEdges(old.node) {
			if e.Target == graph.OutputID && e.ObjectID == objID {
				owned = append(owned, e)
			}
		}
		if len(owned) != 1 {
			return fmt.Errorf("%w: identity %s has %d owner edges", ErrOwnerConflict, objID, len(owned))
		}
		graph.RemoveEdge(owned[0])
	}

	ctx.outputs[objID] = portRef{node: node, port: port}
	b.addObjectEdge(graph, obj, objID, node, graph.OutputID, port, "")

	// The object has been created or mutated, so fetch its slots.
	if b.storeSlots {
		return b.addObjectSlots(ctx, tracker, obj, objID, node, port)
	}
	return nil
}

// addObjectSlots adds a slot node per resolvable annotated slot of the
// object, wired from the owning node/port. Trackable slot values recursively
// become owned by their slot node, so slot chains nest transitively.
func (b *Builder) addObjectSlots(ctx *callContext, tracker trace.Identities, obj any, objID, node, port string) error {
	note := b.notateObject(obj)
	if note == nil {
		return nil
	}
	for i, def := range note.Slots {
		value, err := b.resolver.Resolve(obj, def.Slot)
		if err != nil {
			metrics.IncResolutionMiss()
			b.logger.Debug("slot unresolvable", "slot", def.Slot.String(), "annotation", note.Key.String())
			continue
		}

		selfPort := b.portData(tracker, obj, true)
		selfPort.Name = "self"
		selfPort.Kind = flow.PortInput
		selfPort.AnnotationIndex = 1
		valuePort := b.portData(tracker, value, true)
		valuePort.Name = returnPort
		valuePort.Kind = flow.PortOutput
		valuePort.AnnotationIndex = 1

		slotNode := &flow.Node{
			ID:              flow.NodeName("slot"),
			Slot:            def.Slot.String(),
			Annotation:      note.Key.String(),
			AnnotationIndex: i + 1,
			AnnotationKind:  flow.AnnotationSlot,
			Ports:           []*flow.Port{selfPort, valuePort},
		}
		if err := ctx.graph.AddNode(slotNode); err != nil {
			b.logger.Error("adding slot node", "node", slotNode.ID, "error", err)
			continue
		}
		metrics.IncNodes()
		b.addObjectEdge(ctx.graph, obj, objID, node, slotNode.ID, port, "self")

		if tracker.IsTrackable(value) {
			slotID := tracker.Track(value)
			if err := b.setObjectOutput(ctx, tracker, value, slotID, slotNode.ID, returnPort); err != nil {
				return err
			}
		}
	}
	return nil
}
