// Package builder turns a stream of trace events into a hierarchical object
// flow graph.
//
// A flow graph is a directed acyclic multigraph describing the flow of
// objects through a program. Its nodes are function calls and its edges are
// objects. The incoming edges of a node are arguments to the call and the
// outgoing edges are return values or mutated arguments. (If the call is
// pure, the outgoing edges are only return values.)
//
// One Builder instance is one independent state machine: it consumes events
// strictly in arrival order from a single event source and requires no
// locking. Concurrent captures need one Builder each.
package builder

import (
	"fmt"
	"log/slog"

	"github.com/flowtrace/flowtrace/internal/core/annotate"
	"github.com/flowtrace/flowtrace/internal/core/flow"
	"github.com/flowtrace/flowtrace/internal/core/slots"
	"github.com/flowtrace/flowtrace/internal/core/trace"
	"github.com/flowtrace/flowtrace/internal/infrastructure/metrics"
)

// Builder builds an object flow graph from a stream of trace events.
type Builder struct {
	annotator  annotate.Annotator
	resolver   slots.Resolver
	storeSlots bool
	primitive  func(any) bool
	logger     *slog.Logger

	stack  []*callContext
	failed error
}

// Option configures a Builder.
type Option func(*Builder)

// WithAnnotator sets the annotation service consulted for functions and
// objects. Defaults to a service that knows nothing.
func WithAnnotator(a annotate.Annotator) Option {
	return func(b *Builder) { b.annotator = a }
}

// WithResolver sets the slot resolver used when expanding annotated slots.
func WithResolver(r slots.Resolver) Option {
	return func(b *Builder) { b.resolver = r }
}

// WithStoreSlots controls whether annotated slots are captured when an
// object is created or mutated. Enabled by default.
func WithStoreSlots(store bool) Option {
	return func(b *Builder) { b.storeSlots = store }
}

// WithPrimitive overrides the policy deciding which values are captured as
// deep-copied port data. Defaults to flow.IsPrimitive.
func WithPrimitive(fn func(any) bool) Option {
	return func(b *Builder) { b.primitive = fn }
}

// WithLogger sets the logger used for debug output on resolution misses.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// New creates a Builder with an empty top-level graph.
func New(opts ...Option) *Builder {
	b := &Builder{
		annotator:  annotate.Nop{},
		resolver:   slots.StandardResolver{},
		storeSlots: true,
		primitive:  flow.IsPrimitive,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.Reset()
	return b
}

// Graph returns the top-level flow graph as a deep-copied snapshot,
// independent of further pushes.
func (b *Builder) Graph() *flow.Graph {
	return b.stack[0].graph.Clone()
}

// Depth returns the current call-stack depth, including the top-level scope.
// A finished capture is back at depth one.
func (b *Builder) Depth() int {
	return len(b.stack)
}

// Err returns the fatal error that stopped the build, if any.
func (b *Builder) Err() error {
	return b.failed
}

// Reset discards all in-progress stack state and starts a fresh top-level
// graph.
func (b *Builder) Reset() {
	// The bottom of the call stack does not correspond to a call event. It
	// holds the root flow graph and its output table.
	b.stack = []*callContext{newContext(nil, "", flow.NewGraph())}
	b.failed = nil
}

// PushEvent feeds the next trace event to the builder. Protocol errors and
// consistency faults are fatal: the builder rejects further events until
// Reset. Resolution misses never surface as errors.
func (b *Builder) PushEvent(event trace.Event) error {
	if b.failed != nil {
		return b.failed
	}
	metrics.IncEvents()
	var err error
	switch e := event.(type) {
	case *trace.CallEvent:
		err = b.pushCall(e)
	case *trace.ReturnEvent:
		err = b.pushReturn(e)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownEvent, event)
	}
	if err != nil {
		b.failed = err
	}
	return err
}

// pushCall creates a node for the call in the current scope's graph, wires
// its argument edges, and pushes a new construction context.
func (b *Builder) pushCall(event *trace.CallEvent) error {
	ctx := b.top()
	if ctx.graph == nil {
		return fmt.Errorf("%w: call %q nested under an atomic call", ErrEventMismatch, event.FullName())
	}

	annotation := b.notateFunction(event.Function)
	node := b.addCallNode(ctx, event, annotation)

	for _, arg := range event.Arguments {
		b.addCallInEdge(ctx, event, node, arg.Name, arg.Value)
		// Recover tracked objects hidden inside untrackable container
		// arguments; each is wired as if it were the argument itself.
		for _, ref := range trace.HiddenReferents(event.Tracker, arg.Value) {
			b.addCallInEdge(ctx, event, node, arg.Name, ref)
		}
	}

	// A non-atomic call opens a new scope: all further nested events route
	// into this graph until the matching return.
	var nested *flow.Graph
	if !event.Atomic {
		nested = flow.NewGraph()
		node.Graph = nested
	}
	b.stack = append(b.stack, newContext(event, node.ID, nested))
	return nil
}

// pushReturn pops the matching call context and finalizes its node:
// annotation rework for special methods, output ports, and ownership updates.
func (b *Builder) pushReturn(event *trace.ReturnEvent) error {
	if len(b.stack) < 2 {
		return fmt.Errorf("%w: return %q with no pending call", ErrEventMismatch, event.FullName())
	}
	ctx := b.top()
	b.stack = b.stack[:len(b.stack)-1]
	if ctx.event.FullName() != event.FullName() {
		return fmt.Errorf("%w: call %q, return %q", ErrEventMismatch, ctx.event.FullName(), event.FullName())
	}
	parent := b.top()
	node := parent.graph.Node(ctx.node)
	if node == nil {
		return fmt.Errorf("%w: node for %q vanished", ErrEventMismatch, event.FullName())
	}

	annotation := b.notateFunction(event.Function)
	if !b.updateCallNodeForReturn(parent, event, annotation, node) {
		return nil
	}

	// Set outputs for return value(s). A Tuple is interpreted as multiple
	// return values, one positional port each.
	if tuple, ok := event.Value.(trace.Tuple); ok {
		for i, value := range tuple {
			if id := event.Tracker.ID(value); id != "" {
				port := fmt.Sprintf("%s.%d", returnPort, i)
				if err := b.setObjectOutput(parent, event.Tracker, value, id, node.ID, port); err != nil {
					return err
				}
			}
		}
	} else if id := event.Tracker.ID(event.Value); id != "" {
		if err := b.setObjectOutput(parent, event.Tracker, event.Value, id, node.ID, returnPort); err != nil {
			return err
		}
	}

	// Set outputs for mutated arguments.
	for _, arg := range event.Arguments {
		argID := event.Tracker.ID(arg.Value)
		if argID != "" && !b.isPure(event, annotation, arg.Name) {
			if err := b.setObjectOutput(parent, event.Tracker, arg.Value, argID, node.ID, mutatedPortName(arg.Name)); err != nil {
				return err
			}
		}
	}
	return nil
}

// addCallNode allocates a new call node in the current scope's graph.
func (b *Builder) addCallNode(ctx *callContext, event *trace.CallEvent, annotation *annotate.FuncAnnotation) *flow.Node {
	node := &flow.Node{
		ID:       flow.NodeName(event.QualName),
		QualName: event.QualName,
		Module:   event.Module,
	}
	names := make([]portName, 0, len(event.Arguments))
	for _, arg := range event.Arguments {
		names = append(names, portName{arg: arg.Name, port: arg.Name})
	}
	node.Ports = b.portsData(callIO(event), names, domainOf(annotation), flow.PortInput)
	if annotation != nil {
		node.Annotation = annotation.Key.String()
		node.AnnotationKind = flow.AnnotationFunction
	}
	if err := ctx.graph.AddNode(node); err != nil {
		// Node IDs are uuid-based; a collision here cannot happen.
		b.logger.Error("adding call node", "node", node.ID, "error", err)
	}
	metrics.IncNodes()
	return node
}

// updateCallNodeForReturn applies the special-case handling for attribute
// accesses and constructors, then attaches output ports. It reports whether
// the node was kept.
func (b *Builder) updateCallNodeForReturn(parent *callContext, event *trace.ReturnEvent, annotation *annotate.FuncAnnotation, node *flow.Node) bool {
	name := event.Name()
	switch {
	case name == "__getattr__" || name == "__getattribute__":
		// If the attribute is actually a bound method, drop the node: the
		// method body is traced as its own call, so the access is redundant.
		if isBoundMethod(event.Value) {
			parent.graph.RemoveNode(node.ID)
			metrics.IncGetattrDropped()
			return false
		}
		if annotation == nil {
			b.updateGetattrNode(event, node)
		}
	case name == "__init__" && annotation == nil:
		b.updateInitNode(event, node)
	}

	var names []portName
	if tuple, ok := event.Value.(trace.Tuple); ok {
		for i := range tuple {
			port := fmt.Sprintf("%s.%d", returnPort, i)
			names = append(names, portName{arg: port, port: port})
		}
	} else if event.Value != nil {
		names = append(names, portName{arg: returnPort, port: returnPort})
	}
	for _, arg := range event.Arguments {
		if !b.isPure(event, annotation, arg.Name) {
			names = append(names, portName{arg: arg.Name, port: mutatedPortName(arg.Name)})
		}
	}
	for _, p := range b.portsData(returnIO(event), names, codomainOf(annotation), flow.PortOutput) {
		node.SetPort(p)
	}
	return true
}

// updateGetattrNode records an unannotated attribute access as a slot node,
// carrying the owning object's declared slot index when the annotation
// declares this slot.
func (b *Builder) updateGetattrNode(event *trace.ReturnEvent, node *flow.Node) {
	if len(event.Arguments) < 2 {
		return
	}
	obj := event.Arguments[0].Value
	attr, _ := event.Arguments[1].Value.(string)
	if note := b.notateObject(obj); note != nil {
		for i, def := range note.Slots {
			if !def.Slot.IsIndex() && def.Slot.NameOf() == attr {
				node.Slot = attr
				node.Annotation = note.Key.String()
				node.AnnotationIndex = i + 1
				node.AnnotationKind = flow.AnnotationSlot
				return
			}
		}
	}
	node.Slot = attr
}

// updateInitNode records an unannotated object initializer as a constructor.
func (b *Builder) updateInitNode(event *trace.ReturnEvent, node *flow.Node) {
	if len(event.Arguments) == 0 {
		node.Construct = true
		return
	}
	if note := b.notateObject(event.Arguments[0].Value); note != nil {
		node.Annotation = note.Key.String()
		node.AnnotationKind = flow.AnnotationConstruct
		return
	}
	node.Construct = true
}

// addCallInEdge wires one incoming edge for an argument value.
func (b *Builder) addCallInEdge(ctx *callContext, event *trace.CallEvent, node *flow.Node, argName string, arg any) {
	argID := event.Tracker.ID(arg)
	if argID == "" {
		return
	}

	// If the argument has a known owner, wire from its node and port.
	if owner, ok := ctx.outputs[argID]; ok {
		b.addObjectEdge(ctx.graph, arg, argID, owner.node, node.ID, owner.port, argName)
		return
	}

	// Otherwise the argument is an unknown boundary input — except `self` in
	// a constructor and `cls` in a bound classmethod call, which are fresh
	// objects about to be defined, not external data.
	if event.Atomic && ((argName == "self" && event.Name() == "__init__") ||
		(argName == "cls" && isClassMethodReceiver(event.Function, arg))) {
		return
	}
	b.addObjectEdge(ctx.graph, arg, argID, ctx.graph.InputID, node.ID, "", argName)
}

// addObjectEdge adds an edge corresponding to an object.
func (b *Builder) addObjectEdge(graph *flow.Graph, obj any, objID, source, target, sourcePort, targetPort string) {
	edge := &flow.Edge{
		Source:     source,
		Target:     target,
		ObjectID:   objID,
		SourcePort: sourcePort,
		TargetPort: targetPort,
	}
	if note := b.notateObject(obj); note != nil {
		edge.Annotation = note.Key.String()
	}
	if err := graph.AddEdge(edge); err != nil {
		b.logger.Error("adding object edge", "object", objID, "error", err)
		return
	}
	metrics.IncEdges()
}

func (b *Builder) top() *callContext {
	return b.stack[len(b.stack)-1]
}

// notateFunction asks the annotation service for function metadata. Lookup
// failures of any kind degrade to "no annotation available".
func (b *Builder) notateFunction(ref *trace.FuncRef) (annotation *annotate.FuncAnnotation) {
	defer func() {
		if recover() != nil {
			annotation = nil
			metrics.IncResolutionMiss()
		}
	}()
	return b.annotator.NotateFunction(ref)
}

// notateObject asks the annotation service for object metadata. Lookup
// failures of any kind degrade to "no annotation available".
func (b *Builder) notateObject(v any) (annotation *annotate.ObjectAnnotation) {
	defer func() {
		if recover() != nil {
			annotation = nil
			metrics.IncResolutionMiss()
		}
	}()
	return b.annotator.NotateObject(v)
}

func domainOf(a *annotate.FuncAnnotation) []annotate.Role {
	if a == nil {
		return nil
	}
	return a.Domain
}

func codomainOf(a *annotate.FuncAnnotation) []annotate.Role {
	if a == nil {
		return nil
	}
	return a.Codomain
}

// isBoundMethod reports whether a returned value is a method bound to a
// receiver. Method values surface in the event stream as function references.
func isBoundMethod(v any) bool {
	ref, ok := v.(*trace.FuncRef)
	return ok && ref.Receiver != nil
}

// isClassMethodReceiver reports whether the callee is bound to the given
// argument value, the shape of a classmethod-style call.
func isClassMethodReceiver(ref *trace.FuncRef, arg any) (same bool) {
	if ref == nil || ref.Receiver == nil {
		return false
	}
	defer func() {
		// Uncomparable receivers cannot be classmethod receivers.
		if recover() != nil {
			same = false
		}
	}()
	return ref.Receiver == arg
}
