package builder

import (
	"strconv"
	"strings"

	"github.com/flowtrace/flowtrace/internal/core/annotate"
	"github.com/flowtrace/flowtrace/internal/core/flow"
	"github.com/flowtrace/flowtrace/internal/core/slots"
	"github.com/flowtrace/flowtrace/internal/core/trace"
	"github.com/flowtrace/flowtrace/internal/infrastructure/metrics"
)

// returnPort is the reserved port name for a call's return value; positional
// ports for tuple returns append ".N".
const returnPort = "__return__"

// mutatedPortName derives the output port name for a mutated argument. Ports
// share one namespace across input and output roles on a node, so a mutated
// argument must appear under two distinct names.
func mutatedPortName(argName string) string {
	return argName + "!"
}

// portName pairs the argument name used for value lookup with the port name
// recorded on the node. The two differ only for mutated arguments.
type portName struct {
	arg  string
	port string
}

// ioSlots exposes the values of a call or return event by slot name: any
// argument name, __return__, or a positional index into the argument list.
type ioSlots struct {
	args    []trace.Argument
	ret     any
	hasRet  bool
	tracker trace.Identities
}

func callIO(e *trace.CallEvent) ioSlots {
	return ioSlots{args: e.Arguments, tracker: e.Tracker}
}

func returnIO(e *trace.ReturnEvent) ioSlots {
	return ioSlots{args: e.Arguments, ret: e.Value, hasRet: true, tracker: e.Tracker}
}

// roleName maps an annotation slot (name or 0-based position) to an argument
// name, or "" when the position is out of range.
func (io ioSlots) roleName(s slots.Slot) string {
	if s.IsIndex() {
		if i := s.IndexOf(); i >= 0 && i < len(io.args) {
			return io.args[i].Name
		}
		return ""
	}
	return s.NameOf()
}

// lookup finds the value behind a port's argument name.
func (io ioSlots) lookup(name string) (any, bool) {
	if name == returnPort {
		return io.ret, io.hasRet
	}
	if rest, ok := strings.CutPrefix(name, returnPort+"."); ok {
		i, err := strconv.Atoi(rest)
		tuple, isTuple := io.ret.(trace.Tuple)
		if err == nil && isTuple && i >= 0 && i < len(tuple) {
			return tuple[i], true
		}
		return nil, false
	}
	for _, a := range io.args {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// portsData assembles the data for a node's input or output ports. The
// annotation roles are indexed starting at 1: the ordering is declared
// independently of any language's calling convention.
func (b *Builder) portsData(io ioSlots, names []portName, roles []annotate.Role, kind flow.PortKind) []*flow.Port {
	table := make(map[string]int, len(roles))
	for i, role := range roles {
		if name := io.roleName(role.Slot); name != "" {
			table[name] = i + 1
		}
	}
	ports := make([]*flow.Port, 0, len(names))
	for _, pn := range names {
		obj, ok := io.lookup(pn.arg)
		if !ok {
			metrics.IncResolutionMiss()
		}
		p := b.portData(io.tracker, obj, ok)
		p.Name = pn.port
		p.ArgName = pn.arg
		p.Kind = kind
		if idx, present := table[pn.arg]; present {
			p.AnnotationIndex = idx
		}
		ports = append(ports, p)
	}
	return ports
}

// portData captures the data for a single port: identity if tracked, a deep
// copy if primitive, a type descriptor if the type is not built-in, and the
// object's annotation key if one exists.
func (b *Builder) portData(tracker trace.Identities, obj any, present bool) *flow.Port {
	p := &flow.Port{}
	if !present || obj == nil {
		return p
	}
	if id := tracker.ID(obj); id != "" {
		p.ObjectID = id
	}
	if b.primitive(obj) {
		p.Value = &flow.Value{Data: flow.CopyValue(obj)}
	}
	if module, qualName := trace.TypeName(obj); module != "" {
		p.Type = &flow.TypeRef{Module: module, QualName: qualName}
	}
	if note := b.notateObject(obj); note != nil {
		p.Annotation = note.Key.String()
	}
	return p
}
