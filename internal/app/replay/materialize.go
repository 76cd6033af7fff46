package replay

import (
	"github.com/flowtrace/flowtrace/internal/app/dto"
	"github.com/flowtrace/flowtrace/internal/core/trace"
)

// object is the placeholder standing in for one recorded object reference.
// Placeholders are pointers, so the identity tracker can recognize them, and
// they report the type observed at capture time instead of their own.
type object struct {
	ref    string
	module string
	qual   string
}

// TypeName implements trace.TypeNamer.
func (o *object) TypeName() (module, qualName string) {
	return o.module, o.qual
}

// materializer turns recorded value references back into runtime values. One
// materializer spans an entire replay, so the same reference resolves to the
// same placeholder in every chunk and identities line up across joins.
type materializer struct {
	tracker *trace.Tracker
	objects map[string]*object
}

func newMaterializer() *materializer {
	return &materializer{
		tracker: trace.NewTracker(),
		objects: make(map[string]*object),
	}
}

// value resolves a recorded value. References materialize as tracked
// placeholders; literals pass through as-is.
func (m *materializer) value(v *dto.ValueRef) any {
	if v == nil {
		return nil
	}
	if v.IsTuple() {
		tuple := make(trace.Tuple, 0, len(v.Tuple))
		for i := range v.Tuple {
			tuple = append(tuple, m.value(&v.Tuple[i]))
		}
		return tuple
	}
	if v.Ref == "" {
		return v.Value
	}
	obj, ok := m.objects[v.Ref]
	if !ok {
		obj = &object{ref: v.Ref}
		if v.Type != nil {
			obj.module = v.Type.Module
			obj.qual = v.Type.QualName
		}
		m.objects[v.Ref] = obj
		m.tracker.Track(obj)
	}
	return obj
}

// event reconstructs a trace event from its recorded form.
func (m *materializer) event(e *dto.Event) (trace.Event, error) {
	args := make([]trace.Argument, 0, len(e.Arguments))
	for i := range e.Arguments {
		a := &e.Arguments[i]
		args = append(args, trace.Argument{Name: a.Name, Value: m.value(&a.Value)})
	}
	fn := &trace.FuncRef{Module: e.Module, QualName: e.QualName}
	if e.Receiver != nil {
		fn.Receiver = m.value(e.Receiver)
	}

	switch e.Kind {
	case dto.EventKindCall:
		return &trace.CallEvent{
			QualName:  e.QualName,
			Module:    e.Module,
			Arguments: args,
			Atomic:    e.Atomic,
			Function:  fn,
			Tracker:   m.tracker,
		}, nil
	case dto.EventKindReturn:
		value := m.value(e.Return)
		if e.BoundMethod {
			receiver := fn.Receiver
			if receiver == nil && len(args) > 0 {
				receiver = args[0].Value
			}
			value = &trace.FuncRef{
				Module:   e.Module,
				QualName: e.QualName,
				Receiver: receiver,
			}
		}
		return &trace.ReturnEvent{
			QualName:  e.QualName,
			Module:    e.Module,
			Arguments: args,
			Value:     value,
			Function:  fn,
			Tracker:   m.tracker,
		}, nil
	default:
		return nil, dto.ErrInvalidEventKind
	}
}
