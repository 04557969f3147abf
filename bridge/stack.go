package bridge

import (
	"fmt"
)

// stack is the marshalling area for dispatch. A dispatch pushes the handle
// object then its arguments, and emit consumes the arguments, leaving the
// caller to pop the object. Every dispatch path must leave the depth as it
// found it.
type stack[O any] struct {
	values []stackValue[O]
}

type stackValue[O any] struct {
	object   O
	arg      Arg
	isObject bool
}

func (s *stack[O]) depth() int {
	return len(s.values)
}

func (s *stack[O]) pushObject(o O) {
	s.values = append(s.values, stackValue[O]{object: o, isObject: true})
}

func (s *stack[O]) pushArg(a Arg) {
	s.values = append(s.values, stackValue[O]{arg: a})
}

// object returns the object at index i, panicking if it is an argument.
func (s *stack[O]) object(i int) O {
	v := s.values[i]
	if !v.isObject {
		panic(fmt.Sprintf("bridge: stack index %d is not an object", i))
	}
	return v.object
}

// args copies the n values above index i.
func (s *stack[O]) args(i, n int) []Arg {
	args := make([]Arg, n)
	for j := range args {
		args[j] = s.values[i+j].arg
	}
	return args
}

func (s *stack[O]) pop(n int) {
	if n > len(s.values) {
		panic(fmt.Sprintf("bridge: stack underflow: pop %d of %d", n, len(s.values)))
	}
	clear(s.values[len(s.values)-n:])
	s.values = s.values[:len(s.values)-n]
}

// expect panics with a *StackError unless the depth is want.
func (s *stack[O]) expect(want int, event string) {
	if got := len(s.values); got != want {
		panic(&StackError{Event: event, Depth: got, Want: want})
	}
}

// StackError is the panic value of a dispatch that left the marshalling
// stack unbalanced.
type StackError struct {
	Event string
	Depth int
	Want  int
}

func (e *StackError) Error() string {
	return fmt.Sprintf("bridge: unbalanced stack after %s dispatch: depth %d, want %d", e.Event, e.Depth, e.Want)
}

// FatalPanic marks the error as an invariant violation, which an event
// loop must not recover from.
func (*StackError) FatalPanic() {}
