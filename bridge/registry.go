package bridge

import (
	"fmt"
)

// Token is an opaque reference to a value held by a [Registry]. The zero
// Token never refers to a live value.
type Token struct {
	slot uint32
	gen  uint32
}

// IsZero reports whether t is the zero Token.
func (t Token) IsZero() bool {
	return t.gen == 0
}

func (t Token) String() string {
	return fmt.Sprintf("token(%d/%d)", t.slot, t.gen)
}

// StaleTokenError is the panic value of [Registry.Resolve] for a token that
// was released, or never issued by that registry.
type StaleTokenError struct {
	Token Token
}

func (e *StaleTokenError) Error() string {
	return fmt.Sprintf("bridge: stale or invalid %s", e.Token)
}

// FatalPanic marks the error as an invariant violation, which an event
// loop must not recover from.
func (*StaleTokenError) FatalPanic() {}

// Registry holds values on behalf of tokens. Slots are reused after
// release, with a bumped generation so that old tokens are detected.
//
// The zero value is ready to use. Not safe for concurrent use.
type Registry[T any] struct {
	slots []registrySlot[T]
	free  []uint32
	live  int
}

type registrySlot[T any] struct {
	value T
	gen   uint32
	used  bool
}

// Register stores v and returns its token.
func (r *Registry[T]) Register(v T) Token {
	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.slots = append(r.slots, registrySlot[T]{})
		idx = uint32(len(r.slots) - 1)
	}

	s := &r.slots[idx]
	s.gen++
	if s.gen == 0 {
		// wrapped, generation 0 is reserved for the zero Token
		s.gen = 1
	}
	s.value = v
	s.used = true
	r.live++

	return Token{slot: idx, gen: s.gen}
}

// Lookup returns the value for t, or false if t is not live.
func (r *Registry[T]) Lookup(t Token) (T, bool) {
	if s := r.slot(t); s != nil {
		return s.value, true
	}
	var zero T
	return zero, false
}

// Resolve returns the value for t, panicking with a *StaleTokenError if t
// is not live.
func (r *Registry[T]) Resolve(t Token) T {
	s := r.slot(t)
	if s == nil {
		panic(&StaleTokenError{Token: t})
	}
	return s.value
}

// Release drops the value for t, after which t is stale. Releasing a token
// that is not live panics with a *StaleTokenError.
func (r *Registry[T]) Release(t Token) {
	s := r.slot(t)
	if s == nil {
		panic(&StaleTokenError{Token: t})
	}
	var zero T
	s.value = zero
	s.used = false
	r.free = append(r.free, t.slot)
	r.live--
}

// Len returns the number of live tokens.
func (r *Registry[T]) Len() int {
	return r.live
}

func (r *Registry[T]) slot(t Token) *registrySlot[T] {
	if t.IsZero() || int(t.slot) >= len(r.slots) {
		return nil
	}
	s := &r.slots[t.slot]
	if !s.used || s.gen != t.gen {
		return nil
	}
	return s
}
