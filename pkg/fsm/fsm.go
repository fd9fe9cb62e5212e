// Package fsm is a small finite-state machine. States are values whose
// dynamic type identifies them; each state lists the states it may move to.
//
// A machine belongs to a single owner and is not safe for concurrent use.
package fsm

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// State is a machine state. T is the target handed to Enter and Exit by the
// integration.
type State[T any] interface {
	Enter(target T)
	Exit(target T)
}

// BaseState gives a state no-op Enter and Exit methods
type BaseState[T any] struct{}

func (BaseState[T]) Enter(T) {}
func (BaseState[T]) Exit(T)  {}

// StateDef is a registered state with its allowed transitions.
type StateDef[T any] struct {
	State       State[T]
	Transitions []State[T]
}

// Allows reports whether the definition lists a transition to state's type
func (d *StateDef[T]) Allows(state State[T]) bool {
	target := reflect.TypeOf(state)
	for _, t := range d.Transitions {
		if reflect.TypeOf(t) == target {
			return true
		}
	}
	return false
}

// Integration performs the side effects of a state change. prev is nil for
// the initial transition. Returning false rejects the change.
type Integration[T any] interface {
	Transition(next, prev *StateDef[T]) bool
}

// CallbackIntegration exits the previous state and enters the next one,
// passing Target to both.
type CallbackIntegration[T any] struct {
	Target T
}

// Transition implements Integration
func (c CallbackIntegration[T]) Transition(next, prev *StateDef[T]) bool {
	if prev != nil {
		prev.State.Exit(c.Target)
	}
	next.State.Enter(c.Target)
	return true
}

// FSM holds the registered states and the current one.
type FSM[T any] struct {
	integration Integration[T]
	states      map[reflect.Type]*StateDef[T]
	current     *StateDef[T]
}

// New creates a machine with no states
func New[T any](integration Integration[T]) *FSM[T] {
	return &FSM[T]{
		integration: integration,
		states:      make(map[reflect.Type]*StateDef[T]),
	}
}

// Add registers state with the states it may move to. Adding the same state
// type twice panics.
func (f *FSM[T]) Add(state State[T], transitions ...State[T]) {
	key := reflect.TypeOf(state)
	if _, exists := f.states[key]; exists {
		panic(fmt.Sprintf("fsm: state %s added twice", key))
	}
	f.states[key] = &StateDef[T]{State: state, Transitions: transitions}
}

// Goto moves to state. The first Goto always succeeds; later ones only
// when the current state lists state's type. Moving to a state that was
// never added panics.
func (f *FSM[T]) Goto(state State[T]) bool {
	next, ok := f.states[reflect.TypeOf(state)]
	if !ok {
		panic(fmt.Sprintf("fsm: transition to %s, but the state was never added", reflect.TypeOf(state)))
	}

	if f.current != nil && !f.current.Allows(state) {
		zap.L().Warn("no transition defined",
			zap.String("from", f.CurrentName()),
			zap.String("to", reflect.TypeOf(state).String()))
		return false
	}

	if !f.integration.Transition(next, f.current) {
		return false
	}
	f.current = next
	return true
}

// Current returns the current state, or nil before the first Goto
func (f *FSM[T]) Current() State[T] {
	if f.current == nil {
		return nil
	}
	return f.current.State
}

// CurrentName returns the type name of the current state, or "" before
// the first Goto
func (f *FSM[T]) CurrentName() string {
	if f.current == nil {
		return ""
	}
	return reflect.TypeOf(f.current.State).String()
}
