// Package phlux is a keyed reactive state store.
//
// A Store holds any number of independent scopes. Each scope owns an immutable
// state value, a set of background tasks identified by small integer ids, and an
// ordered list of subscribers. All mutations of a scope are serialized by the
// store and every published state is delivered to the scope's subscribers exactly
// once, in publication order. Readers never lock: they observe a snapshot built
// from persistent maps that is never mutated after publication.
//
// Components normally use a Handle, a typed façade bound to one scope key.
package phlux

import "github.com/google/uuid"

// Key identifies one scope. Keys are never reused after removal.
type Key string

// NewKey returns a fresh random key.
func NewKey() Key {
	return Key(uuid.NewString())
}

// State is an application-defined immutable value held by a scope.
// It is replaced wholesale on every transition.
type State = any

// TaskID identifies a background task within its scope.
type TaskID int

// Function is a pure transition from the old state of a scope to the new one.
type Function func(State) State

// Callback receives every state published for a scope.
type Callback func(State)

// Subscription identifies one registered callback instance.
// The zero value identifies nothing.
type Subscription uint64

// Completion delivers the outcome of a background task as a transition.
type Completion func(Function)

// Dismiss signals that a background task finished without a transition.
type Dismiss func()

// Cancel stops delivery of a task run's outcome. It does not have to stop work
// already in flight and must not block.
type Cancel func()

// Task is a unit of asynchronous work. The task value doubles as its own
// descriptor: it is what gets persisted and relaunched after a restore.
//
// Execute must not block. It starts the work and returns a Cancel. When the work
// ends the task calls at most one of done or dismiss.
type Task interface {
	Execute(done Completion, dismiss Dismiss) Cancel
}

// TaskFunc adapts a function to Task. TaskFunc values are not persistable.
type TaskFunc func(done Completion, dismiss Dismiss) Cancel

// Execute calls f.
func (f TaskFunc) Execute(done Completion, dismiss Dismiss) Cancel {
	return f(done, dismiss)
}

// Persistable is implemented by state and task types that can be saved.
// Kind must return a constant and must not read receiver fields.
type Persistable interface {
	Kind() string
}

// Runner decides where the store calls Task.Execute.
type Runner interface {
	Run(fn func())
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(fn func())

// Run calls f(fn).
func (f RunnerFunc) Run(fn func()) {
	f(fn)
}

var (
	// InlineRunner executes tasks on the calling goroutine.
	InlineRunner Runner = RunnerFunc(func(fn func()) { fn() })
	// GoRunner executes tasks on a new goroutine.
	GoRunner Runner = RunnerFunc(func(fn func()) { go fn() })
)

// Transition adapts a typed transition to Function.
func Transition[S any](fn func(S) S) Function {
	return func(st State) State {
		return fn(st.(S))
	}
}

func noopCancel() {}
