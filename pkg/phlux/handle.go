package phlux

import "github.com/grovetools/phlux/errors"

// Handle is the typed access point of one component to its scope.
type Handle[S any] struct {
	store *Store
	key   Key
}

// New creates a scope with a fresh key holding initial.
func New[S any](store *Store, initial S) *Handle[S] {
	key := NewKey()
	store.Create(key, initial)
	return &Handle[S]{store: store, key: key}
}

// Restore binds to the scope saved in b. When the store already holds a live
// scope under b.Key (its owner was never really destroyed) that scope is used
// as is; otherwise the bundle is decoded and restored, relaunching its tasks.
func Restore[S any](store *Store, codec *Codec, b *Bundle) (*Handle[S], error) {
	h := &Handle[S]{store: store, key: b.Key}
	if _, ok := store.Get(b.Key); ok {
		return h, nil
	}

	rec, err := codec.Decode(b.Scope)
	if err != nil {
		return nil, err
	}
	if _, ok := rec.State().(S); !ok {
		var want S
		return nil, errors.StateMismatch(string(b.Key), want, rec.State())
	}
	store.Restore(b.Key, rec)
	return h, nil
}

// Attach binds to a scope that is already live in store.
func Attach[S any](store *Store, key Key) (*Handle[S], error) {
	h := &Handle[S]{store: store, key: key}
	if _, err := h.State(); err != nil {
		return nil, err
	}
	return h, nil
}

// Key returns the scope key.
func (h *Handle[S]) Key() Key {
	return h.key
}

// State returns the current state.
func (h *Handle[S]) State() (S, error) {
	var zero S
	st, err := h.store.State(h.key)
	if err != nil {
		return zero, err
	}
	s, ok := st.(S)
	if !ok {
		return zero, errors.StateMismatch(string(h.key), zero, st)
	}
	return s, nil
}

// MustState returns the current state and panics if the scope was removed.
func (h *Handle[S]) MustState() S {
	s, err := h.State()
	if err != nil {
		panic(err)
	}
	return s
}

// Apply replaces the state with fn(state).
func (h *Handle[S]) Apply(fn func(S) S) {
	h.store.Apply(h.key, Transition(fn))
}

// Background runs task under id. A running task under the same id is cancelled
// first.
//
// Tasks are sticky: the descriptor stays with the scope after the task
// completes and is relaunched when the scope is restored, until the task
// dismisses itself or is dropped.
func (h *Handle[S]) Background(id TaskID, task Task) {
	h.store.Background(h.key, id, task)
}

// Drop cancels the task under id. The task may keep running but its outcome
// will not be applied.
func (h *Handle[S]) Drop(id TaskID) {
	h.store.Drop(h.key, id)
}

// Running reports whether a task is registered under id.
func (h *Handle[S]) Running(id TaskID) bool {
	rec, ok := h.store.Get(h.key)
	if !ok {
		return false
	}
	_, ok = rec.Task(id)
	return ok
}

// Remove disposes the scope for good. Call it only on final disposal of the
// owner, never on a transient restart.
func (h *Handle[S]) Remove() {
	h.store.Remove(h.key)
}

// Register subscribes cb to state changes. cb is called once right away with
// the current state.
func (h *Handle[S]) Register(cb func(S)) Subscription {
	return h.store.Register(h.key, func(st State) {
		cb(st.(S))
	})
}

// Unregister removes a subscription made with Register.
func (h *Handle[S]) Unregister(sub Subscription) {
	h.store.Unregister(h.key, sub)
}

// Save encodes the scope for the persistence collaborator.
func (h *Handle[S]) Save(codec *Codec) (*Bundle, error) {
	rec, ok := h.store.Get(h.key)
	if !ok {
		return nil, errors.ScopeNotFound(string(h.key))
	}
	saved, err := codec.Encode(rec)
	if err != nil {
		return nil, err
	}
	return &Bundle{Key: h.key, Scope: saved}, nil
}
