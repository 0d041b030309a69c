package demo

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/phlux/errors"
	"github.com/grovetools/phlux/internal/counter"
	"github.com/grovetools/phlux/pkg/persist"
	"github.com/grovetools/phlux/pkg/phlux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOptions(t *testing.T) Options {
	t.Helper()
	repo, err := persist.NewFileRepository(t.TempDir())
	require.NoError(t, err)
	return Options{
		Store:       phlux.NewStore(),
		Codec:       counter.Register(phlux.NewCodec(phlux.FormatYAML)),
		Repo:        repo,
		TickDelayMS: 5,
	}
}

func press(t *testing.T, m Model, keyName string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch keyName {
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keyName)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// pump waits for the next delivered state and feeds it to the model.
func pump(t *testing.T, m Model) Model {
	t.Helper()
	done := make(chan tea.Msg, 1)
	go func() { done <- m.waitForState()() }()
	select {
	case msg := <-done:
		next, _ := m.Update(msg)
		return next.(Model)
	case <-time.After(2 * time.Second):
		t.Fatal("no state delivered")
		return m
	}
}

func TestCounterKeys(t *testing.T) {
	opts := newOptions(t)
	m, err := New(context.Background(), opts)
	require.NoError(t, err)
	m = pump(t, m)

	m, _ = press(t, m, "+")
	m, _ = press(t, m, "+")
	m, _ = press(t, m, "-")
	m = pump(t, m)
	assert.Equal(t, 1, m.state.Count)
	assert.Contains(t, m.View(), "phlux counter")
}

func TestTickIsDroppedOnceObserved(t *testing.T) {
	opts := newOptions(t)
	m, err := New(context.Background(), opts)
	require.NoError(t, err)
	m = pump(t, m)

	m, _ = press(t, m, "t")
	assert.True(t, m.handle.Running(counter.TickID))

	require.Eventually(t, func() bool {
		st, _ := m.handle.State()
		return st.Ticks == 1
	}, 2*time.Second, 5*time.Millisecond)
	m = pump(t, m)

	assert.Equal(t, counter.State{Count: 1, Ticks: 1}, m.state)
	assert.False(t, m.handle.Running(counter.TickID))
}

func TestDetachAndResume(t *testing.T) {
	opts := newOptions(t)
	m, err := New(context.Background(), opts)
	require.NoError(t, err)
	m, _ = press(t, m, "+")

	m, cmd := press(t, m, "esc")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.True(t, m.Outcome().Detached)

	// A fresh process: new store, same repository.
	opts.Store = phlux.NewStore()
	opts.Resume = m.Key()
	resumed, err := New(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "restored", resumed.origin)
	assert.Equal(t, 1, resumed.state.Count)
}

func TestQuitDisposesScope(t *testing.T) {
	opts := newOptions(t)
	m, err := New(context.Background(), opts)
	require.NoError(t, err)
	require.NoError(t, persist.Save(context.Background(), opts.Repo, opts.Codec, m.handle))

	m, cmd := press(t, m, "q")
	require.NotNil(t, cmd)
	assert.False(t, m.Outcome().Detached)
	assert.Equal(t, 0, opts.Store.Len())

	_, err = opts.Repo.Get(context.Background(), m.Key())
	assert.True(t, errors.Is(err, errors.ErrCodeBundleNotFound))
}

func TestResumeUnknownKey(t *testing.T) {
	opts := newOptions(t)
	opts.Resume = "nope"
	_, err := New(context.Background(), opts)
	assert.True(t, errors.Is(err, errors.ErrCodeBundleNotFound))
}
