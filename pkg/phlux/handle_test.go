package phlux

import (
	"sync"
	"testing"

	"github.com/grovetools/phlux/errors"
	"github.com/grovetools/phlux/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stickyTask is a persistable task that never completes on its own. Every
// launch is logged so tests can observe relaunches after a restore.
type stickyTask struct {
	Label string `yaml:"label" json:"label" toml:"label"`
}

func (stickyTask) Kind() string { return "test.sticky" }

var (
	launchMu  sync.Mutex
	launchLog []string
)

func (t stickyTask) Execute(Completion, Dismiss) Cancel {
	launchMu.Lock()
	defer launchMu.Unlock()
	launchLog = append(launchLog, t.Label)
	return nil
}

func launches() []string {
	launchMu.Lock()
	defer launchMu.Unlock()
	return append([]string(nil), launchLog...)
}

func resetLaunches() {
	launchMu.Lock()
	defer launchMu.Unlock()
	launchLog = nil
}

func TestHandleBasics(t *testing.T) {
	s := NewStore()
	h := New(s, counter{Count: 1})
	assert.NotEmpty(t, h.Key())

	rec := &testutil.Recorder[counter]{}
	sub := h.Register(rec.Record)
	h.Apply(func(c counter) counter { return counter{Count: c.Count * 5} })

	assert.Equal(t, []counter{{Count: 1}, {Count: 5}}, rec.Values())
	assert.Equal(t, counter{Count: 5}, h.MustState())

	h.Unregister(sub)
	h.Apply(func(c counter) counter { return counter{Count: 0} })
	assert.Len(t, rec.Values(), 2)
}

func TestHandlesHaveDistinctKeys(t *testing.T) {
	s := NewStore()
	a := New(s, counter{})
	b := New(s, counter{})
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, 2, s.Len())
}

func TestHandleTasks(t *testing.T) {
	s := NewStore()
	h := New(s, counter{})

	task := &manualTask{}
	h.Background(1, task)
	assert.True(t, h.Running(1))

	task.complete(Transition(func(c counter) counter { return counter{Count: 42} }))
	assert.Equal(t, 42, h.MustState().Count)
	assert.True(t, h.Running(1), "completed tasks stay registered until dismissed")

	h.Drop(1)
	assert.False(t, h.Running(1))
}

func TestHandleAfterRemove(t *testing.T) {
	s := NewStore()
	h := New(s, counter{Count: 3})
	h.Remove()

	_, err := h.State()
	assert.True(t, errors.Is(err, errors.ErrCodeScopeNotFound))
	assert.Panics(t, func() { h.MustState() })
	assert.False(t, h.Running(1))

	_, err = h.Save(NewCodec(FormatYAML))
	assert.True(t, errors.Is(err, errors.ErrCodeScopeNotFound))
}

func TestHandleStateMismatch(t *testing.T) {
	s := NewStore()
	s.Create("k", "not a counter")

	h, err := Attach[string](s, "k")
	require.NoError(t, err)
	assert.Equal(t, "not a counter", h.MustState())

	wrong := &Handle[counter]{store: s, key: "k"}
	_, err = wrong.State()
	assert.True(t, errors.Is(err, errors.ErrCodeStateMismatch))

	_, err = Attach[counter](s, "missing")
	assert.True(t, errors.Is(err, errors.ErrCodeScopeNotFound))
}

func newTestCodec(format Format) *Codec {
	c := NewCodec(format)
	RegisterState[counter](c)
	RegisterTask[stickyTask](c)
	return c
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatYAML, FormatJSON, FormatTOML} {
		t.Run(string(format), func(t *testing.T) {
			resetLaunches()
			codec := newTestCodec(format)

			origin := NewStore()
			h := New(origin, counter{Count: 17})
			h.Background(2, stickyTask{Label: "fetch"})
			h.Background(1, stickyTask{Label: "poll"})

			bundle, err := h.Save(codec)
			require.NoError(t, err)
			data, err := codec.Marshal(bundle)
			require.NoError(t, err)

			decoded, err := codec.Unmarshal(data)
			require.NoError(t, err)
			assert.Equal(t, bundle, decoded)

			resetLaunches()
			target := NewStore()
			restored, err := Restore[counter](target, codec, decoded)
			require.NoError(t, err)

			assert.Equal(t, h.Key(), restored.Key())
			assert.Equal(t, counter{Count: 17}, restored.MustState())
			assert.Equal(t, []string{"poll", "fetch"}, launches(), "tasks are relaunched in id order")

			r, ok := target.Get(restored.Key())
			require.True(t, ok)
			assert.Equal(t, map[TaskID]Task{
				1: stickyTask{Label: "poll"},
				2: stickyTask{Label: "fetch"},
			}, r.Tasks())
			assert.True(t, r.Cancellable(1))
			assert.True(t, r.Cancellable(2))
		})
	}
}

func TestRestoreToleratesLiveScope(t *testing.T) {
	resetLaunches()
	codec := newTestCodec(FormatYAML)
	s := NewStore()
	h := New(s, counter{Count: 1})
	h.Background(1, stickyTask{Label: "once"})

	bundle, err := h.Save(codec)
	require.NoError(t, err)
	h.Apply(func(c counter) counter { return counter{Count: 2} })

	again, err := Restore[counter](s, codec, bundle)
	require.NoError(t, err)
	assert.Equal(t, counter{Count: 2}, again.MustState(), "live scope wins over the saved copy")
	assert.Equal(t, []string{"once"}, launches(), "live tasks are not relaunched")
}

func TestRestoreRejectsWrongStateType(t *testing.T) {
	codec := newTestCodec(FormatJSON)
	s := NewStore()
	h := New(s, counter{Count: 1})
	bundle, err := h.Save(codec)
	require.NoError(t, err)

	_, err = Restore[string](NewStore(), codec, bundle)
	assert.True(t, errors.Is(err, errors.ErrCodeStateMismatch))
}
