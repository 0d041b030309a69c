package counter

import (
	"testing"
	"time"

	"github.com/grovetools/phlux/pkg/phlux"
	"github.com/grovetools/phlux/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickCompletes(t *testing.T) {
	h := phlux.New(phlux.NewStore(), State{Count: 1})
	rec := &testutil.Recorder[State]{}
	h.Register(rec.Record)

	h.Background(TickID, Tick{DelayMS: 5, Step: 10})
	rec.WaitLen(t, 2, time.Second)

	last, _ := rec.Last()
	assert.Equal(t, State{Count: 11, Ticks: 1}, last)
	assert.True(t, h.Running(TickID), "ticks stay registered after completing")
}

func TestTickWithoutStepDismisses(t *testing.T) {
	h := phlux.New(phlux.NewStore(), State{})
	h.Background(TickID, Tick{DelayMS: 1})

	require.Eventually(t, func() bool { return !h.Running(TickID) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, State{}, h.MustState())
}

func TestTickCancelledByDrop(t *testing.T) {
	h := phlux.New(phlux.NewStore(), State{})
	h.Background(TickID, Tick{DelayMS: 20, Step: 1})
	h.Drop(TickID)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, State{}, h.MustState())
}

func TestRegisterRoundTrip(t *testing.T) {
	codec := Register(phlux.NewCodec(phlux.FormatYAML))
	h := phlux.New(phlux.NewStore(), State{Count: 3})
	h.Apply(Add(4))
	h.Background(TickID, Tick{DelayMS: 60000, Step: 2})
	defer h.Remove()

	bundle, err := h.Save(codec)
	require.NoError(t, err)

	target := phlux.NewStore()
	restored, err := phlux.Restore[State](target, codec, bundle)
	require.NoError(t, err)
	defer restored.Remove()

	assert.Equal(t, State{Count: 7}, restored.MustState())
	assert.True(t, restored.Running(TickID))
	assert.Equal(t, "count=7 ticks=0", restored.MustState().String())
}
