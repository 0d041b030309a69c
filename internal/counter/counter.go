// Package counter is the scope state shared by the websocket server and the
// terminal demo: a count plus a delayed increment task.
package counter

import (
	"fmt"
	"time"

	"github.com/grovetools/phlux/pkg/phlux"
)

// TickID is the task id used for the delayed increment.
const TickID phlux.TaskID = 1

// State is the value held by a counter scope.
type State struct {
	Count int `yaml:"count" json:"count" toml:"count"`
	Ticks int `yaml:"ticks" json:"ticks" toml:"ticks"`
}

func (State) Kind() string { return "counter.state" }

func (s State) String() string {
	return fmt.Sprintf("count=%d ticks=%d", s.Count, s.Ticks)
}

// Add returns the transition that increments the count by n.
func Add(n int) func(State) State {
	return func(s State) State {
		s.Count += n
		return s
	}
}

// Tick increments the count by Step once DelayMS has elapsed. A zero Step
// dismisses the task instead.
type Tick struct {
	DelayMS int `yaml:"delay_ms" json:"delay_ms" toml:"delay_ms"`
	Step    int `yaml:"step" json:"step" toml:"step"`
}

func (Tick) Kind() string { return "counter.tick" }

func (t Tick) Execute(done phlux.Completion, dismiss phlux.Dismiss) phlux.Cancel {
	timer := time.AfterFunc(time.Duration(t.DelayMS)*time.Millisecond, func() {
		if t.Step == 0 {
			dismiss()
			return
		}
		done(phlux.Transition(func(s State) State {
			s.Count += t.Step
			s.Ticks++
			return s
		}))
	})
	return func() { timer.Stop() }
}

// Register makes counter states and ticks decodable by codec.
func Register(codec *phlux.Codec) *phlux.Codec {
	phlux.RegisterState[State](codec)
	phlux.RegisterTask[Tick](codec)
	return codec
}
