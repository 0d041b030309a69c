package phlux

import (
	"fmt"
	"strings"

	"github.com/grovetools/phlux/pkg/pmap"
)

// launch is a task descriptor together with the run it was started as.
// A run number only changes when the task is (re)launched.
type launch struct {
	task Task
	run  uint64
}

// Record is the immutable content of one scope: its state, its task
// descriptors and the cancel handles of running tasks.
//
// Every id in the cancel map is also in the task map. An id may be in the task
// map without a cancel while its task is being launched.
type Record struct {
	state   State
	tasks   pmap.Sorted[TaskID, launch]
	cancels pmap.Sorted[TaskID, Cancel]
}

// NewRecord returns a record holding state and task descriptors, as produced by
// decoding a persisted scope. Cancel handles are created when the record is
// restored into a store.
func NewRecord(state State, tasks map[TaskID]Task) *Record {
	r := &Record{state: state}
	for id, task := range tasks {
		r.tasks = r.tasks.With(id, launch{task: task})
	}
	return r
}

// State returns the state value.
func (r *Record) State() State {
	return r.state
}

// Task returns the descriptor registered under id.
func (r *Record) Task(id TaskID) (Task, bool) {
	l, ok := r.tasks.Get(id)
	return l.task, ok
}

// Tasks returns a copy of the descriptor map.
func (r *Record) Tasks() map[TaskID]Task {
	out := make(map[TaskID]Task, r.tasks.Len())
	r.tasks.Range(func(id TaskID, l launch) bool {
		out[id] = l.task
		return true
	})
	return out
}

// TaskIDs returns the ids of all registered tasks in ascending order.
func (r *Record) TaskIDs() []TaskID {
	return r.tasks.Keys()
}

// Cancellable reports whether the task under id has a cancel handle.
func (r *Record) Cancellable(id TaskID) bool {
	return r.cancels.Has(id)
}

func (r *Record) String() string {
	ids := make([]string, 0, r.tasks.Len())
	for _, id := range r.tasks.Keys() {
		ids = append(ids, fmt.Sprint(int(id)))
	}
	return fmt.Sprintf("Record{state=%v, tasks=[%s]}", r.state, strings.Join(ids, " "))
}

func (r *Record) withState(state State) *Record {
	return &Record{state: state, tasks: r.tasks, cancels: r.cancels}
}

func (r *Record) withTask(id TaskID, l launch) *Record {
	return &Record{state: r.state, tasks: r.tasks.With(id, l), cancels: r.cancels.Without(id)}
}

func (r *Record) withCancel(id TaskID, cancel Cancel) *Record {
	return &Record{state: r.state, tasks: r.tasks, cancels: r.cancels.With(id, cancel)}
}

func (r *Record) without(id TaskID) *Record {
	return &Record{state: r.state, tasks: r.tasks.Without(id), cancels: r.cancels.Without(id)}
}

// runOf returns the run number of the task under id.
func (r *Record) runOf(id TaskID) (uint64, bool) {
	l, ok := r.tasks.Get(id)
	return l.run, ok
}
