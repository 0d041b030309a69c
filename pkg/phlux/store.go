package phlux

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/grovetools/phlux/errors"
	"github.com/grovetools/phlux/pkg/pmap"
	"github.com/sirupsen/logrus"
)

// snapshot is one published version of the whole store. A key is present in
// records if and only if it is present in subs.
type snapshot struct {
	records pmap.Map[Key, *Record]
	subs    pmap.Map[Key, *subscribers]
}

func (sn *snapshot) withRecord(key Key, rec *Record) *snapshot {
	return &snapshot{records: sn.records.With(key, rec), subs: sn.subs}
}

// Store holds every scope of a process.
//
// Reads load the current snapshot without locking. Writers serialize the
// read-compute-publish cycle on a single mutex so a transition function runs
// exactly once per Apply. Task code (Execute, Cancel) and subscriber callbacks
// always run outside that mutex and may call back into the store.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[snapshot]
	lastRun uint64
	lastSub uint64

	logger  *logrus.Entry
	metrics *Metrics
	runner  Runner
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for debug traces of store operations.
func WithLogger(logger *logrus.Entry) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithMetrics makes the store report to m.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithRunner sets where Task.Execute is called. Defaults to InlineRunner.
func WithRunner(r Runner) Option {
	return func(s *Store) {
		s.runner = r
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Store{
		logger: logrus.NewEntry(discard),
		runner: InlineRunner,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(&snapshot{})
	return s
}

// write publishes whatever fn returns. A nil result publishes nothing.
func (s *Store) write(fn func(cur *snapshot) *snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next := fn(s.current.Load()); next != nil {
		s.current.Store(next)
	}
}

// Create establishes a scope holding initial. It does nothing if key exists.
func (s *Store) Create(key Key, initial State) {
	created := false
	s.write(func(cur *snapshot) *snapshot {
		if cur.records.Has(key) {
			return nil
		}
		created = true
		return &snapshot{
			records: cur.records.With(key, &Record{state: initial}),
			subs:    cur.subs.With(key, &subscribers{outbox: &outbox{}}),
		}
	})
	if !created {
		s.logger.WithField("scope", key).Debug("Scope already exists, create ignored")
		return
	}
	s.metrics.scopes(1)
	s.logger.WithField("scope", key).Debug("Created scope")
}

// Restore installs rec under key unless key is already live, and relaunches
// every task descriptor of rec. It reports whether rec was installed.
func (s *Store) Restore(key Key, rec *Record) bool {
	type relaunch struct {
		id   TaskID
		run  uint64
		task Task
	}
	var launches []relaunch
	installed := false

	s.write(func(cur *snapshot) *snapshot {
		if cur.records.Has(key) {
			return nil
		}
		fresh := &Record{state: rec.state}
		rec.tasks.Range(func(id TaskID, l launch) bool {
			s.lastRun++
			fresh.tasks = fresh.tasks.With(id, launch{task: l.task, run: s.lastRun})
			launches = append(launches, relaunch{id: id, run: s.lastRun, task: l.task})
			return true
		})
		installed = true
		return &snapshot{
			records: cur.records.With(key, fresh),
			subs:    cur.subs.With(key, &subscribers{outbox: &outbox{}}),
		}
	})

	log := s.logger.WithField("scope", key)
	if !installed {
		log.Debug("Scope is live, restore ignored")
		return false
	}
	s.metrics.scopes(1)
	s.metrics.tasks(len(launches))
	log.WithField("tasks", len(launches)).Debug("Restored scope")

	for _, l := range launches {
		s.start(key, l.id, l.run, l.task)
	}
	return true
}

// Get returns the current record of key for persistence.
func (s *Store) Get(key Key) (*Record, bool) {
	return s.current.Load().records.Get(key)
}

// State returns the current state of key. Asking for a removed or unknown
// scope is a caller error and yields ErrCodeScopeNotFound.
func (s *Store) State(key Key) (State, error) {
	rec, ok := s.Get(key)
	if !ok {
		return nil, errors.ScopeNotFound(string(key))
	}
	return rec.state, nil
}

// Remove deletes key and cancels all of its tasks. Outcomes of those tasks that
// arrive later are ignored. It does nothing if key is absent.
func (s *Store) Remove(key Key) {
	var (
		rec  *Record
		subs *subscribers
	)
	s.write(func(cur *snapshot) *snapshot {
		r, ok := cur.records.Get(key)
		if !ok {
			return nil
		}
		rec = r
		subs, _ = cur.subs.Get(key)
		return &snapshot{
			records: cur.records.Without(key),
			subs:    cur.subs.Without(key),
		}
	})
	if rec == nil {
		return
	}

	rec.cancels.Range(func(_ TaskID, cancel Cancel) bool {
		cancel()
		return true
	})

	s.metrics.scopes(-1)
	s.metrics.tasks(-rec.tasks.Len())
	if subs != nil {
		s.metrics.subscribers(-subs.seq.Len())
	}
	s.logger.WithField("scope", key).WithField("cancelled", rec.cancels.Len()).Debug("Removed scope")
}

// Apply replaces the state of key with fn(state) and delivers the new state to
// every registered callback in registration order. fn is called exactly once
// if key is present and not at all otherwise.
//
// Delivery happens before Apply returns only when no other delivery for key
// is running. Called from inside a callback of key, or concurrently with
// another transition of key, Apply only queues the new state; the running
// drainer delivers it in order after its current callback returns.
func (s *Store) Apply(key Key, fn Function) {
	if !s.transition(key, fn, nil) {
		s.logger.WithField("scope", key).Debug("Apply on missing scope ignored")
	}
}

// transition applies fn when key is present and guard, if any, accepts the
// current record.
func (s *Store) transition(key Key, fn Function, guard func(*Record) bool) bool {
	var box *outbox
	s.write(func(cur *snapshot) *snapshot {
		rec, ok := cur.records.Get(key)
		if !ok || (guard != nil && !guard(rec)) {
			return nil
		}
		next := rec.withState(fn(rec.state))
		subs, _ := cur.subs.Get(key)
		if subs.seq.Len() > 0 {
			subs.outbox.push(delivery{state: next.state, targets: subs.seq})
		}
		box = subs.outbox
		return cur.withRecord(key, next)
	})
	if box == nil {
		return false
	}
	s.metrics.transition()
	box.drain()
	return true
}

// Background launches task under id, replacing and cancelling any task already
// registered under id. The descriptor stays registered after the task
// completes, so it is relaunched when the scope is restored, until the task
// dismisses itself or is dropped.
func (s *Store) Background(key Key, id TaskID, task Task) {
	var (
		prev    Cancel
		run     uint64
		existed bool
	)
	s.write(func(cur *snapshot) *snapshot {
		rec, ok := cur.records.Get(key)
		if !ok {
			return nil
		}
		prev, _ = rec.cancels.Get(id)
		existed = rec.tasks.Has(id)
		s.lastRun++
		run = s.lastRun
		return cur.withRecord(key, rec.withTask(id, launch{task: task, run: run}))
	})

	log := s.logger.WithField("scope", key).WithField("task", int(id))
	if run == 0 {
		log.Debug("Background on missing scope ignored")
		return
	}
	if prev != nil {
		prev()
	}
	if !existed {
		s.metrics.tasks(1)
	}
	log.Debug("Launching task")
	s.start(key, id, run, task)
}

func (s *Store) start(key Key, id TaskID, run uint64, task Task) {
	b := &binding{store: s, key: key, id: id, run: run}
	s.metrics.launch()
	s.runner.Run(func() {
		cancel := task.Execute(b.complete, b.dismiss)
		if cancel == nil {
			cancel = noopCancel
		}
		s.attach(key, id, run, cancel)
	})
}

// attach stores the cancel handle of a run. If the run was dropped, replaced or
// its scope removed while Execute was running, the handle is invoked instead.
func (s *Store) attach(key Key, id TaskID, run uint64, cancel Cancel) {
	attached := false
	s.write(func(cur *snapshot) *snapshot {
		rec, ok := cur.records.Get(key)
		if !ok {
			return nil
		}
		if r, ok := rec.runOf(id); !ok || r != run {
			return nil
		}
		attached = true
		return cur.withRecord(key, rec.withCancel(id, cancel))
	})
	if !attached {
		cancel()
	}
}

// Drop cancels the task under id and forgets its descriptor. The task may keep
// running but its outcome is ignored.
func (s *Store) Drop(key Key, id TaskID) {
	var (
		cancel  Cancel
		dropped bool
	)
	s.write(func(cur *snapshot) *snapshot {
		rec, ok := cur.records.Get(key)
		if !ok || !rec.tasks.Has(id) {
			return nil
		}
		dropped = true
		cancel, _ = rec.cancels.Get(id)
		return cur.withRecord(key, rec.without(id))
	})
	if !dropped {
		return
	}
	if cancel != nil {
		cancel()
	}
	s.metrics.tasks(-1)
	s.logger.WithField("scope", key).WithField("task", int(id)).Debug("Dropped task")
}

// Register appends cb to the subscribers of key and delivers the current state
// to cb before any later transition. The returned Subscription is zero if key
// is absent.
//
// The initial delivery happens before Register returns only when no other
// delivery for key is running. Otherwise it is queued behind the deliveries
// already pending and made by the running drainer.
func (s *Store) Register(key Key, cb Callback) Subscription {
	var (
		sub Subscription
		box *outbox
	)
	s.write(func(cur *snapshot) *snapshot {
		rec, ok := cur.records.Get(key)
		if !ok {
			return nil
		}
		subs, _ := cur.subs.Get(key)
		s.lastSub++
		sub = Subscription(s.lastSub)
		entry := subscriber{id: sub, cb: cb, active: &atomic.Bool{}}
		entry.active.Store(true)
		subs.outbox.push(delivery{state: rec.state, targets: pmap.NewSeq(entry)})
		box = subs.outbox
		return &snapshot{
			records: cur.records,
			subs:    cur.subs.With(key, &subscribers{seq: subs.seq.Append(entry), outbox: subs.outbox}),
		}
	})
	if box == nil {
		s.logger.WithField("scope", key).Debug("Register on missing scope ignored")
		return 0
	}
	s.metrics.subscribers(1)
	box.drain()
	return sub
}

// Unregister removes the callback registered as sub. Deliveries still queued
// for it are discarded.
func (s *Store) Unregister(key Key, sub Subscription) {
	var removed subscriber
	s.write(func(cur *snapshot) *snapshot {
		subs, ok := cur.subs.Get(key)
		if !ok {
			return nil
		}
		seq, ok := subs.seq.RemoveFirst(func(e subscriber) bool {
			if e.id == sub {
				removed = e
				return true
			}
			return false
		})
		if !ok {
			return nil
		}
		return &snapshot{
			records: cur.records,
			subs:    cur.subs.With(key, &subscribers{seq: seq, outbox: subs.outbox}),
		}
	})
	if removed.active != nil {
		removed.active.Store(false)
		s.metrics.subscribers(-1)
	}
}

// Keys returns the keys of all live scopes in ascending order.
func (s *Store) Keys() []Key {
	keys := s.current.Load().records.Keys()
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Len returns the number of live scopes.
func (s *Store) Len() int {
	return s.current.Load().records.Len()
}

func (s *Store) String() string {
	cur := s.current.Load()
	var b strings.Builder
	b.WriteString("Store{")
	for i, key := range s.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		rec, _ := cur.records.Get(key)
		subs, _ := cur.subs.Get(key)
		n := 0
		if subs != nil {
			n = subs.seq.Len()
		}
		fmt.Fprintf(&b, "%s: %v callbacks=%d", key, rec, n)
	}
	b.WriteString("}")
	return b.String()
}

// binding ties a task run to its scope. It is the only context a task's
// callbacks carry.
type binding struct {
	store *Store
	key   Key
	id    TaskID
	run   uint64
}

// current reports whether this run is still the one registered under id.
func (b *binding) current(rec *Record) bool {
	run, ok := rec.runOf(b.id)
	return ok && run == b.run
}

func (b *binding) complete(fn Function) {
	if b.store.transition(b.key, fn, b.current) {
		return
	}
	b.store.metrics.stale("completion")
	b.store.logger.WithField("scope", b.key).WithField("task", int(b.id)).Debug("Ignored stale task completion")
}

func (b *binding) dismiss() {
	dismissed := false
	b.store.write(func(cur *snapshot) *snapshot {
		rec, ok := cur.records.Get(b.key)
		if !ok || !b.current(rec) {
			return nil
		}
		dismissed = true
		return cur.withRecord(b.key, rec.without(b.id))
	})
	if !dismissed {
		b.store.metrics.stale("dismiss")
		return
	}
	b.store.metrics.tasks(-1)
	b.store.logger.WithField("scope", b.key).WithField("task", int(b.id)).Debug("Task dismissed")
}
