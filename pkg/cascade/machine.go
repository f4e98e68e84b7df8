package cascade

import (
	"sort"
	"sync"

	"github.com/goliatone/go-ototahmin/pkg/catalog"
)

// Observer receives every snapshot stored by a Machine.
type Observer func(Snapshot)

// Option configures a Machine.
type Option func(*Machine)

// WithReloadPolicy selects how dataset loads treat existing selections.
func WithReloadPolicy(policy ReloadPolicy) Option {
	return func(m *Machine) {
		m.policy = policy
	}
}

// WithInitialForm overrides the default starting form values. Cascading
// fields are cleared because no dataset backs them yet.
func WithInitialForm(form FormState) Option {
	return func(m *Machine) {
		form.Brand, form.Series, form.Model = "", "", ""
		m.snap = NewSnapshot(form)
	}
}

// Machine holds the current Snapshot and serializes transitions. It is safe
// for concurrent use.
type Machine struct {
	mu        sync.Mutex
	snap      Snapshot
	policy    ReloadPolicy
	issued    uint64
	observers map[int]Observer
	nextObs   int
}

// NewMachine returns a machine holding the default form and no dataset.
func NewMachine(options ...Option) *Machine {
	m := &Machine{
		snap:      NewSnapshot(DefaultFormState()),
		observers: make(map[int]Observer),
	}
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Snapshot returns a copy of the current snapshot.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Clone()
}

// Change applies a field change and returns the resulting snapshot.
func (m *Machine) Change(field Field, value string) Snapshot {
	return m.dispatch(Changed(field, value))
}

// BeginLoad reserves a load generation. Only the most recently reserved
// generation can be applied with Load.
func (m *Machine) BeginLoad() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued++
	return m.issued
}

// Load applies ds if generation is the newest one handed out by BeginLoad
// and has not been applied yet. It reports false, leaving the machine
// untouched, otherwise.
func (m *Machine) Load(generation uint64, ds catalog.Dataset) (Snapshot, bool) {
	m.mu.Lock()
	if generation == 0 || generation != m.issued || generation <= m.snap.Generation {
		snap := m.snap.Clone()
		m.mu.Unlock()
		return snap, false
	}
	ev := Loaded(ds)
	ev.Generation = generation
	ev.Policy = m.policy
	m.snap = Apply(m.snap, ev)
	snap, observers := m.snap.Clone(), m.observerList()
	m.mu.Unlock()

	notify(observers, snap)
	return snap, true
}

// Subscribe registers fn for future snapshots and returns a function that
// removes it.
func (m *Machine) Subscribe(fn Observer) func() {
	if fn == nil {
		return func() {}
	}
	m.mu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

func (m *Machine) dispatch(ev Event) Snapshot {
	m.mu.Lock()
	m.snap = Apply(m.snap, ev)
	snap, observers := m.snap.Clone(), m.observerList()
	m.mu.Unlock()

	notify(observers, snap)
	return snap
}

// observerList must be called with mu held.
func (m *Machine) observerList() []Observer {
	if len(m.observers) == 0 {
		return nil
	}
	ids := make([]int, 0, len(m.observers))
	for id := range m.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Observer, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.observers[id])
	}
	return out
}

func notify(observers []Observer, snap Snapshot) {
	for _, fn := range observers {
		fn(snap.Clone())
	}
}
