package statemachine

import "fmt"

// State represents a state in the state machine.
type State interface {
	Name() string
}

// Event represents an event that can trigger a state transition.
type Event interface {
	Name() string
}

// Transition defines a state change triggered by an event.
type Transition struct {
	From  State
	To    State
	Event Event
}

// StringState provides a simple string-based state implementation for basic use cases.
type StringState string

func (s StringState) Name() string {
	return string(s)
}

// StringEvent provides a simple string-based event implementation for basic use cases.
type StringEvent string

func (e StringEvent) Name() string {
	return string(e)
}

// Table is an immutable transition table. Build it once and start a fresh
// Machine from it for every run; a Table is safe for concurrent use.
// Uses a nested map for O(1) lookups: [fromState][event]toState.
type Table struct {
	initial     State
	transitions map[string]map[string]State
}

// NewTable validates the transitions and builds a Table starting at initial.
// At most one transition may exist for a given state and event.
func NewTable(initial State, transitions ...Transition) (*Table, error) {
	if initial == nil {
		return nil, ErrInvalidTransition
	}

	t := &Table{
		initial:     initial,
		transitions: make(map[string]map[string]State, len(transitions)),
	}
	for _, tr := range transitions {
		if tr.From == nil || tr.To == nil || tr.Event == nil {
			return nil, ErrInvalidTransition
		}
		from, event := tr.From.Name(), tr.Event.Name()
		if _, ok := t.transitions[from]; !ok {
			t.transitions[from] = make(map[string]State)
		}
		if _, dup := t.transitions[from][event]; dup {
			return nil, fmt.Errorf("%w: state '%s', event '%s'", ErrDuplicateTransition, from, event)
		}
		t.transitions[from][event] = tr.To
	}
	return t, nil
}

// MustNewTable is like NewTable but panics on an invalid table, following
// the fail-fast pattern for definitions fixed at compile time.
func MustNewTable(initial State, transitions ...Transition) *Table {
	t, err := NewTable(initial, transitions...)
	if err != nil {
		panic(fmt.Sprintf("failed to create transition table: %v", err))
	}
	return t
}

// Initial returns the state every Machine starts in.
func (t *Table) Initial() State {
	return t.initial
}

// IsTerminal reports whether s has no outgoing transitions.
func (t *Table) IsTerminal(s State) bool {
	return len(t.transitions[s.Name()]) == 0
}

// Start returns a new Machine positioned at the initial state.
func (t *Table) Start() *Machine {
	return &Machine{
		table:   t,
		current: t.initial,
		history: []State{t.initial},
	}
}

// Machine walks a Table. No state is ever entered twice, so every run is a
// simple path through the table.
//
// A Machine is not safe for concurrent use; confine it to one goroutine.
type Machine struct {
	table   *Table
	current State
	history []State
}

func (m *Machine) Current() State {
	return m.current
}

// History returns the states visited so far, starting with the initial one.
func (m *Machine) History() []State {
	return append([]State(nil), m.history...)
}

// IsTerminal reports whether the current state has no outgoing transitions.
func (m *Machine) IsTerminal() bool {
	return m.table.IsTerminal(m.current)
}

// Fire moves the machine along the transition for event.
func (m *Machine) Fire(event Event) error {
	if event == nil {
		return ErrInvalidEvent
	}

	from, name := m.current.Name(), event.Name()
	to, ok := m.table.transitions[from][name]
	if !ok {
		return NewErrNoTransitionAvailable(from, name)
	}
	for _, s := range m.history {
		if s.Name() == to.Name() {
			return NewErrStateReentered(to.Name(), name)
		}
	}

	m.current = to
	m.history = append(m.history, to)
	return nil
}

// CanFire reports whether Fire(event) would succeed.
func (m *Machine) CanFire(event Event) bool {
	if event == nil {
		return false
	}
	to, ok := m.table.transitions[m.current.Name()][event.Name()]
	if !ok {
		return false
	}
	for _, s := range m.history {
		if s.Name() == to.Name() {
			return false
		}
	}
	return true
}
