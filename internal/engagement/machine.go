package engagement

// Party names which side of a record may trigger a transition.
type Party string

const (
	PartyOwner        Party = "owner"
	PartyCounterparty Party = "counterparty"
	PartySystem       Party = "system"
)

// Transition is one legal edge of a status machine together with the
// party allowed to take it.
type Transition[S ~string] struct {
	From S
	To   S
	By   Party
}

// Machine is the transition table for one entity kind. Statuses with no
// outgoing edge are terminal.
type Machine[S ~string] struct {
	kind        Kind
	statuses    []S
	transitions []Transition[S]
}

func newMachine[S ~string](kind Kind, statuses []S, transitions ...Transition[S]) Machine[S] {
	return Machine[S]{kind: kind, statuses: statuses, transitions: transitions}
}

// Kind returns the entity kind the machine governs.
func (m Machine[S]) Kind() Kind { return m.kind }

// Statuses returns every status of the machine in declaration order.
func (m Machine[S]) Statuses() []S {
	out := make([]S, len(m.statuses))
	copy(out, m.statuses)
	return out
}

// Valid reports whether s is a known status.
func (m Machine[S]) Valid(s S) bool {
	for _, known := range m.statuses {
		if known == s {
			return true
		}
	}
	return false
}

// Allows reports whether from → to is a legal edge.
func (m Machine[S]) Allows(from, to S) bool {
	_, ok := m.edge(from, to)
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (m Machine[S]) IsTerminal(s S) bool {
	for _, t := range m.transitions {
		if t.From == s {
			return false
		}
	}
	return m.Valid(s)
}

// Next lists the statuses reachable from s in one step.
func (m Machine[S]) Next(s S) []S {
	var out []S
	for _, t := range m.transitions {
		if t.From == s {
			out = append(out, t.To)
		}
	}
	return out
}

func (m Machine[S]) edge(from, to S) (Transition[S], bool) {
	for _, t := range m.transitions {
		if t.From == from && t.To == to {
			return t, true
		}
	}
	return Transition[S]{}, false
}

// partiesInto returns every party that may move some record into to.
func (m Machine[S]) partiesInto(to S) []Party {
	var out []Party
	for _, t := range m.transitions {
		if t.To != to {
			continue
		}
		seen := false
		for _, p := range out {
			if p == t.By {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, t.By)
		}
	}
	return out
}

// Authorize checks that actor may move subject from → to.
//
// An actor that is not a party to any edge into to fails with Unauthorized
// regardless of the current status. A rightful party asking for an edge
// that does not exist (including any move out of a terminal status) fails
// with InvalidTransition.
func (m Machine[S]) Authorize(actor Actor, subject Subject, from, to S) error {
	f, t := string(from), string(to)

	candidates := m.partiesInto(to)
	if len(candidates) == 0 {
		return InvalidTransition(m.kind, subject.ID, f, t)
	}
	if !actor.PlaysAny(subject, candidates) {
		return Unauthorized(m.kind, subject.ID, f, t)
	}

	edge, ok := m.edge(from, to)
	if !ok {
		return InvalidTransition(m.kind, subject.ID, f, t)
	}
	if !actor.Plays(subject, edge.By) {
		return Unauthorized(m.kind, subject.ID, f, t)
	}
	return nil
}

// CanTransition is the boolean form of Authorize.
func (m Machine[S]) CanTransition(actor Actor, subject Subject, from, to S) bool {
	return m.Authorize(actor, subject, from, to) == nil
}
