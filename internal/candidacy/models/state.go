package models

// StateKind classifies the derived candidacy state.
type StateKind string

const (
	StateNoHistory    StateKind = "NO_HISTORY"
	StateCandidate    StateKind = "CANDIDATE"
	StateNotCandidate StateKind = "NOT_CANDIDATE"
)

// State is the derived current candidacy for a person. It is a pure fold
// over the ordered event history; persisting it would invite drift.
type State struct {
	Kind   StateKind
	Latest *Event
}

// CurrentState folds an event history, ordered oldest to newest, into the
// current state. With the ordering guaranteed by the store (created_at, then
// insertion order), the fold reduces to the last element.
func CurrentState(events []Event) State {
	if len(events) == 0 {
		return State{Kind: StateNoHistory}
	}
	latest := events[len(events)-1]
	kind := StateNotCandidate
	if latest.IsCandidate {
		kind = StateCandidate
	}
	return State{Kind: kind, Latest: &latest}
}

// IsCandidate reports whether the derived state is candidate.
func (s State) IsCandidate() bool {
	return s.Kind == StateCandidate
}
