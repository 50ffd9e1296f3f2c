package domain

import "fmt"

// PostingState is a step in the lifecycle of one posting attempt.
type PostingState string

const (
	StateReceived           PostingState = "RECEIVED"
	StateIdempotencyChecked PostingState = "IDEMPOTENCY_CHECKED"
	StateValidated          PostingState = "VALIDATED"
	StateLocked             PostingState = "LOCKED"
	StateApplied            PostingState = "APPLIED"
	StatePersisted          PostingState = "PERSISTED"
	StateCommitted          PostingState = "COMMITTED"
	StateFailed             PostingState = "FAILED"
)

var postingTransitions = map[PostingState]PostingState{
	StateReceived:           StateIdempotencyChecked,
	StateIdempotencyChecked: StateValidated,
	StateValidated:          StateLocked,
	StateLocked:             StateApplied,
	StateApplied:            StatePersisted,
	StatePersisted:          StateCommitted,
}

// IsTerminal reports whether no further transition is allowed from s.
func (s PostingState) IsTerminal() bool {
	return s == StateCommitted || s == StateFailed
}

// CanTransition reports whether a posting may move from s to next.
// A version conflict sends a validated posting back to VALIDATED before it
// re-acquires its locks.
func (s PostingState) CanTransition(next PostingState) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	if next == StateValidated && (s == StateLocked || s == StateApplied || s == StatePersisted) {
		return true
	}
	return postingTransitions[s] == next
}

// PostingAttempt tracks the state of a single posting through the engine.
type PostingAttempt struct {
	IdempotencyKey string
	State          PostingState
	History        []PostingState
}

func NewPostingAttempt(key string) *PostingAttempt {
	return &PostingAttempt{
		IdempotencyKey: key,
		State:          StateReceived,
		History:        []PostingState{StateReceived},
	}
}

// Advance moves the attempt to next or returns an error for an illegal transition.
func (a *PostingAttempt) Advance(next PostingState) error {
	if !a.State.CanTransition(next) {
		return fmt.Errorf("illegal posting transition %s -> %s", a.State, next)
	}
	a.State = next
	a.History = append(a.History, next)
	return nil
}
