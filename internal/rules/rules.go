// Package rules holds the pure decision logic of the completion engine.
// Nothing here touches the database; callers pass an explicit snapshot of
// the children and get back the state the parent must move to. Recomputing
// from the full snapshot on every toggle (instead of keeping a completed
// counter) is what keeps the parent flag from drifting.
package rules

import "github.com/google/uuid"

// ChildState is the completion snapshot of one Step or HabitStep.
type ChildState struct {
	ID        uuid.UUID
	Completed bool
}

// Transition classifies a parent completion flag change for reward gating.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionCompleted
	TransitionReverted
)

// Classify returns the reward-relevant transition between two parent states.
func Classify(before, after bool) Transition {
	switch {
	case !before && after:
		return TransitionCompleted
	case before && !after:
		return TransitionReverted
	default:
		return TransitionNone
	}
}

// DecideChildToggle applies the requested value to the target child and
// answers whether the parent must now be complete. The aggregate is computed
// from the other children's current flags plus the new target value, never
// from a stored tally. found is false when the target is not in the set.
func DecideChildToggle(children []ChildState, targetID uuid.UUID, requested bool) (parentComplete bool, found bool) {
	if len(children) == 0 {
		return false, false
	}

	parentComplete = true
	for _, c := range children {
		if c.ID == targetID {
			found = true
			if !requested {
				parentComplete = false
			}
			continue
		}
		if !c.Completed {
			parentComplete = false
		}
	}

	if !found {
		return false, false
	}
	return parentComplete, true
}

// DecideParentToggle answers whether a direct completion request on the
// parent is allowed. Reversals are always allowed; completing a childful
// parent requires every child to already be complete. An empty child set is
// trivially satisfied, so a childless parent toggles like a leaf. remaining
// is the number of incomplete children blocking the request.
func DecideParentToggle(children []ChildState, currentParentComplete bool) (allowed bool, remaining int) {
	if currentParentComplete {
		// The request is a reversal.
		return true, 0
	}

	for _, c := range children {
		if !c.Completed {
			remaining++
		}
	}

	return remaining == 0, remaining
}

// Snapshot converts any child slice into ChildStates via an accessor.
func Snapshot[T any](items []T, fn func(T) ChildState) []ChildState {
	states := make([]ChildState, 0, len(items))
	for _, it := range items {
		states = append(states, fn(it))
	}
	return states
}
