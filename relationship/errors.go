package relationship

import (
	"context"
	"errors"
	"fmt"

	"friendgraph/models"
)

var (
	// ErrNotFound means the request id no longer exists or is no longer
	// pending. Mutations treat it as already-terminal, not fatal.
	ErrNotFound = errors.New("request not found")

	// ErrConflict means the store refused a write because a conflicting
	// edge already exists for the pair. Mutations recover by re-reading.
	ErrConflict = errors.New("conflicting relationship state")

	// ErrStoreUnavailable wraps backend/network failures. Retryable.
	ErrStoreUnavailable = errors.New("relationship store unavailable")

	// ErrTimeout marks a store call that exceeded its deadline. Retryable.
	ErrTimeout = errors.New("relationship store timeout")
)

// InvalidTransitionError reports an action that is not legal from the
// observed status. Hint tells the caller which action to use instead.
type InvalidTransitionError struct {
	Action   string
	Observed models.RelationshipStatus
	Hint     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s from status %q: %s", e.Action, e.Observed.Kind, e.Hint)
}

// IsRetryable reports whether the caller may simply retry the call.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}

// alreadyTerminal reports whether a mutation failed only because the target
// request had already left the pending state.
func alreadyTerminal(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict)
}
