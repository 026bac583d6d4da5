package claims

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a claim id does not exist in the store.
var ErrNotFound = errors.New("claim not found")

// ValidationError rejects a submission or request before anything is persisted.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// InvalidTransitionError rejects an illegal lifecycle move. The claim is
// left untouched.
type InvalidTransitionError struct {
	ClaimID string
	From    ClaimStatus
	To      ClaimStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("claim %s: cannot transition from %s to %s", e.ClaimID, e.From, e.To)
}
