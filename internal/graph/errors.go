package graph

import (
	"errors"
	"fmt"
)

// ErrEmptyClaimID is returned when a claim has no identifier
var ErrEmptyClaimID = errors.New("claim id is empty")

// DuplicateClaimError is returned when a claim id is added twice
type DuplicateClaimError struct {
	ID string
}

func (e *DuplicateClaimError) Error() string {
	return fmt.Sprintf("duplicate claim: %s", e.ID)
}

// UnknownClaimError is returned when a dependency references a claim that is not in the store
type UnknownClaimError struct {
	ID string
}

func (e *UnknownClaimError) Error() string {
	return fmt.Sprintf("unknown claim: %s", e.ID)
}
