package models

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the portal core. The core never retries or
// translates these itself; callers (the API layer) decide how each one is
// presented.
var (
	// ErrNotFound indicates the requested entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates a tenant-scope or role violation. The API layer
	// masks it, but server-side it is always a distinct error so probing
	// attempts can be logged.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict indicates the incident changed between the caller's read
	// and the attempted write. The caller may re-fetch and retry.
	ErrConflict = errors.New("incident modified concurrently")

	// ErrInvalidRange indicates a malformed or inverted SLA query range
	ErrInvalidRange = errors.New("invalid date range")

	// ErrInvalidIndex indicates an annotation index that can never address
	// an element, such as a negative one
	ErrInvalidIndex = errors.New("invalid annotation index")

	// ErrInvalidTransition is the target of errors.Is for transition
	// rejections; the concrete error is always *InvalidTransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAlreadyPublished indicates the SIEM incident is already published
	// to the target tenant
	ErrAlreadyPublished = errors.New("incident already published to tenant")

	// ErrIncidentTerminal indicates an operation that requires a live
	// incident hit one in a terminal status
	ErrIncidentTerminal = errors.New("incident is in a terminal status")
)

// InvalidTransitionError rejects a status change not present in the actor's
// transition table, carrying the edges that would have been legal.
type InvalidTransitionError struct {
	Actor   ActorClass
	From    Status
	To      Status
	Allowed []Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %q to %q as %s (allowed: %v)",
		e.From, e.To, e.Actor, e.Allowed)
}

// Is makes errors.Is(err, ErrInvalidTransition) match
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
