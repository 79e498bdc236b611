package session

import (
	"errors"
	"fmt"

	"github.com/abhisek/quizdrill/internal/store"
)

var (
	// ErrNotFound is returned for missing sessions and questions, and for
	// sessions owned by another user.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an operation is not allowed in the
	// session's current state.
	ErrInvalidState = errors.New("invalid session state")

	// ErrEmptySelection is returned when no questions match the request.
	ErrEmptySelection = errors.New("no questions selected")

	// ErrExternalFailure wraps failures of the answer judge.
	ErrExternalFailure = errors.New("external service failure")

	// ErrValidation is returned for malformed requests.
	ErrValidation = errors.New("invalid request")
)

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
}

func invalidState(s *store.Session, op string) error {
	return fmt.Errorf("%w: cannot %s a %s session", ErrInvalidState, op, s.Status)
}
