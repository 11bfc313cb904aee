package draw

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrDuplicateSubmission = errors.New("wishlist already submitted")
	ErrAlreadyPicked       = errors.New("participant has already picked a wishlist")
	ErrNoEligibleTargets   = errors.New("no eligible wishlists left to pick")
	ErrSelfPickRejected    = errors.New("cannot pick your own wishlist")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrNotPickedYet        = errors.New("participant has not picked yet")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrInvalidAssignment   = errors.New("assignment target must be another existing participant")
)

// AlreadyPickedError is returned when a participant asks to pick again.
// It carries the previously recorded target so clients can render it.
type AlreadyPickedError struct {
	Target *Pick
}

func (e *AlreadyPickedError) Error() string {
	return ErrAlreadyPicked.Error()
}

func (e *AlreadyPickedError) Is(target error) bool {
	return target == ErrAlreadyPicked
}

// selfPickRejected matches both ErrSelfPickRejected and ErrNoEligibleTargets:
// the caller's own entry is the only one left, so nothing is eligible.
var selfPickRejected = fmt.Errorf("%w: %w", ErrSelfPickRejected, ErrNoEligibleTargets)

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

func storeFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
