package transaction

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                      = errors.New("transaction not found")
	ErrDuplicateIdempotencyKey       = errors.New("duplicate idempotency key")
	ErrDuplicateProviderReference    = errors.New("duplicate provider reference id")
	ErrDuplicateTransactionReference = errors.New("duplicate transaction reference")
	ErrConcurrentModification        = errors.New("transaction modified concurrently")
	ErrTransitionNotAllowed          = errors.New("status transition not allowed")
)

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move transaction from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrTransitionNotAllowed
}
