package lifecycle

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is matched by every rejected transition request.
var ErrInvalidTransition = errors.New("invalid transition")

// InvalidTransitionError carries the rejected edge.
type InvalidTransitionError struct {
	From Phase
	To   Phase
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// Is lets errors.Is(err, ErrInvalidTransition) match.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
