package orders

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrInvalidTransition = errors.New("order: invalid status transition")
)

type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "order: invalid input: " + e.Reason
}

func invalidInput(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
