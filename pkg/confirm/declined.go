package confirm

import "errors"

// ErrDeclined matches every error produced by Declined.
var ErrDeclined = errors.New("declined by operator")

// DeclinedError reports a required gate the operator answered no to.
type DeclinedError struct {
	Reason string
}

// Declined returns an error explaining what the refused step was needed for.
func Declined(reason string) error {
	return &DeclinedError{Reason: reason}
}

func (e *DeclinedError) Error() string { return e.Reason }

// Is makes errors.Is(err, ErrDeclined) true.
func (e *DeclinedError) Is(target error) bool { return target == ErrDeclined }
