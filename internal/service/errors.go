package service

import (
	"errors"
	"fmt"

	"servopanel/internal/backend"
)

var (
	// ErrFleetBusy means the fleet lock is held by a sweep.
	ErrFleetBusy        = errors.New("please wait for current movement")
	ErrUnknownActuator  = errors.New("unknown actuator")
	ErrActuatorDisabled = errors.New("actuator disabled")
)

// ValidationError is a local, advisory rejection. Nothing is sent to the
// backend when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// rejectionMessage extracts the backend's reason from a business rejection.
func rejectionMessage(err error) (string, bool) {
	var re *backend.RejectedError
	if errors.As(err, &re) {
		return re.Message, true
	}
	return "", false
}
