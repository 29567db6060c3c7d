package backend

import (
	"errors"
	"fmt"
)

// ErrTransport covers network failures, non-2xx answers and undecodable bodies.
var ErrTransport = errors.New("backend unreachable")

// RejectedError is a business rejection: the backend answered success:false.
type RejectedError struct {
	Op      string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s rejected", e.Op)
	}
	return fmt.Sprintf("%s rejected: %s", e.Op, e.Message)
}

// IsRejected reports whether err carries a business rejection.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

func transportErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrTransport, err)
}
