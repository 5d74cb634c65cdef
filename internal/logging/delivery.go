package logging

import (
	"errors"
	"fmt"
)

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetryable
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Delivery is the classified result of a single transport attempt.
type Delivery struct {
	Outcome    Outcome
	StatusCode int
	Body       string
	Err        error
}

var (
	ErrMissingToken     = errors.New("logzio: token is required")
	ErrInvalidProtocol  = errors.New("logzio: invalid protocol")
	ErrRetriesExhausted = errors.New("logzio: retries exhausted")
	ErrUnexpectedStatus = errors.New("logzio: unexpected response status")
)

// StatusError is reported when the listener answers with anything but 200.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("there was a problem with the request, response: %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}
