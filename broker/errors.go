package broker

import "errors"

// RetriableError marks a transient venue failure (network, timeout, 5xx).
// Callers may retry the same call with the same parameters.
type RetriableError struct {
	Err error
}

func (e *RetriableError) Error() string { return "retriable: " + e.Err.Error() }
func (e *RetriableError) Unwrap() error { return e.Err }

// Retriable wraps err so IsRetriable reports true. nil stays nil.
func Retriable(err error) error {
	if err == nil {
		return nil
	}
	return &RetriableError{Err: err}
}

func IsRetriable(err error) bool {
	var re *RetriableError
	return errors.As(err, &re)
}

// RejectedError is a terminal refusal: risk-limit violation, validation
// failure, insufficient funds. Never retried.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string { return "rejected: " + e.Reason }

func Rejected(reason string) error {
	return &RejectedError{Reason: reason}
}

func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}
