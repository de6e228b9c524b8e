package mail

import (
	"fmt"
	"strings"
)

// Failure pairs a message that could not be sent with its error.
type Failure struct {
	Message *Message
	Err     error
}

// SendResults is the outcome of Mailer.SendMultiple.
type SendResults struct {
	SuccessMessages []*Message
	FailMessages    []Failure
}

// Failed reports whether at least one message failed.
func (r *SendResults) Failed() bool {
	return len(r.FailMessages) > 0
}

// Total returns the number of processed messages.
func (r *SendResults) Total() int {
	return len(r.SuccessMessages) + len(r.FailMessages)
}

// Err returns an error describing all failures, or nil.
func (r *SendResults) Err() error {
	if !r.Failed() {
		return nil
	}
	return &BatchError{Failures: r.FailMessages}
}

// BatchError aggregates the per message errors of a batch send.
type BatchError struct {
	Failures []Failure
}

func (e *BatchError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Err.Error()
	}
	return fmt.Sprintf("failed to send %d message(s): %s", len(e.Failures), strings.Join(msgs, "; "))
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
