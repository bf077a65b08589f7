package domain

import "fmt"

// Status is the lifecycle state of a payment. Every provider maps its own
// status strings and events into this vocabulary.
type Status string

const (
	StatusOpen              Status = "open"
	StatusPending           Status = "pending"
	StatusAuthorized        Status = "authorized"
	StatusSucceeded         Status = "succeeded"
	StatusFailed            Status = "failed"
	StatusCancelled         Status = "cancelled"
	StatusPartiallyRefunded Status = "partially_refunded"
	StatusRefunded          Status = "refunded"
	StatusDisputed          Status = "disputed"
)

var statuses = map[Status]struct{}{
	StatusOpen:              {},
	StatusPending:           {},
	StatusAuthorized:        {},
	StatusSucceeded:         {},
	StatusFailed:            {},
	StatusCancelled:         {},
	StatusPartiallyRefunded: {},
	StatusRefunded:          {},
	StatusDisputed:          {},
}

func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if _, ok := statuses[status]; !ok {
		return "", fmt.Errorf("unknown payment status %q", s)
	}

	return status, nil
}

func (s Status) String() string {
	return string(s)
}

// IsRefundOrDispute reports whether money already flowed back (or is contested)
// for the payment.
func (s Status) IsRefundOrDispute() bool {
	return s == StatusPartiallyRefunded || s == StatusRefunded || s == StatusDisputed
}

// Transition returns the status a payment in s should move to when a provider
// reports next. A refunded or disputed payment never goes back to pending or
// authorized, late or out-of-order events are ignored in that case.
func (s Status) Transition(next Status) Status {
	if s.IsRefundOrDispute() && (next == StatusPending || next == StatusAuthorized) {
		return s
	}

	return next
}
