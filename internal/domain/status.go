// Package domain holds the persisted marketplace model: users, categories,
// addresses, jobs, and chat sessions.
//
// Job status graph:
//
//	pending ──► posted ──► accepted ──► completed
//	                           │            ▲
//	                           └─► pending_review
//	accepted ──► posted (accepter account deleted)
//	pending/posted/accepted/pending_review ──► deleted
//
// completed and deleted are terminal.
package domain

import "fmt"

// JobStatus mirrors the status column on jobs. Only transitions named in the
// table below are ever applied; everything else is rejected up front.
type JobStatus string

const (
	StatusPending       JobStatus = "pending"
	StatusPosted        JobStatus = "posted"
	StatusAccepted      JobStatus = "accepted"
	StatusPendingReview JobStatus = "pending_review"
	StatusCompleted     JobStatus = "completed"
	StatusDeleted       JobStatus = "deleted"
)

// PaymentStatus mirrors the payment_status column on jobs.
type PaymentStatus string

const (
	PaymentUnpaid     PaymentStatus = "unpaid"
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentCaptured   PaymentStatus = "captured"
)

var validJobTransitions = map[JobStatus][]JobStatus{
	StatusPending:       {StatusPosted, StatusDeleted},
	StatusPosted:        {StatusAccepted, StatusDeleted},
	StatusAccepted:      {StatusPendingReview, StatusCompleted, StatusPosted, StatusDeleted},
	StatusPendingReview: {StatusCompleted, StatusDeleted},
	// completed and deleted are terminal
}

// parseJobStatus converts a raw string to a JobStatus, rejecting unknown values.
func parseJobStatus(s string) (JobStatus, error) {
	st := JobStatus(s)
	switch st {
	case StatusPending, StatusPosted, StatusAccepted, StatusPendingReview, StatusCompleted, StatusDeleted:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// parsePaymentStatus converts a raw string to a PaymentStatus.
func parsePaymentStatus(s string) (PaymentStatus, error) {
	st := PaymentStatus(s)
	switch st {
	case PaymentUnpaid, PaymentAuthorized, PaymentCaptured:
		return st, nil
	}
	return "", fmt.Errorf("unknown payment status %q", s)
}

// CanTransition reports whether moving from → to is permitted.
func CanTransition(from, to JobStatus) bool {
	allowed, ok := validJobTransitions[from]
	if !ok {
		return false // terminal state
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing transitions.
func IsTerminal(s JobStatus) bool {
	return len(validJobTransitions[s]) == 0
}
