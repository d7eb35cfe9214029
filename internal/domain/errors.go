package domain

import "errors"

// Sentinel errors shared by services, repositories and controllers.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyRegistered is returned when the actor already holds an active registration for the event.
	ErrAlreadyRegistered = errors.New("already registered for this event")
	// ErrPaymentRequired is returned by the free registration path for fee-bearing events.
	ErrPaymentRequired = errors.New("event requires payment; use the paid registration path")
	// ErrPaymentNotCompleted is returned when the gateway does not report the order as paid.
	ErrPaymentNotCompleted = errors.New("payment not completed")
	// ErrPaymentAlreadyUsed is returned when a payment id already backs another registration.
	ErrPaymentAlreadyUsed = errors.New("payment already used for a registration")

	// ErrUnavailable marks transient infrastructure failures (store unavailable, deadline exceeded).
	// Callers may retry these; no other error class should be retried.
	ErrUnavailable = errors.New("service temporarily unavailable")

	ErrRateLimited = errors.New("too many requests")
	ErrInvalidCode = errors.New("invalid or expired code")
)
