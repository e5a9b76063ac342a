package booking

import "errors"

var (
	ErrProfessionalNotFound     = errors.New("professional not found")
	ErrProfessionalUnavailable  = errors.New("professional is not accepting bookings")
	ErrSlotNotAvailable         = errors.New("slot not available")
	ErrFreeSessionsStudentsOnly = errors.New("free sessions only for students")
	ErrFreeQuotaExhausted       = errors.New("free session quota exhausted for this period")

	ErrSessionNotFound   = errors.New("session not found")
	ErrForbidden         = errors.New("not allowed to act on this session")
	ErrNotCancellable    = errors.New("only scheduled or confirmed sessions can be cancelled")
	ErrTooLateToCancel   = errors.New("too late to cancel")
	ErrInvalidTransition = errors.New("invalid session status transition")

	ErrInvalidDuration = errors.New("duration must be positive")
	ErrInvalidPrice    = errors.New("price must not be negative")
	ErrSessionInPast   = errors.New("session start is in the past")
)
