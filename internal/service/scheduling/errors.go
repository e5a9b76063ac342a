package scheduling

import "errors"

var (
	ErrProfessionalNotFound = errors.New("professional not found")
	ErrNotProfessional      = errors.New("only counselors and psychiatrists manage a schedule")
	ErrPastDate             = errors.New("date is in the past")
	ErrInvalidMonth         = errors.New("month must be between 1 and 12")
	ErrSlotBooked           = errors.New("a booked slot cannot be made unavailable")
	ErrNoTimes              = errors.New("at least one time is required")
)
