package user

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidFullName    = errors.New("full name must be between 1 and 100 characters")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidPhone       = errors.New("invalid phone number for the specified region")
	ErrContactRequired    = errors.New("email or phone is required")
	ErrContactInUse       = errors.New("email or phone number is already in use")
	ErrInvalidPrice       = errors.New("session price must not be negative")
	ErrStudentNotProvided = errors.New("only clients can be registered as students")
)
