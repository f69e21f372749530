package auth

import "errors"

// Error kinds returned by Service, the messages are safe to show to clients
var (
	ErrValidation       = errors.New("Please provide all required fields")
	ErrConflict         = errors.New("User already exists with this email")
	ErrUnauthorized     = errors.New("Invalid credentials")
	ErrNotFound         = errors.New("User not found")
	ErrNoAccount        = errors.New("No user found with this email")
	ErrInvalidOrExpired = errors.New("Invalid or expired OTP")
	ErrDelivery         = errors.New("Email could not be sent. Please try again later.")
)

// ValidationError describes malformed input and matches ErrValidation
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Is lets errors.Is(err, ErrValidation) match any ValidationError
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(msg string) error {
	return &ValidationError{Msg: msg}
}
