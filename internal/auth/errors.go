package auth

import "errors"

var (
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateUser indicates the email is already registered.
	ErrDuplicateUser = errors.New("user with that email already exists")

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("email or password is incorrect")

	// ErrStore wraps persistence failures other than a uniqueness violation.
	ErrStore = errors.New("credential store failure")

	// ErrInvalidToken is returned when a bearer token fails verification.
	ErrInvalidToken = errors.New("invalid token")
)
