package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this email or open id already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrNotFound indicates that a content record was not found
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists indicates that a record with the same unique field already exists
	ErrAlreadyExists = errors.New("record already exists")

	// ErrInvalidKey indicates that a natural key is missing or empty
	ErrInvalidKey = errors.New("natural key is required")

	// ErrInvalidInput indicates malformed field values in a patch
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates a unique constraint violation raised by the database.
	// The upsert layer converts it into an update; other callers see ErrAlreadyExists.
	ErrConflict = errors.New("unique constraint conflict")

	// ErrUnavailable indicates that the database could not be reached
	ErrUnavailable = errors.New("storage unavailable")

	// ErrSessionNotFound indicates that a session id is not on the deny-list
	ErrSessionNotFound = errors.New("session not found")
)
