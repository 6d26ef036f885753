package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the resource belongs to another user
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrSessionNotFound indicates the session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidCredentials indicates wrong username/password combination
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidProvider indicates an unknown embedding, LLM or vector provider
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates an external AI service is not configured or unreachable
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrBlankDocumentExists indicates the collection already holds an untitled placeholder document
	ErrBlankDocumentExists = errors.New("blank document already exists")

	// ErrIndexNotFound indicates the vector index of a collection does not exist
	ErrIndexNotFound = errors.New("index not found")

	// ErrLockNotAcquired indicates a distributed lock could not be taken in time
	ErrLockNotAcquired = errors.New("lock not acquired")
)
