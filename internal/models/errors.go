package models

import "errors"

// Error taxonomy shared by all stores. Validation errors are returned before
// any round trip to the backing store; ErrUpstream wraps opaque collaborator
// failures and always carries the upstream message.
var (
	ErrUnauthenticated = errors.New("no authenticated identity")
	ErrUnauthorized    = errors.New("identity does not own this resource")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrSelfConnection  = errors.New("cannot spark your own profile")
	ErrEmptyContent    = errors.New("content cannot be empty")
	ErrInvalidInput    = errors.New("invalid input")
	ErrQuotaExceeded   = errors.New("free AI style limit reached")
	ErrGenerationBusy  = errors.New("a style generation is already in flight for this profile")
	ErrAuthUnavailable = errors.New("auth provider unavailable")
	ErrUpstream        = errors.New("upstream error")
)
