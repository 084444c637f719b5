package service

import "errors"

var (
	// ErrUnauthorized is returned when the admin secret does not match.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidInput is returned for an empty key or an unknown key type.
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden is returned when a presented API key is unknown or revoked.
	ErrForbidden = errors.New("invalid or revoked api key")
	// ErrMissingCredential is returned when no API key was presented.
	ErrMissingCredential = errors.New("missing api key")
	// ErrInvalidCredentials is returned for a failed login or a bad session token.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrStoreFailure wraps any error coming from the storage layer.
	ErrStoreFailure = errors.New("store failure")
)
