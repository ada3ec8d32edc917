// Package common defines shared constants and sentinel errors used across
// client and server layers of foodie. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Identity errors, returned to callers for user-facing messaging.
	ErrValidation         = errors.New("validation error: required field is empty")
	ErrDuplicateIdentity  = errors.New("identity already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Scan errors. Only ErrReentrancyRejected reaches callers; the rest are
	// absorbed by the pipeline and logged.
	ErrReentrancyRejected    = errors.New("scan already in progress")
	ErrImageDecode           = errors.New("image decode failure")
	ErrClassificationTimeout = errors.New("classification timed out")

	// ErrRemoteSync marks a failed remote write or subscription. Never fatal.
	ErrRemoteSync = errors.New("remote sync failure")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
