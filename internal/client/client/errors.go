package client

import "errors"

var (
	ErrUnavailable   = errors.New("server unavailable")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrAlreadyExists = errors.New("already exists")
	ErrNotLoggedIn   = errors.New("not logged in to the server")
)
