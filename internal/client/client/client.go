package client

import (
	"context"
)

// LoginResult is what the backend returns for a successful login.
type LoginResult struct {
	UserID      string
	DisplayName string
}

// Client is the remote collaborator of the client: identity backend plus
// push-synchronized document store.
type Client interface {
	Close() error
	Register(ctx context.Context, userID, email, displayName string, salt, verifier []byte) error
	GetSalt(ctx context.Context, email string) ([]byte, error)
	Login(ctx context.Context, email string, verifier []byte) (*LoginResult, error)
	Ping(ctx context.Context) error
	// Write stores document under path and returns after the server acked it.
	Write(ctx context.Context, path string, document []byte) error
	// Subscribe streams full document snapshots for path until ctx is
	// cancelled or the stream ends; the channel is closed afterwards.
	Subscribe(ctx context.Context, path string) (<-chan []byte, error)
	// Logout forgets the session tokens.
	Logout()
	Authenticated() bool
	Credentials() (access, refresh string)
	RestoreCredentials(access, refresh string)
}
