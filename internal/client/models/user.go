// Package models defines the client-side data model of foodie.
package models

import "time"

// AuthMode tells how a User was established.
type AuthMode string

const (
	// AuthModeLocal users live only in the local identity directory.
	AuthModeLocal AuthMode = "local"
	// AuthModeAnonymous users are ephemeral and never written to the directory.
	AuthModeAnonymous AuthMode = "anonymous"
	// AuthModeFederated users are also registered with the remote backend and
	// may sync their documents.
	AuthModeFederated AuthMode = "federated"
)

// User is an entry of the identity directory.
//
// The password is never stored: Salt and Verifier are produced by
// cryptox.Verifier and compared on sign-in.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name"`
	AuthMode    AuthMode  `json:"auth_mode"`
	Salt        []byte    `json:"salt,omitempty"`
	Verifier    []byte    `json:"verifier,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Syncs reports whether documents of u may be pushed to the remote store.
// Anonymous sessions never sync.
func (u *User) Syncs() bool {
	return u != nil && u.AuthMode == AuthModeFederated
}
