// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a federated account. ID is chosen by the client at sign-up so
// local and remote records share it.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Salt        []byte
	Verifier    []byte
	CreatedAt   time.Time
}
