package syncapi

import (
	"encoding/json"
	"time"
)

type RegisterUserRequest struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Salt        []byte `json:"salt"`
	Verifier    []byte `json:"verifier"`
}

type RegisterUserResponse struct{}

type GetSaltRequest struct {
	Email string `json:"email"`
}

type GetSaltResponse struct {
	Salt []byte `json:"salt"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Verifier []byte `json:"verifier"`
}

type LoginResponse struct {
	UserID       string `json:"user_id"`
	DisplayName  string `json:"display_name"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type WriteRequest struct {
	Path     string          `json:"path"`
	Document json.RawMessage `json:"document"`
}

type WriteResponse struct {
	Version int64 `json:"version"`
}

type SubscribeRequest struct {
	Path string `json:"path"`
}

// Snapshot is the full state of one document at Version. A subscription
// always starts with one snapshot; for a path never written it is an empty
// placeholder with Version 0.
type Snapshot struct {
	Path      string          `json:"path"`
	Document  json.RawMessage `json:"document,omitempty"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Empty reports whether s is the placeholder for a missing document.
func (s *Snapshot) Empty() bool {
	return len(s.Document) == 0 || string(s.Document) == "null"
}
