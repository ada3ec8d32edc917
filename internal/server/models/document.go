package models

import (
	"encoding/json"
	"time"
)

// Document is the server copy of one user-scoped document.
// Version grows by one on every write.
type Document struct {
	Path      string
	UserID    string
	Body      json.RawMessage
	Version   int64
	UpdatedAt time.Time
}
