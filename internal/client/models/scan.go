package models

import (
	"fmt"
	"time"
)

// Status is the verdict of a scan.
type Status string

const (
	StatusSafe    Status = "SAFE"
	StatusCaution Status = "CAUTION"
	StatusDanger  Status = "DANGER"
)

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusSafe, StatusCaution, StatusDanger:
		return true
	}
	return false
}

func (s *Status) UnmarshalText(b []byte) error {
	v := Status(b)
	if !v.Valid() {
		return fmt.Errorf("unknown scan status %q", string(b))
	}
	*s = v
	return nil
}

// ScanRecord is one entry of the history ledger. Immutable once created.
type ScanRecord struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Timestamp         time.Time `json:"timestamp"`
	Status            Status    `json:"status"`
	Message           string    `json:"message"`
	DetectedAllergens []Token   `json:"detected_allergens"`
	// Thumbnail is a data URL ("data:image/jpeg;base64,...") or empty.
	Thumbnail string `json:"thumbnail,omitempty"`
}
