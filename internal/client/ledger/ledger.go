// Package ledger keeps the capped, newest-first scan history of a user.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/foodie/internal/client/models"
	"github.com/dmitrijs2005/foodie/internal/client/store"
	"github.com/dmitrijs2005/foodie/internal/common"
)

const DefaultCap = 10

// Documents is the slice of store.Store the ledger needs.
type Documents interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, value []byte) error
}

type Ledger struct {
	docs   Documents
	userID string
	cap    int

	mu sync.Mutex
}

func New(docs Documents, userID string, capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Ledger{docs: docs, userID: userID, cap: capacity}
}

func (l *Ledger) Cap() int {
	return l.cap
}

// Load returns the stored records, newest first. A missing history is empty.
func (l *Ledger) Load(ctx context.Context) ([]models.ScanRecord, error) {
	raw, err := l.docs.Get(ctx, store.KeyHistory)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return []models.ScanRecord{}, nil
	}

	var records []models.ScanRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if records == nil {
		records = []models.ScanRecord{}
	}
	if len(records) > l.cap {
		records = records[:l.cap]
	}
	return records, nil
}

// Append puts rec in front of the history and evicts the oldest records
// beyond the cap. The whole sequence is written back.
func (l *Ledger) Append(ctx context.Context, rec models.ScanRecord) error {
	if rec.UserID != l.userID {
		return fmt.Errorf("%w: record belongs to %q, ledger to %q", common.ErrValidation, rec.UserID, l.userID)
	}
	if !rec.Status.Valid() {
		return fmt.Errorf("%w: status %q", common.ErrValidation, rec.Status)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.Load(ctx)
	if err != nil {
		return err
	}

	next := make([]models.ScanRecord, 0, min(len(records)+1, l.cap))
	next = append(next, rec)
	next = append(next, records...)
	if len(next) > l.cap {
		next = next[:l.cap]
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	return l.docs.Put(ctx, store.KeyHistory, raw)
}
