// Package documents stores the server copy of user-scoped documents.
package documents

import (
	"context"

	"github.com/dmitrijs2005/foodie/internal/server/models"
)

type Repository interface {
	// Upsert replaces the body at doc.Path and bumps its version. The
	// stored version and timestamp are written back into doc.
	Upsert(ctx context.Context, doc *models.Document) error
	// Get returns common.ErrorNotFound for a path never written.
	Get(ctx context.Context, path string) (*models.Document, error)
}
