package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/foodie/internal/common"
	"github.com/dmitrijs2005/foodie/internal/logging"
	"github.com/dmitrijs2005/foodie/internal/server/broker"
	"github.com/dmitrijs2005/foodie/internal/server/models"
	"github.com/dmitrijs2005/foodie/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/foodie/internal/syncapi"
)

// DocumentService stores user documents and streams their snapshots.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	broker      broker.Broker
	log         logging.Logger
}

func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager, b broker.Broker, log logging.Logger) *DocumentService {
	return &DocumentService{
		db:          db,
		repomanager: m,
		broker:      b,
		log:         log.With("module", "documents"),
	}
}

// authorize checks that path lies in userID's namespace.
func authorize(userID, path string) error {
	owner, _, err := syncapi.ParsePath(path)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	if owner != userID {
		return common.ErrorForbidden
	}
	return nil
}

// Write stores body at path (last writer wins) and publishes the new
// snapshot. A publish failure is logged; the write itself stands.
func (s *DocumentService) Write(ctx context.Context, userID, path string, body json.RawMessage) (*models.Document, error) {
	if err := authorize(userID, path); err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: document is not valid JSON", common.ErrValidation)
	}

	doc := &models.Document{Path: path, UserID: userID, Body: body}
	if err := s.repomanager.Documents(s.db).Upsert(ctx, doc); err != nil {
		if errors.Is(err, common.ErrorForbidden) {
			return nil, err
		}
		return nil, fmt.Errorf("error storing document: %w", err)
	}

	if err := s.broker.Publish(ctx, *doc); err != nil {
		s.log.Warn(ctx, "snapshot publish failed", "path", path, "version", doc.Version, "error", err)
	}
	return doc, nil
}

// Get returns the current snapshot at path.
func (s *DocumentService) Get(ctx context.Context, userID, path string) (*models.Document, error) {
	if err := authorize(userID, path); err != nil {
		return nil, err
	}
	return s.repomanager.Documents(s.db).Get(ctx, path)
}

// Subscribe calls send with the current snapshot and then with every newer
// one, until ctx is done or send fails. A path never written starts with a
// version 0 placeholder without body. Versions passed to send strictly
// increase.
func (s *DocumentService) Subscribe(ctx context.Context, userID, path string, send func(models.Document) error) error {
	if err := authorize(userID, path); err != nil {
		return err
	}

	// Subscribe before reading so no write between the two is lost.
	sub := s.broker.Subscribe(path)
	defer sub.Close()

	var last int64
	current, err := s.repomanager.Documents(s.db).Get(ctx, path)
	switch {
	case err == nil:
		if err := send(*current); err != nil {
			return err
		}
		last = current.Version
	case errors.Is(err, common.ErrorNotFound):
		if err := send(models.Document{Path: path, UserID: userID}); err != nil {
			return err
		}
	default:
		return fmt.Errorf("error reading document: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case doc, ok := <-sub.C:
			if !ok {
				return nil
			}
			if doc.Version <= last {
				continue
			}
			if err := send(doc); err != nil {
				return err
			}
			last = doc.Version
		}
	}
}
