// Package profile loads and saves the allergen profile of the attached user.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/foodie/internal/client/models"
	"github.com/dmitrijs2005/foodie/internal/client/store"
)

type Documents interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, value []byte) error
}

type Service struct {
	docs   Documents
	userID string
	now    func() time.Time
}

func NewService(docs Documents, userID string) *Service {
	return &Service{docs: docs, userID: userID, now: time.Now}
}

// Load returns the stored profile, or an empty one when none is stored.
// Load never writes; see Init.
func (s *Service) Load(ctx context.Context) (models.AllergenProfile, error) {
	empty := models.AllergenProfile{UserID: s.userID, Allergens: []models.Token{}}

	raw, err := s.docs.Get(ctx, store.KeyAllergies)
	if err != nil {
		return empty, err
	}
	if len(raw) == 0 {
		return empty, nil
	}

	var p models.AllergenProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return empty, fmt.Errorf("decode profile: %w", err)
	}
	p.UserID = s.userID
	p.Allergens = models.SortedTokens(p.Allergens)
	return p, nil
}

// Init stores an empty profile when none exists yet. Call it only for
// attachments that do not sync: a synced user's profile arrives from the
// server and must not be overwritten by the empty default.
func (s *Service) Init(ctx context.Context) error {
	raw, err := s.docs.Get(ctx, store.KeyAllergies)
	if err != nil {
		return err
	}
	if len(raw) > 0 {
		return nil
	}
	_, err = s.Save(ctx, nil)
	return err
}

// Save replaces the profile with tokens. The caller normalizes them.
func (s *Service) Save(ctx context.Context, tokens []models.Token) (models.AllergenProfile, error) {
	p := models.AllergenProfile{
		UserID:    s.userID,
		Allergens: models.SortedTokens(tokens),
		UpdatedAt: s.now().UTC(),
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return models.AllergenProfile{}, fmt.Errorf("encode profile: %w", err)
	}
	if err := s.docs.Put(ctx, store.KeyAllergies, raw); err != nil {
		return models.AllergenProfile{}, err
	}
	return p, nil
}
