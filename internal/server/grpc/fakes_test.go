package grpc

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dmitrijs2005/foodie/internal/common"
	"github.com/dmitrijs2005/foodie/internal/server/auth"
	"github.com/dmitrijs2005/foodie/internal/server/broker"
	"github.com/dmitrijs2005/foodie/internal/server/models"
	"github.com/dmitrijs2005/foodie/internal/server/services"
	"github.com/dmitrijs2005/foodie/internal/syncapi"
)

const testSecret = "secret"

type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]*models.User
	err     error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]*models.User{}}
}

func (f *fakeUsers) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if in.Email == "" {
		return nil, common.ErrValidation
	}
	if _, ok := f.byEmail[in.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	u := &models.User{ID: in.UserID, Email: in.Email, DisplayName: in.DisplayName, Salt: in.Salt, Verifier: in.Verifier}
	f.byEmail[in.Email] = u
	return u, nil
}

func (f *fakeUsers) GetSalt(ctx context.Context, email string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byEmail[email]; ok {
		return u.Salt, nil
	}
	return []byte("random"), nil
}

func (f *fakeUsers) Login(ctx context.Context, email string, verifier []byte) (*services.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byEmail[email]
	if !ok || string(u.Verifier) != string(verifier) {
		return nil, common.ErrorUnauthorized
	}
	access, err := auth.GenerateToken(u.ID, []byte(testSecret), time.Hour)
	if err != nil {
		return nil, err
	}
	return &services.LoginResult{
		UserID:      u.ID,
		DisplayName: u.DisplayName,
		Tokens:      &services.TokenPair{AccessToken: access, RefreshToken: "refresh-" + u.ID},
	}, nil
}

func (f *fakeUsers) RefreshToken(ctx context.Context, token string) (*services.TokenPair, error) {
	if token != "refresh-ok" {
		return nil, common.ErrorUnauthorized
	}
	return &services.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil
}

// fakeDocuments keeps documents in memory and fans out through a real hub.
type fakeDocuments struct {
	mu   sync.Mutex
	docs map[string]models.Document
	hub  *broker.Hub
}

func newFakeDocuments() *fakeDocuments {
	return &fakeDocuments{docs: map[string]models.Document{}, hub: broker.NewHub()}
}

func owns(userID, path string) error {
	owner, _, err := syncapi.ParsePath(path)
	if err != nil {
		return common.ErrValidation
	}
	if owner != userID {
		return common.ErrorForbidden
	}
	return nil
}

func (f *fakeDocuments) Write(ctx context.Context, userID, path string, body json.RawMessage) (*models.Document, error) {
	if err := owns(userID, path); err != nil {
		return nil, err
	}
	f.mu.Lock()
	d := f.docs[path]
	d = models.Document{Path: path, UserID: userID, Body: body, Version: d.Version + 1, UpdatedAt: time.Now()}
	f.docs[path] = d
	f.mu.Unlock()

	_ = f.hub.Publish(ctx, d)
	return &d, nil
}

func (f *fakeDocuments) Subscribe(ctx context.Context, userID, path string, send func(models.Document) error) error {
	if err := owns(userID, path); err != nil {
		return err
	}
	sub := f.hub.Subscribe(path)
	defer sub.Close()

	f.mu.Lock()
	current, ok := f.docs[path]
	f.mu.Unlock()
	if !ok {
		current = models.Document{Path: path, UserID: userID}
	}
	if err := send(current); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-sub.C:
			if !ok {
				return nil
			}
			if err := send(d); err != nil {
				return err
			}
		}
	}
}
