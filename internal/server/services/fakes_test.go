package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/foodie/internal/common"
	"github.com/dmitrijs2005/foodie/internal/dbx"
	"github.com/dmitrijs2005/foodie/internal/server/models"
	documentsrepo "github.com/dmitrijs2005/foodie/internal/server/repositories/documents"
	refreshtokensrepo "github.com/dmitrijs2005/foodie/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/foodie/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

type fakeUsersRepo struct {
	created *models.User
	err     error
	byEmail map[string]*models.User
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = u
	return u, nil
}

func (f *fakeUsersRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

type fakeRefreshRepo struct {
	tokens    map[string]*models.RefreshToken
	createErr error
	deleteErr error
	findErr   error
	purged    time.Time
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID, token string, expires time.Time) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: expires}
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if rt, ok := f.tokens[token]; ok {
		return rt, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.tokens[token]; !ok {
		return common.ErrorNotFound
	}
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(ctx context.Context, t time.Time) (int64, error) {
	f.purged = t
	var n int64
	for k, rt := range f.tokens {
		if rt.Expires.Before(t) {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

type fakeDocumentsRepo struct {
	mu   sync.Mutex
	docs map[string]models.Document
	err  error
}

func newFakeDocumentsRepo() *fakeDocumentsRepo {
	return &fakeDocumentsRepo{docs: map[string]models.Document{}}
}

func (f *fakeDocumentsRepo) Upsert(ctx context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	prev, ok := f.docs[doc.Path]
	if ok && prev.UserID != doc.UserID {
		return common.ErrorForbidden
	}
	doc.Version = prev.Version + 1
	doc.UpdatedAt = time.Now()
	f.docs[doc.Path] = *doc
	return nil
}

func (f *fakeDocumentsRepo) Get(ctx context.Context, path string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.docs[path]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &d, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	d *fakeDocumentsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) Documents(db dbx.DBTX) documentsrepo.Repository         { return m.d }
