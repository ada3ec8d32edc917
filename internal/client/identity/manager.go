// Package identity maintains the local identity directory: sign-up, sign-in
// and anonymous sessions. The directory is a single JSON document stored in
// the local cache under the global "identities" key.
//
// When a remote backend is configured, accounts are also registered there
// so that their documents can sync. The backend is optional: every operation
// still succeeds offline against the local directory.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/foodie/internal/client/client"
	"github.com/dmitrijs2005/foodie/internal/client/models"
	"github.com/dmitrijs2005/foodie/internal/client/store"
	"github.com/dmitrijs2005/foodie/internal/common"
	"github.com/dmitrijs2005/foodie/internal/cryptox"
	"github.com/dmitrijs2005/foodie/internal/logging"
	"github.com/google/uuid"
)

// GuestName is the display name of anonymous sessions.
const GuestName = "Guest"

// Directory is where the identity document lives.
type Directory interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Authenticator is the remote identity backend.
type Authenticator interface {
	Register(ctx context.Context, userID, email, displayName string, salt, verifier []byte) error
	GetSalt(ctx context.Context, email string) ([]byte, error)
	Login(ctx context.Context, email string, verifier []byte) (*client.LoginResult, error)
}

type Manager struct {
	dir  Directory
	auth Authenticator
	log  logging.Logger

	now   func() time.Time
	newID func() string

	// serializes read-modify-write of the directory document
	mu sync.Mutex
}

// NewManager returns a Manager over dir. auth may be nil for a purely
// local directory.
func NewManager(dir Directory, auth Authenticator, log logging.Logger) *Manager {
	return &Manager{
		dir:   dir,
		auth:  auth,
		log:   log,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

type directory struct {
	Users []models.User `json:"users"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (m *Manager) load(ctx context.Context) (*directory, error) {
	raw, err := m.dir.Get(ctx, store.KeyIdentities)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity directory: %w", err)
	}
	d := &directory{}
	if raw == nil {
		return d, nil
	}
	if err := json.Unmarshal(raw, d); err != nil {
		return nil, fmt.Errorf("failed to decode identity directory: %w", err)
	}
	return d, nil
}

func (m *Manager) save(ctx context.Context, d *directory) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode identity directory: %w", err)
	}
	if err := m.dir.Set(ctx, store.KeyIdentities, raw); err != nil {
		return fmt.Errorf("failed to write identity directory: %w", err)
	}
	return nil
}

func (d *directory) find(email string) int {
	for i := range d.Users {
		if d.Users[i].Email == email {
			return i
		}
	}
	return -1
}

// SignUp creates a user. The directory is left untouched when the email is
// already taken, locally or on the backend.
func (m *Manager) SignUp(ctx context.Context, email, password, displayName string) (*models.User, error) {
	email = normalizeEmail(email)
	displayName = strings.TrimSpace(displayName)

	switch {
	case email == "":
		return nil, fmt.Errorf("%w: email is required", common.ErrValidation)
	case password == "":
		return nil, fmt.Errorf("%w: password is required", common.ErrValidation)
	case displayName == "":
		return nil, fmt.Errorf("%w: display name is required", common.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	if d.find(email) >= 0 {
		return nil, common.ErrDuplicateIdentity
	}

	salt := cryptox.NewSalt()
	u := models.User{
		ID:          m.newID(),
		Email:       email,
		DisplayName: displayName,
		AuthMode:    models.AuthModeLocal,
		Salt:        salt,
		Verifier:    cryptox.Verifier([]byte(password), salt),
		CreatedAt:   m.now().UTC(),
	}

	federated, err := m.registerRemote(ctx, &u)
	if err != nil {
		return nil, err
	}
	if federated {
		u.AuthMode = models.AuthModeFederated
	}

	d.Users = append(d.Users, u)
	if err := m.save(ctx, d); err != nil {
		return nil, err
	}

	m.log.Info(ctx, "user signed up", "user_id", u.ID, "auth_mode", string(u.AuthMode))
	return &u, nil
}

// registerRemote registers u with the backend and logs in to obtain sync
// tokens. An unreachable backend is not an error: the account stays local.
func (m *Manager) registerRemote(ctx context.Context, u *models.User) (bool, error) {
	if m.auth == nil {
		return false, nil
	}

	err := m.auth.Register(ctx, u.ID, u.Email, u.DisplayName, u.Salt, u.Verifier)
	switch {
	case errors.Is(err, client.ErrAlreadyExists):
		return false, common.ErrDuplicateIdentity
	case err != nil:
		m.log.Warn(ctx, "remote registration failed, account stays local", "error", err)
		return false, nil
	}

	if _, err := m.auth.Login(ctx, u.Email, u.Verifier); err != nil {
		m.log.Warn(ctx, "remote login after registration failed", "error", err)
	}
	return true, nil
}

// SignIn authenticates against the local directory first. Emails unknown
// locally are tried against the backend, and a successful remote login is
// cached so the next sign-in works offline.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, common.ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.load(ctx)
	if err != nil {
		return nil, err
	}

	i := d.find(email)
	if i < 0 {
		return m.signInRemote(ctx, d, email, password)
	}

	u := d.Users[i]
	if !cryptox.CheckVerifier(u.Verifier, cryptox.Verifier([]byte(password), u.Salt)) {
		return nil, common.ErrInvalidCredentials
	}

	switch {
	case m.auth == nil:
	case u.AuthMode == models.AuthModeFederated:
		if _, err := m.auth.Login(ctx, u.Email, u.Verifier); err != nil {
			m.log.Warn(ctx, "remote login failed, continuing offline", "user_id", u.ID, "error", err)
		}
	case u.AuthMode == models.AuthModeLocal:
		if m.promote(ctx, &u) {
			d.Users[i] = u
			if err := m.save(ctx, d); err != nil {
				return nil, err
			}
		}
	}

	m.log.Info(ctx, "user signed in", "user_id", u.ID, "auth_mode", string(u.AuthMode))
	return &u, nil
}

// promote registers an account that was created while offline.
func (m *Manager) promote(ctx context.Context, u *models.User) bool {
	ok, err := m.registerRemote(ctx, u)
	if err != nil {
		m.log.Warn(ctx, "email is registered remotely by another account, staying local", "user_id", u.ID)
		return false
	}
	if ok {
		u.AuthMode = models.AuthModeFederated
	}
	return ok
}

func (m *Manager) signInRemote(ctx context.Context, d *directory, email, password string) (*models.User, error) {
	if m.auth == nil {
		return nil, common.ErrInvalidCredentials
	}

	salt, err := m.auth.GetSalt(ctx, email)
	if err != nil {
		m.log.Debug(ctx, "remote salt lookup failed", "error", err)
		return nil, common.ErrInvalidCredentials
	}

	verifier := cryptox.Verifier([]byte(password), salt)
	res, err := m.auth.Login(ctx, email, verifier)
	if err != nil {
		if !errors.Is(err, client.ErrUnauthorized) {
			m.log.Warn(ctx, "remote login failed", "error", err)
		}
		return nil, common.ErrInvalidCredentials
	}

	u := models.User{
		ID:          res.UserID,
		Email:       email,
		DisplayName: res.DisplayName,
		AuthMode:    models.AuthModeFederated,
		Salt:        salt,
		Verifier:    verifier,
		CreatedAt:   m.now().UTC(),
	}
	d.Users = append(d.Users, u)
	if err := m.save(ctx, d); err != nil {
		return nil, err
	}

	m.log.Info(ctx, "remote identity cached", "user_id", u.ID)
	return &u, nil
}

// AnonymousSession returns an ephemeral user. It is never written to the
// directory and never syncs.
func (m *Manager) AnonymousSession(ctx context.Context) *models.User {
	u := &models.User{
		ID:          m.newID(),
		DisplayName: GuestName,
		AuthMode:    models.AuthModeAnonymous,
		CreatedAt:   m.now().UTC(),
	}
	m.log.Info(ctx, "anonymous session started", "user_id", u.ID)
	return u
}

// Users lists the directory.
func (m *Manager) Users(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	return d.Users, nil
}
