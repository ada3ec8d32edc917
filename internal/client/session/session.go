// Package session owns everything that belongs to a signed-in user: the
// store attachment, the profile and history services and the scan
// pipeline. A Session is created by sign-in and torn down as a whole by
// sign-out; nothing of it outlives the user.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/foodie/internal/client/classifier"
	"github.com/dmitrijs2005/foodie/internal/client/ledger"
	"github.com/dmitrijs2005/foodie/internal/client/models"
	"github.com/dmitrijs2005/foodie/internal/client/profile"
	"github.com/dmitrijs2005/foodie/internal/client/scan"
	"github.com/dmitrijs2005/foodie/internal/client/store"
	"github.com/dmitrijs2005/foodie/internal/common"
	"github.com/dmitrijs2005/foodie/internal/logging"
)

var ErrNoSession = errors.New("not signed in")

type Identity interface {
	SignUp(ctx context.Context, email, password, displayName string) (*models.User, error)
	SignIn(ctx context.Context, email, password string) (*models.User, error)
	AnonymousSession(ctx context.Context) *models.User
}

// Remote is the part of the backend client the controller drives.
type Remote interface {
	Authenticated() bool
	Logout()
	Credentials() (access, refresh string)
	RestoreCredentials(access, refresh string)
}

type Config struct {
	HistoryCap int
	Scan       scan.Config
	// OnRemoteChange, if set, is called for every document that arrived
	// from the remote store.
	OnRemoteChange func(store.Event)
}

type Deps struct {
	Identity   Identity
	Store      *store.Store
	Remote     Remote
	Compressor scan.Compressor
	Detector   classifier.Detector
	Classifier classifier.Classifier
	Log        logging.Logger
}

type Session struct {
	User     *models.User
	Sub      *store.Subscription
	Profile  *profile.Service
	Ledger   *ledger.Ledger
	Pipeline *scan.Pipeline

	events sync.WaitGroup
}

// Controller is the single place sessions are started and ended.
type Controller struct {
	deps Deps
	cfg  Config

	mu  sync.Mutex
	cur *Session
}

func NewController(deps Deps, cfg Config) *Controller {
	if cfg.HistoryCap <= 0 {
		cfg.HistoryCap = ledger.DefaultCap
	}
	return &Controller{deps: deps, cfg: cfg}
}

func (c *Controller) SignUp(ctx context.Context, email, password, displayName string) (*Session, error) {
	return c.switchTo(ctx, func(ctx context.Context) (*models.User, error) {
		return c.deps.Identity.SignUp(ctx, email, password, displayName)
	})
}

func (c *Controller) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return c.switchTo(ctx, func(ctx context.Context) (*models.User, error) {
		return c.deps.Identity.SignIn(ctx, email, password)
	})
}

// Guest starts an anonymous session. Its documents stay in the local cache
// and are never synced.
func (c *Controller) Guest(ctx context.Context) (*Session, error) {
	return c.switchTo(ctx, func(ctx context.Context) (*models.User, error) {
		return c.deps.Identity.AnonymousSession(ctx), nil
	})
}

// previous is what switchTo tore down, kept to resume it when the new
// identity cannot be established.
type previous struct {
	user    *models.User
	access  string
	refresh string
}

// switchTo ends the current session before authenticate runs, so the new
// user's tokens are never wiped by the old session's logout and the old
// session's queued writes still go out under its own tokens. On failure
// the previous user is attached again.
func (c *Controller) switchTo(ctx context.Context, authenticate func(context.Context) (*models.User, error)) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.endLocked(ctx)

	u, err := authenticate(ctx)
	if err != nil {
		c.resumeLocked(ctx, prev)
		return nil, err
	}
	return c.startLocked(ctx, u)
}

func (c *Controller) resumeLocked(ctx context.Context, prev *previous) {
	if prev == nil {
		return
	}
	if c.deps.Remote != nil && prev.access != "" {
		c.deps.Remote.RestoreCredentials(prev.access, prev.refresh)
	}
	if _, err := c.startLocked(ctx, prev.user); err != nil {
		c.deps.Log.Warn(ctx, "failed to resume previous session", "user_id", prev.user.ID, "error", err)
	}
}

func (c *Controller) startLocked(ctx context.Context, u *models.User) (*Session, error) {
	syncing := u.Syncs() && c.deps.Remote != nil && c.deps.Remote.Authenticated()
	sub, err := c.deps.Store.Attach(ctx, u.ID, store.AttachOptions{
		Keys: []string{store.KeyAllergies, store.KeyHistory},
		Sync: syncing,
	})
	if err != nil {
		return nil, fmt.Errorf("attach store: %w", err)
	}

	s := &Session{
		User:    u,
		Sub:     sub,
		Profile: profile.NewService(sub, u.ID),
		Ledger:  ledger.New(sub, u.ID, c.cfg.HistoryCap),
	}
	if !sub.Syncing() {
		if err := s.Profile.Init(ctx); err != nil {
			c.deps.Log.Warn(ctx, "failed to create empty profile", "user_id", u.ID, "error", err)
		}
	}
	s.Pipeline = scan.New(u.ID, scan.Deps{
		Compressor: c.deps.Compressor,
		Detector:   c.deps.Detector,
		Classifier: c.deps.Classifier,
		Profile:    s.Profile,
		Ledger:     s.Ledger,
		Log:        c.deps.Log.With("user_id", u.ID),
	}, c.cfg.Scan)

	s.events.Add(1)
	go c.forwardEvents(s)

	c.cur = s
	c.deps.Log.Info(ctx, "session started",
		"user_id", u.ID, "auth_mode", string(u.AuthMode), "syncing", sub.Syncing())
	return s, nil
}

// forwardEvents runs until the attachment is detached.
func (c *Controller) forwardEvents(s *Session) {
	defer s.events.Done()
	for ev := range s.Sub.Events() {
		c.deps.Log.Debug(context.Background(), "remote document applied", "key", ev.Key, "user_id", s.User.ID)
		if c.cfg.OnRemoteChange != nil {
			c.cfg.OnRemoteChange(ev)
		}
	}
}

// SignOut ends the current session. In-flight scans are cancelled before
// the store is detached, so nothing lands in the ledger afterwards.
func (c *Controller) SignOut(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur == nil {
		return ErrNoSession
	}
	c.endLocked(ctx)
	return nil
}

// endLocked tears down the current session and returns what is needed to
// resume it, or nil when there was none. The store is detached before the
// logout so queued writes are flushed with the user's own tokens.
func (c *Controller) endLocked(ctx context.Context) *previous {
	s := c.cur
	if s == nil {
		return nil
	}
	c.cur = nil

	s.Pipeline.Close()
	s.Sub.Cancel()
	s.events.Wait()

	prev := &previous{user: s.User}
	if s.User.Syncs() && c.deps.Remote != nil {
		prev.access, prev.refresh = c.deps.Remote.Credentials()
		c.deps.Remote.Logout()
	}

	c.deps.Log.Info(ctx, "session ended", "user_id", s.User.ID)
	return prev
}

// Current returns the active session or nil.
func (c *Controller) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

// SetAllergies replaces the profile. Names are normalized; unknown names
// are rejected and nothing is saved.
func (s *Session) SetAllergies(ctx context.Context, names []string) (models.AllergenProfile, error) {
	tokens := make([]models.Token, 0, len(names))
	var unknown []string
	for _, name := range names {
		t := classifier.Normalize(name)
		if !classifier.IsKnown(t) {
			unknown = append(unknown, name)
			continue
		}
		tokens = append(tokens, t)
	}
	if len(unknown) > 0 {
		return models.AllergenProfile{}, fmt.Errorf("%w: unknown allergen(s) %s",
			common.ErrValidation, strings.Join(unknown, ", "))
	}

	return s.Profile.Save(ctx, tokens)
}

// Scan submits image and waits for the result, leaving the pipeline ready
// for the next scan.
func (s *Session) Scan(ctx context.Context, image []byte, opts ...scan.SubmitOption) (*scan.Outcome, error) {
	if err := s.Pipeline.Submit(ctx, image, opts...); err != nil {
		return nil, err
	}
	out, err := s.Pipeline.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Pipeline.Restart(); err != nil {
		return nil, err
	}
	return out, nil
}
