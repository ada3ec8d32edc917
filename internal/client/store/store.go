// Package store implements the user-scoped document store of the client.
//
// A Store composes two layers. The cache layer is the local SQLite document
// table and is always available. The sync layer is an optional Remote that
// pushes full document snapshots. Reconciliation follows one rule: a remote
// snapshot wins on arrival, overwriting the view and being mirrored into the
// cache. Local writes are applied to the cache at once and forwarded to the
// remote by a single ordered writer; a failed remote write is only logged.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/foodie/internal/common"
	"github.com/dmitrijs2005/foodie/internal/logging"
	"github.com/dmitrijs2005/foodie/internal/syncapi"
)

// Document names inside a user namespace.
const (
	KeyAllergies = "allergies"
	KeyHistory   = "history"
)

// KeyIdentities is the global identity directory. It lives outside any user
// namespace and is read directly from the cache.
const KeyIdentities = "identities"

var (
	ErrDetached   = errors.New("store is not attached")
	ErrUnknownKey = errors.New("key is not tracked by this attachment")
)

// Cache is the local durable layer.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Remote is the push-synchronized layer.
type Remote interface {
	// Subscribe delivers full document snapshots for path until ctx ends.
	Subscribe(ctx context.Context, path string) (<-chan []byte, error)
	Write(ctx context.Context, path string, document []byte) error
}

// CacheKey is the cache key of document name in userID's namespace,
// e.g. "history:<userID>".
func CacheKey(name, userID string) string {
	return name + ":" + userID
}

const (
	defaultWriteTimeout = 5 * time.Second
	defaultEventBuffer  = 16
)

type Config struct {
	// WriteTimeout bounds each remote write attempt.
	WriteTimeout time.Duration
	// EventBuffer is the capacity of Subscription.Events.
	EventBuffer int
}

type Store struct {
	cache  Cache
	remote Remote
	log    logging.Logger
	cfg    Config

	// mu guards att and view. Remote snapshots are applied while holding
	// it, so once Detach has swapped att out no stale snapshot can land.
	mu   sync.Mutex
	att  *attachment
	view map[string][]byte
}

// New returns a detached Store. remote may be nil for local-only operation.
func New(cache Cache, remote Remote, log logging.Logger, cfg Config) *Store {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}
	return &Store{cache: cache, remote: remote, log: log, cfg: cfg}
}

// AttachOptions selects what an attachment tracks.
type AttachOptions struct {
	// Keys are the document names loaded from the cache and, when syncing,
	// subscribed remotely. Duplicates are ignored.
	Keys []string
	// Sync enables the remote layer for this attachment.
	Sync bool
}

// Attach makes userID the active namespace. Any previous attachment is fully
// detached first. The cache snapshot of every key is loaded before Attach
// returns; remote snapshots arrive later and are reported on Events.
func (s *Store) Attach(ctx context.Context, userID string, opts AttachOptions) (*Subscription, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id", common.ErrValidation)
	}

	s.Detach()

	keys := make(map[string]struct{}, len(opts.Keys))
	view := make(map[string][]byte, len(opts.Keys))
	for _, name := range opts.Keys {
		if _, dup := keys[name]; dup {
			continue
		}
		keys[name] = struct{}{}

		value, err := s.cache.Get(ctx, CacheKey(name, userID))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		if value != nil {
			view[name] = value
		}
	}

	subCtx, subCancel := context.WithCancel(context.Background())
	att := &attachment{
		userID:    userID,
		keys:      keys,
		subCtx:    subCtx,
		subCancel: subCancel,
		wake:      make(chan struct{}, 1),
		events:    make(chan Event, s.cfg.EventBuffer),
		log:       s.log.With("user_id", userID),
	}

	s.mu.Lock()
	s.att = att
	s.view = view
	s.mu.Unlock()

	switch {
	case !opts.Sync:
		att.log.Debug(ctx, "store attached local-only")
	case s.remote == nil:
		att.log.Warn(ctx, "no remote backend configured, store runs local-only")
	default:
		att.syncing = true
		att.wg.Add(1)
		go s.runWriter(att)
		for name := range keys {
			s.subscribe(ctx, att, name)
		}
	}

	return &Subscription{store: s, att: att}, nil
}

func (s *Store) subscribe(ctx context.Context, att *attachment, name string) {
	path := syncapi.UserPath(att.userID, name)

	ch, err := s.remote.Subscribe(att.subCtx, path)
	if err != nil {
		att.log.Warn(ctx, "remote subscription failed, continuing local-only",
			"path", path, "error", fmt.Errorf("%w: %v", common.ErrRemoteSync, err))
		return
	}

	att.wg.Add(1)
	go func() {
		defer att.wg.Done()
		for doc := range ch {
			s.applyRemote(att, name, doc)
		}
		if att.subCtx.Err() == nil {
			att.log.Warn(context.Background(), "remote subscription ended", "path", path)
		}
	}()
}

// applyRemote overwrites the view with an authoritative snapshot and mirrors
// it into the cache.
func (s *Store) applyRemote(att *attachment, name string, doc []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.att != att || att.subCtx.Err() != nil {
		return
	}

	s.view[name] = doc

	ctx := context.Background()
	if err := s.cache.Set(ctx, CacheKey(name, att.userID), doc); err != nil {
		att.log.Warn(ctx, "failed to mirror remote snapshot into cache", "key", name, "error", err)
	}

	att.emit(Event{Key: name, Value: doc, Origin: OriginRemote})
}

// Get returns the current view of the named document of the active
// attachment, or nil when absent.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	att := s.att
	s.mu.Unlock()
	return s.get(att, name)
}

// get reads name from the view if att is still the active attachment.
func (s *Store) get(att *attachment, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if att == nil || s.att != att {
		return nil, ErrDetached
	}
	if _, ok := att.keys[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, name)
	}

	value := s.view[name]
	if value == nil {
		return nil, nil
	}
	return append([]byte(nil), value...), nil
}

// Put stores value under name for the active attachment. The cache and the
// view are updated before Put returns; the remote write, if any, happens
// later on the writer goroutine.
func (s *Store) Put(ctx context.Context, name string, value []byte) error {
	s.mu.Lock()
	att := s.att
	s.mu.Unlock()
	return s.put(ctx, att, name, value)
}

// put writes only while att is the active attachment. The remote write is
// queued under the store lock so the writer sees same-key writes in the
// order they reached the cache.
func (s *Store) put(ctx context.Context, att *attachment, name string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if att == nil || s.att != att {
		return ErrDetached
	}
	if _, ok := att.keys[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, name)
	}

	value = append([]byte(nil), value...)
	if err := s.cache.Set(ctx, CacheKey(name, att.userID), value); err != nil {
		return err
	}
	s.view[name] = value

	if att.syncing {
		att.enqueue(write{name: name, value: value})
	}
	return nil
}

// UserID returns the attached user id, or "" when detached.
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.att == nil {
		return ""
	}
	return s.att.userID
}

// Detach ends the current attachment. Remote subscriptions are cancelled,
// queued remote writes get their single attempt, and every goroutine of the
// attachment has exited when Detach returns. Calling it again is a no-op.
func (s *Store) Detach() {
	s.mu.Lock()
	att := s.att
	s.att = nil
	s.view = nil
	s.mu.Unlock()

	if att == nil {
		return
	}
	att.close()
}

func (s *Store) runWriter(att *attachment) {
	defer att.wg.Done()

	for {
		batch, closing := att.drain()
		for _, w := range batch {
			s.writeRemote(att, w)
		}
		if closing {
			if len(batch) == 0 {
				return
			}
			continue
		}
		<-att.wake
	}
}

func (s *Store) writeRemote(att *attachment, w write) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()

	path := syncapi.UserPath(att.userID, w.name)
	if err := s.remote.Write(ctx, path, w.value); err != nil {
		att.log.Warn(ctx, "remote write failed, local value stays authoritative",
			"path", path, "error", fmt.Errorf("%w: %v", common.ErrRemoteSync, err))
		return
	}
	att.log.Debug(ctx, "remote write acknowledged", "path", path)
}
