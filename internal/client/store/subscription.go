package store

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/foodie/internal/logging"
)

type Origin int

const (
	OriginLocal Origin = iota
	OriginRemote
)

func (o Origin) String() string {
	if o == OriginRemote {
		return "remote"
	}
	return "local"
}

// Event reports a document change that the holder of a Subscription did not
// make itself, i.e. an applied remote snapshot.
type Event struct {
	Key    string
	Value  []byte
	Origin Origin
}

// Subscription is the handle of one attachment.
type Subscription struct {
	store *Store
	att   *attachment
}

func (s *Subscription) UserID() string {
	return s.att.userID
}

// Events is closed once the attachment is detached.
func (s *Subscription) Events() <-chan Event {
	return s.att.events
}

// Get reads name from this attachment. It fails with ErrDetached once the
// store has been detached or attached to another user.
func (s *Subscription) Get(ctx context.Context, name string) ([]byte, error) {
	return s.store.get(s.att, name)
}

// Put writes name in this attachment's namespace, with the same
// ErrDetached rule as Get.
func (s *Subscription) Put(ctx context.Context, name string, value []byte) error {
	return s.store.put(ctx, s.att, name, value)
}

// Syncing reports whether the remote layer is active for this attachment.
func (s *Subscription) Syncing() bool {
	return s.att.syncing
}

// Cancel detaches the store if this subscription is still the active one.
// After it returns no callback of this attachment runs. Idempotent.
func (s *Subscription) Cancel() {
	s.store.mu.Lock()
	if s.store.att == s.att {
		s.store.att = nil
		s.store.view = nil
	}
	s.store.mu.Unlock()

	s.att.close()
}

type write struct {
	name  string
	value []byte
}

type attachment struct {
	userID  string
	keys    map[string]struct{}
	syncing bool
	log     logging.Logger

	subCtx    context.Context
	subCancel context.CancelFunc

	mu      sync.Mutex
	pending []write
	closing bool
	wake    chan struct{}

	events    chan Event
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func (a *attachment) enqueue(w write) {
	a.mu.Lock()
	if a.closing {
		a.mu.Unlock()
		a.log.Warn(context.Background(), "store detached, remote write skipped", "key", w.name)
		return
	}
	a.pending = append(a.pending, w)
	a.mu.Unlock()
	a.signal()
}

func (a *attachment) drain() ([]write, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	batch := a.pending
	a.pending = nil
	return batch, a.closing
}

func (a *attachment) signal() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// emit must be called with the store lock held.
func (a *attachment) emit(ev Event) {
	select {
	case a.events <- ev:
	default:
		a.log.Warn(context.Background(), "event dropped, subscriber is not keeping up", "key", ev.Key)
	}
}

func (a *attachment) close() {
	a.closeOnce.Do(func() {
		a.subCancel()

		a.mu.Lock()
		a.closing = true
		a.mu.Unlock()
		a.signal()

		a.wg.Wait()
		close(a.events)
	})
}
