// Package broker fans document snapshots out to everyone watching a path.
//
// Hub delivers inside one process. RedisBroker relays through a Redis
// pub/sub channel so several server replicas share subscribers.
package broker

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/foodie/internal/server/models"
)

// Broker is implemented by Hub and RedisBroker.
type Broker interface {
	Publish(ctx context.Context, doc models.Document) error
	Subscribe(path string) *Subscription
}

// subscriberBuffer bounds how far a subscriber may lag. Each snapshot is
// the full document, so a lagging subscriber loses only stale versions.
const subscriberBuffer = 8

// Subscription receives every snapshot published for one path until
// Close is called. C is closed by Close.
type Subscription struct {
	C <-chan models.Document

	path string
	ch   chan models.Document
	hub  *Hub
	once sync.Once
}

// Path is the document path this subscription watches.
func (s *Subscription) Path() string { return s.path }

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unregister(s)
	})
}
