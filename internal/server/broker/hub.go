package broker

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/foodie/internal/server/models"
)

// Hub is the in-process broker.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Subscription]struct{})}
}

func (h *Hub) Subscribe(path string) *Subscription {
	ch := make(chan models.Document, subscriberBuffer)
	sub := &Subscription{C: ch, path: path, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[path]; !ok {
		h.clients[path] = make(map[*Subscription]struct{})
	}
	h.clients[path][sub] = struct{}{}
	return sub
}

func (h *Hub) unregister(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[sub.path]; ok {
		delete(clients, sub)
		if len(clients) == 0 {
			delete(h.clients, sub.path)
		}
	}
	close(sub.ch)
}

// Publish never blocks. A full subscriber drops its oldest snapshot.
func (h *Hub) Publish(_ context.Context, doc models.Document) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.clients[doc.Path] {
		select {
		case sub.ch <- doc:
			continue
		default:
		}
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- doc:
		default:
		}
	}
	return nil
}

// Subscribers reports how many subscriptions are open across all paths.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	return n
}
