// Package notify fans reward updates out to live observers of one user.
package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/louisbranch/kalori/internal/services/ledger/domain"
)

const defaultBuffer = 8

// ErrHubClosed is returned by Subscribe after Close.
var ErrHubClosed = errors.New("notify hub is closed")

// Hub delivers reward updates to subscriptions keyed by user id. Publish never
// blocks: a full subscription drops its oldest pending update.
type Hub struct {
	buffer int

	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	closed bool
}

// NewHub builds a hub whose subscriptions buffer up to buffer updates.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		buffer: buffer,
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

// Subscription receives updates for exactly one user.
type Subscription struct {
	userID  string
	hub     *Hub
	updates chan domain.RewardUpdate
	dropped atomic.Uint64

	mu     sync.Mutex
	closed bool
}

// Subscribe registers an observer for userID.
func (h *Hub) Subscribe(userID string) (*Subscription, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	sub := &Subscription{
		userID:  userID,
		hub:     h,
		updates: make(chan domain.RewardUpdate, h.buffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	peers, ok := h.subs[userID]
	if !ok {
		peers = make(map[*Subscription]struct{})
		h.subs[userID] = peers
	}
	peers[sub] = struct{}{}
	return sub, nil
}

// Publish implements domain.Publisher.
func (h *Hub) Publish(_ context.Context, update domain.RewardUpdate) {
	userID := update.State.UserID
	h.mu.Lock()
	peers := make([]*Subscription, 0, len(h.subs[userID]))
	for sub := range h.subs[userID] {
		peers = append(peers, sub)
	}
	h.mu.Unlock()

	for _, sub := range peers {
		sub.deliver(update)
	}
}

// SubscriberCount returns the live subscriptions for userID.
func (h *Hub) SubscriberCount(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

// Close ends every subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*Subscription
	for _, peers := range h.subs {
		for sub := range peers {
			all = append(all, sub)
		}
	}
	h.subs = make(map[string]map[*Subscription]struct{})
	h.mu.Unlock()

	for _, sub := range all {
		sub.closeChannel()
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	peers, ok := h.subs[sub.userID]
	if !ok {
		return
	}
	delete(peers, sub)
	if len(peers) == 0 {
		delete(h.subs, sub.userID)
	}
}

// UserID returns the subscribed user.
func (s *Subscription) UserID() string {
	return s.userID
}

// Updates returns the delivery channel. It is closed by Close.
func (s *Subscription) Updates() <-chan domain.RewardUpdate {
	return s.updates
}

// Dropped counts updates discarded because the observer fell behind.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
	s.closeChannel()
}

func (s *Subscription) deliver(update domain.RewardUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || update.State.UserID != s.userID {
		return
	}
	for {
		select {
		case s.updates <- update:
			return
		default:
		}
		select {
		case <-s.updates:
			s.dropped.Add(1)
		default:
		}
	}
}

func (s *Subscription) closeChannel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.updates)
}
