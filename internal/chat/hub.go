// Package chat keeps the registry of live chat connections and serves the
// WebSocket transport on top of it.
package chat

import (
	"sync"

	"go.uber.org/zap"

	"example.com/fitplan/internal/observability"
)

// Peer is one registered connection.
type Peer interface {
	ID() string
	UserID() string
	// Enqueue queues a frame without blocking and reports whether it was accepted.
	Enqueue(payload []byte) bool
	Close()
}

// Hub is the connection registry. Concurrent Add, Remove and fan-out are safe;
// fan-out works on a snapshot so no lock is held while frames are queued.
type Hub struct {
	mu     sync.RWMutex
	peers  map[string]Peer
	logger *zap.Logger
}

// NewHub constructs an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{peers: make(map[string]Peer), logger: logger}
}

// Add registers a peer, replacing any peer with the same id.
func (h *Hub) Add(p Peer) {
	h.mu.Lock()
	h.peers[p.ID()] = p
	n := len(h.peers)
	h.mu.Unlock()

	observability.SetChatConnections(n)
	h.logger.Debug("chat peer registered", zap.String("connection_id", p.ID()), zap.String("user_id", p.UserID()))
}

// TryAdd registers p only while its user holds fewer than limit peers. The
// count and the insert happen under one lock.
func (h *Hub) TryAdd(p Peer, limit int) bool {
	h.mu.Lock()
	held := 0
	for _, existing := range h.peers {
		if existing.UserID() == p.UserID() {
			held++
		}
	}
	if held >= limit {
		h.mu.Unlock()
		return false
	}
	h.peers[p.ID()] = p
	n := len(h.peers)
	h.mu.Unlock()

	observability.SetChatConnections(n)
	h.logger.Debug("chat peer registered", zap.String("connection_id", p.ID()), zap.String("user_id", p.UserID()))
	return true
}

// Remove unregisters p. Removing an unknown or already replaced peer is a no-op.
func (h *Hub) Remove(p Peer) bool {
	h.mu.Lock()
	current, ok := h.peers[p.ID()]
	if ok && current == p {
		delete(h.peers, p.ID())
	}
	n := len(h.peers)
	h.mu.Unlock()

	if !ok || current != p {
		return false
	}
	observability.SetChatConnections(n)
	h.logger.Debug("chat peer removed", zap.String("connection_id", p.ID()), zap.String("user_id", p.UserID()))
	return true
}

// Count returns the number of registered peers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// CountForUser returns the number of peers registered for userID.
func (h *Hub) CountForUser(userID string) int {
	return len(h.snapshot(func(p Peer) bool { return p.UserID() == userID }))
}

// SendToUser queues payload on every connection of userID and returns how
// many accepted it.
func (h *Hub) SendToUser(userID string, payload []byte) int {
	return h.deliver(h.snapshot(func(p Peer) bool { return p.UserID() == userID }), payload)
}

// Broadcast queues payload on every connection.
func (h *Hub) Broadcast(payload []byte) int {
	return h.deliver(h.snapshot(nil), payload)
}

// Close closes and unregisters every peer.
func (h *Hub) Close() {
	h.mu.Lock()
	peers := make([]Peer, 0, len(h.peers))
	for id, p := range h.peers {
		peers = append(peers, p)
		delete(h.peers, id)
	}
	h.mu.Unlock()

	for _, p := range peers {
		p.Close()
	}
	observability.SetChatConnections(0)
}

func (h *Hub) snapshot(keep func(Peer) bool) []Peer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Peer, 0, len(h.peers))
	for _, p := range h.peers {
		if keep == nil || keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (h *Hub) deliver(peers []Peer, payload []byte) int {
	sent := 0
	for _, p := range peers {
		if p.Enqueue(payload) {
			sent++
			continue
		}
		h.logger.Warn("chat frame dropped", zap.String("connection_id", p.ID()), zap.String("user_id", p.UserID()))
	}
	return sent
}
