package ws

import (
	"encoding/json"
	"sync"
)

// Session is one websocket connection of a partner. A partner may hold
// several (one per device).
type Session struct {
	PartnerID uint
	Send      chan []byte
	hub       *Hub
	mu        sync.Mutex
	closed    bool
}

func NewSession(partnerID uint, buffer int) *Session {
	return &Session{PartnerID: partnerID, Send: make(chan []byte, buffer)}
}

// deliver drops the message when the session is closed or its buffer is full.
func (s *Session) deliver(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.Send <- data:
		return true
	default:
		return false
	}
}

func (s *Session) Close() {
	if s.hub != nil {
		s.hub.unregister(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.Send)
}

// Hub tracks partner sessions and fans events out to them.
type Hub struct {
	mu        sync.RWMutex
	byPartner map[uint]map[*Session]struct{}
}

func NewHub() *Hub {
	return &Hub{byPartner: make(map[uint]map[*Session]struct{})}
}

func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s.hub = h
	if h.byPartner[s.PartnerID] == nil {
		h.byPartner[s.PartnerID] = make(map[*Session]struct{})
	}
	h.byPartner[s.PartnerID][s] = struct{}{}
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.byPartner[s.PartnerID]; m != nil {
		delete(m, s)
		if len(m) == 0 {
			delete(h.byPartner, s.PartnerID)
		}
	}
}

// BroadcastToUser sends payload as JSON to every session of the partner.
func (h *Hub) BroadcastToUser(partnerID uint, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	m := h.byPartner[partnerID]
	sessions := make([]*Session, 0, len(m))
	for s := range m {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()
	for _, s := range sessions {
		s.deliver(data)
	}
}

func (h *Hub) SessionCount(partnerID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byPartner[partnerID])
}
