package sse

import (
	"encoding/json"
	"log"
	"sync"
)

// Event is one server-sent event pushed to connected dashboards.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Marshal renders the event payload for the wire.
func (e *Event) Marshal() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		log.Printf("[SSE] Failed to marshal event %s: %v", e.Type, err)
		return []byte("{}")
	}
	return data
}

// Manager is the broadcast hub. Every connected dashboard gets its own
// buffered channel; a full buffer drops events rather than blocking the
// pipeline.
type Manager struct {
	mu      sync.RWMutex
	clients map[chan *Event]struct{}
}

func NewManager() *Manager {
	return &Manager{
		clients: make(map[chan *Event]struct{}),
	}
}

// Subscribe registers a new client channel.
func (m *Manager) Subscribe() chan *Event {
	ch := make(chan *Event, 64)
	m.mu.Lock()
	m.clients[ch] = struct{}{}
	m.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a client channel.
func (m *Manager) Unsubscribe(ch chan *Event) {
	m.mu.Lock()
	if _, ok := m.clients[ch]; ok {
		delete(m.clients, ch)
		close(ch)
	}
	m.mu.Unlock()
}

// Broadcast sends an event to every connected client.
func (m *Manager) Broadcast(eventType string, data interface{}) {
	event := &Event{Type: eventType, Data: data}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for ch := range m.clients {
		select {
		case ch <- event:
		default:
			log.Printf("[SSE] Dropped %s event, client buffer full", eventType)
		}
	}
}

// ClientCount reports how many dashboards are connected.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}
