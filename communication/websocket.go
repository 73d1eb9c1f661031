package communication

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// WSEvent is the envelope broadcast to every connected UI client.
type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	EventTraitLearned      = "TRAIT_LEARNED"
	EventAnalysisCompleted = "ANALYSIS_COMPLETED"
)

// WSManager fans events out to connected WebSocket clients. One
// manager per process, owned by whoever wires the API.
type WSManager struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan WSEvent
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

// NewWSManager starts the fan-out loop and returns the manager.
func NewWSManager() *WSManager {
	m := &WSManager{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan WSEvent, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
	go m.run()
	return m
}

func (m *WSManager) run() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client] = true
			m.mu.Unlock()

		case client := <-m.unregister:
			m.mu.Lock()
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				client.Close()
			}
			m.mu.Unlock()

		case event := <-m.broadcast:
			m.mu.Lock()
			for client := range m.clients {
				if err := client.WriteJSON(event); err != nil {
					log.Printf("WebSocket write failed: %v", err)
					client.Close()
					delete(m.clients, client)
				}
			}
			m.mu.Unlock()
		}
	}
}

// Broadcast queues an event for every connected client.
func (m *WSManager) Broadcast(eventType string, payload interface{}) {
	m.broadcast <- WSEvent{Type: eventType, Payload: payload}
}

// Register returns the channel new connections are announced on.
func (m *WSManager) Register() chan<- *websocket.Conn {
	return m.register
}

// Unregister returns the channel departing connections are announced on.
func (m *WSManager) Unregister() chan<- *websocket.Conn {
	return m.unregister
}
