package controllers

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"codebuddy/internal/models"
)

const (
	hubBufferSize = 100
	writeWait     = 10 * time.Second
)

const (
	EventResponseScored = "response_scored"
	EventSessionEnded   = "session_ended"
)

// InterviewEvent is pushed to every stream listener of a session.
type InterviewEvent struct {
	Type      string                    `json:"type"`
	SessionID uint                      `json:"session_id"`
	Response  *models.InterviewResponse `json:"response,omitempty"`
	Score     int                       `json:"score"`
}

// InterviewHub manages active WebSocket listeners per interview session
// and fans out events to them.
type InterviewHub struct {
	clients   map[uint]map[*websocket.Conn]bool
	broadcast chan InterviewEvent
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	log       logrus.FieldLogger
}

// NewInterviewHub creates the hub and starts its broadcasting goroutine.
func NewInterviewHub(log logrus.FieldLogger) *InterviewHub {
	hub := &InterviewHub{
		clients:   make(map[uint]map[*websocket.Conn]bool),
		broadcast: make(chan InterviewEvent, hubBufferSize),
		done:      make(chan struct{}),
		log:       log,
	}
	go hub.run()
	return hub
}

// run is the only writer to client connections.
func (h *InterviewHub) run() {
	for {
		select {
		case <-h.done:
			return
		case ev := <-h.broadcast:
			h.deliver(ev)
		}
	}
}

func (h *InterviewHub) deliver(ev InterviewEvent) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients[ev.SessionID]))
	for conn := range h.clients[ev.SessionID] {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	// a slow client must not hold up Register or Unregister
	for _, conn := range conns {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			h.log.WithError(err).WithFields(logrus.Fields{
				"session_id": ev.SessionID,
				"conn_ptr":   fmt.Sprintf("%p", conn),
			}).Warn("Failed to send interview event, dropping client")
			h.Unregister(ev.SessionID, conn)
			_ = conn.Close()
		}
	}
}

// Register adds a listener for sessionID.
func (h *InterviewHub) Register(sessionID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[sessionID]; !ok {
		h.clients[sessionID] = make(map[*websocket.Conn]bool)
	}
	h.clients[sessionID][conn] = true
	h.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"conn_ptr":   fmt.Sprintf("%p", conn),
	}).Info("Interview stream client registered")
}

func (h *InterviewHub) Unregister(sessionID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sessionID, conn)
}

func (h *InterviewHub) removeLocked(sessionID uint, conn *websocket.Conn) {
	clients, ok := h.clients[sessionID]
	if !ok {
		return
	}
	delete(clients, conn)
	if len(clients) == 0 {
		delete(h.clients, sessionID)
	}
}

// ClientCount reports how many listeners a session currently has.
func (h *InterviewHub) ClientCount(sessionID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[sessionID])
}

// Publish queues ev without blocking; a full buffer drops the event.
func (h *InterviewHub) Publish(ev InterviewEvent) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.broadcast <- ev:
	default:
		h.log.WithField("session_id", ev.SessionID).Warn("Interview broadcast channel full, dropping event")
	}
}

// Close stops broadcasting and disconnects every client.
func (h *InterviewHub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		defer h.mu.Unlock()
		for sessionID, clients := range h.clients {
			for conn := range clients {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(time.Second))
				_ = conn.Close()
			}
			delete(h.clients, sessionID)
		}
	})
}
