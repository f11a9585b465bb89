package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/fingerspell/internal/inference"
)

const (
	writeWait  = 5 * time.Second
	clientSend = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// DecisionMessage is the JSON sent to websocket clients for each decision.
type DecisionMessage struct {
	Frame      int64   `json:"frame"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	LatencyMs  float64 `json:"latency_ms"`
	Timestamp  int64   `json:"timestamp"`
}

// DecisionHub broadcasts live decisions to websocket clients. It is an
// inference.Reporter; a slow client drops messages instead of holding up
// the loop.
type DecisionHub struct {
	log     logrus.FieldLogger
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
	dropped atomic.Int64
}

// NewDecisionHub creates an empty hub.
func NewDecisionHub(log logrus.FieldLogger) *DecisionHub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DecisionHub{
		log:     log,
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *DecisionHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan []byte, clientSend)
	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Keep connection alive by reading messages
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case msg := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// Report implements inference.Reporter.
func (h *DecisionHub) Report(d inference.Decision) {
	msg, err := json.Marshal(DecisionMessage{
		Frame:      d.Frame,
		Label:      d.Label,
		Confidence: d.Confidence,
		LatencyMs:  float64(d.Latency) / float64(time.Millisecond),
		Timestamp:  d.At.UnixMilli(),
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, send := range h.clients {
		select {
		case send <- msg:
		default:
			h.dropped.Add(1)
		}
	}
}

// Clients returns the number of connected clients.
func (h *DecisionHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many messages were not delivered to slow clients.
func (h *DecisionHub) Dropped() int64 {
	return h.dropped.Load()
}
