package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsIdlePingInterval = 30 * time.Second

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type statePayload struct {
	GameID string        `json:"game_id"`
	State  StateResponse `json:"state"`
}

// Hub fans out game state updates to every websocket client watching a game.
type Hub struct {
	mu             sync.Mutex
	clients        map[*Client]struct{}
	broadcastState chan statePayload
}

type Client struct {
	hub    *Hub
	gameID string
	send   chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:        make(map[*Client]struct{}),
		broadcastState: make(chan statePayload, 32),
	}
}

func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case payload := <-h.broadcastState:
			h.mu.Lock()
			for client := range h.clients {
				if client.gameID != payload.GameID {
					continue
				}
				client.sendJSON(wsMessage{Type: "state", Payload: mustMarshal(payload.State)})
			}
			h.mu.Unlock()
		}
	}
}

// PublishState queues a state update for broadcast. Drops the update when the
// hub is backed up rather than blocking the move handler.
func (h *Hub) PublishState(gameID string, state StateResponse) {
	select {
	case h.broadcastState <- statePayload{GameID: gameID, State: state}:
	default:
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) HasClients() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients) > 0
}

func (c *Client) sendJSON(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

func writeWSWithHeartbeat(conn *websocket.Conn, send <-chan []byte) error {
	ticker := time.NewTicker(wsIdlePingInterval)
	defer ticker.Stop()
	lastWrite := time.Now()
	pingPayload := mustMarshal(wsMessage{Type: "ping"})

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < wsIdlePingInterval {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, pingPayload); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request, gameID string) {
	session, err := s.registry.Get(gameID)
	if err != nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &Client{hub: s.hub, gameID: gameID, send: make(chan []byte, 16)}
	s.hub.Register(client)

	client.sendJSON(wsMessage{Type: "state", Payload: mustMarshal(s.sessionState(session))})

	go func() {
		defer conn.Close()
		if err := writeWSWithHeartbeat(conn, client.send); err != nil {
			return
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.hub.Unregister(client)
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "request_state":
			client.sendJSON(wsMessage{Type: "state", Payload: mustMarshal(s.sessionState(session))})
		}
	}
}
