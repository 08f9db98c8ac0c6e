package dashboard

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/radieske/race-trading-pipeline/internal/notify"
)

// ClientMsg é a mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// RaceKey: filtro opcional; sem nenhum subscribe o cliente recebe todas as corridas
type ClientMsg struct {
	Type    string `json:"type"`
	RaceKey string `json:"race_key"`
}

// client serializa as escritas de uma conexão (gorilla aceita um escritor por vez)
type client struct {
	conn *websocket.Conn
	wmu  sync.Mutex

	mu    sync.RWMutex
	races map[string]struct{}
}

func (c *client) write(v any) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *client) wants(raceKey string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.races) == 0 {
		return true
	}
	_, ok := c.races[raceKey]
	return ok
}

// Hub mantém as conexões do feed de apostas
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*client]struct{}
}

// NewHub cria o hub com a política de origem informada
func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		clients:  make(map[*client]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := &client{conn: conn, races: make(map[string]struct{})}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			if msg.RaceKey == "" {
				continue
			}
			c.mu.Lock()
			c.races[msg.RaceKey] = struct{}{}
			c.mu.Unlock()
		case "unsubscribe":
			c.mu.Lock()
			delete(c.races, msg.RaceKey)
			c.mu.Unlock()
		case "ping":
			_ = c.write(map[string]string{"type": "pong"})
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Broadcast envia a atualização para os clientes interessados na corrida
func (h *Hub) Broadcast(update notify.BetUpdate) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c.wants(update.RaceKey) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, err := json.Marshal(update)
	if err != nil {
		return
	}
	for _, c := range targets {
		c.wmu.Lock()
		_ = c.conn.WriteMessage(websocket.TextMessage, b)
		c.wmu.Unlock()
	}
}

// Clients retorna o número de conexões abertas
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
