package websocket

import (
	"encoding/json"
	"sync"

	"friendgraph/relationship"
)

type Hub struct {
	clients    map[string]*Client
	userConns  map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// ClientMessage is what a connected client may send: a ping, or a live
// search query ("search" with the current input, empty string to clear).
type ClientMessage struct {
	Action string `json:"action"`
	Query  string `json:"query,omitempty"`
}

var (
	HubInstance *Hub
	graph       *relationship.Graph
)

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		userConns:  make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			if h.userConns[client.UserID] == nil {
				h.userConns[client.UserID] = make(map[*Client]bool)
			}
			h.userConns[client.UserID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				if h.userConns[client.UserID] != nil {
					delete(h.userConns[client.UserID], client)
					if len(h.userConns[client.UserID]) == 0 {
						delete(h.userConns, client.UserID)
					}
				}
				close(client.Send)
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) SendToUser(userID string, msg *Message) {
	h.mu.RLock()
	clients := h.userConns[userID]
	h.mu.RUnlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	for client := range clients {
		select {
		case client.Send <- data:
		default:
			h.unregister <- client
		}
	}
}

func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns[userID]) > 0
}

// NotifyUsers pushes a relationship event to every listed user's open
// connections. No-op for users who are offline.
func NotifyUsers(event string, data interface{}, userIDs ...string) {
	if HubInstance == nil {
		return
	}
	msg := &Message{Event: event, Data: data}
	for _, userID := range userIDs {
		HubInstance.SendToUser(userID, msg)
	}
}

func InitHub(g *relationship.Graph) {
	graph = g
	HubInstance = NewHub()
	go HubInstance.Run()
}
