package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/wastemarket-backend/internal/goroutine"
)

// Hub управляет WebSocket клиентами и комнатами продавцов и сборщиков.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	rooms      map[string]map[*Client]struct{}
	closed     bool
	unregister chan *Client
	outbound   chan message
	done       chan struct{}
}

type message struct {
	// client задан - ответ одному клиенту; room пустая - сообщение для всех.
	client  *Client
	room    string
	payload []byte
}

// envelope - формат исходящих сообщений: "type" содержит имя события,
// "data" - полезную нагрузку.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// SellerRoom и BidderRoom - имена комнат адресных событий.
func SellerRoom(sellerID uuid.UUID) string { return "seller:" + sellerID.String() }
func BidderRoom(bidderID uuid.UUID) string { return "bidder:" + bidderID.String() }

// NewHub создаёт новый хаб.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		unregister: make(chan *Client),
		outbound:   make(chan message, 256),
		done:       make(chan struct{}),
	}
}

// Run запускает главный цикл хаба до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.outbound:
			h.send(msg)
		}
	}
}

// Register добавляет клиента. После остановки хаба клиент сразу закрывается.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		client.closeConn()
		return
	}
	h.clients[client] = struct{}{}
	h.mu.Unlock()
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// JoinRoom подписывает клиента на комнату. Повторное вступление ничего не меняет.
func (h *Hub) JoinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
	client.rooms[room] = struct{}{}
}

// ToRoom отправляет событие участникам комнаты.
func (h *Hub) ToRoom(room, name string, data any) error {
	if room == "" {
		return fmt.Errorf("ws: пустое имя комнаты")
	}
	return h.enqueue(message{room: room}, name, data)
}

// Broadcast отправляет событие всем подключённым клиентам.
func (h *Hub) Broadcast(name string, data any) error {
	return h.enqueue(message{}, name, data)
}

func (h *Hub) toClient(client *Client, name string, data any) error {
	return h.enqueue(message{client: client}, name, data)
}

func (h *Hub) enqueue(msg message, name string, data any) error {
	raw, err := json.Marshal(envelope{Type: name, Data: data})
	if err != nil {
		return fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}
	msg.payload = raw
	select {
	case <-h.done:
		return fmt.Errorf("ws: хаб остановлен")
	default:
	}
	select {
	case h.outbound <- msg:
		return nil
	case <-h.done:
		return fmt.Errorf("ws: хаб остановлен")
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for room := range client.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	close(client.send)
}

func (h *Hub) send(msg message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := h.clients
	switch {
	case msg.client != nil:
		if _, ok := h.clients[msg.client]; !ok {
			return
		}
		targets = map[*Client]struct{}{msg.client: {}}
	case msg.room != "":
		targets = h.rooms[msg.room]
	}

	for client := range targets {
		select {
		case client.send <- msg.payload:
		default:
			// Медленный клиент: отключаем, не блокируя остальных.
			c := client
			goroutine.SafeGo("ws.close_slow_client", c.Close)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for client := range h.clients {
		close(client.send)
		client.closeConn()
	}
	h.clients = make(map[*Client]struct{})
	h.rooms = make(map[string]map[*Client]struct{})
}

// roomSize - число клиентов в комнате.
func (h *Hub) roomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
