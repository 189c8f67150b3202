package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/wastemarket-backend/internal/goroutine"
	"github.com/ignatzorin/wastemarket-backend/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// Входящие события клиента.
const (
	SellerJoin    = "seller:join"
	CollectorJoin = "collector:join"

	roomJoined = "room:joined"
	errorEvent = "error"
)

// Client представляет одно подключение WebSocket.
type Client struct {
	conn      *websocket.Conn
	hub       *Hub
	userID    uuid.UUID
	send      chan []byte
	rooms     map[string]struct{}
	closeOnce sync.Once
}

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type sellerJoinData struct {
	SellerID uuid.UUID `json:"seller_id"`
}

type collectorJoinData struct {
	CollectorID uuid.UUID `json:"collector_id"`
	Location    *struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location,omitempty"`
}

// NewClient создаёт нового клиента для аутентифицированного пользователя.
func NewClient(conn *websocket.Conn, hub *Hub, userID uuid.UUID) *Client {
	return &Client{
		conn:   conn,
		hub:    hub,
		userID: userID,
		send:   make(chan []byte, 32),
		rooms:  make(map[string]struct{}),
	}
}

// Run запускает обработку входящих и исходящих сообщений.
func (c *Client) Run(ctx context.Context) {
	goroutine.SafeGo("ws.write_pump", c.writePump)
	c.readPump(ctx)
}

// Close отключает клиента от хаба и закрывает соединение.
func (c *Client) Close() {
	c.hub.Unregister(c)
	c.closeConn()
}

func (c *Client) closeConn() {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *Client) readPump(ctx context.Context) {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Get().WithField("user_id", c.userID).WithError(err).Debug("ws: соединение закрыто")
			}
			return
		}
		c.handle(raw)
	}
}

// handle обрабатывает запрос на вступление в комнату. Вступить можно
// только в свою комнату: id в запросе должен совпадать с владельцем токена.
func (c *Client) handle(raw []byte) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.reply(errorEvent, fields{"message": "malformed message"})
		return
	}

	switch msg.Type {
	case SellerJoin:
		var data sellerJoinData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.SellerID == uuid.Nil {
			c.reply(errorEvent, fields{"message": "seller_id is required"})
			return
		}
		c.join(data.SellerID, SellerRoom(data.SellerID))
	case CollectorJoin:
		var data collectorJoinData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.CollectorID == uuid.Nil {
			c.reply(errorEvent, fields{"message": "collector_id is required"})
			return
		}
		if data.Location != nil {
			logger.Get().WithFields(logrus.Fields{
				"user_id": c.userID,
				"lat":     data.Location.Lat,
				"lng":     data.Location.Lng,
			}).Debug("ws: сборщик подключился с координатами")
		}
		c.join(data.CollectorID, BidderRoom(data.CollectorID))
	default:
		c.reply(errorEvent, fields{"message": "unknown event type"})
	}
}

func (c *Client) join(claimedID uuid.UUID, room string) {
	if claimedID != c.userID {
		logger.Get().WithFields(logrus.Fields{
			"user_id": c.userID,
			"room":    room,
		}).Warn("ws: попытка вступить в чужую комнату")
		c.reply(errorEvent, fields{"message": "cannot join another user's room"})
		return
	}
	c.hub.JoinRoom(c, room)
	c.reply(roomJoined, fields{"room": room})
}

// reply отправляет ответ только этому клиенту.
func (c *Client) reply(name string, data any) {
	if err := c.hub.toClient(c, name, data); err != nil {
		logger.Get().WithField("user_id", c.userID).WithError(err).Debug("ws: ответ клиенту не отправлен")
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type fields = map[string]any
