package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/event"
	"github.com/ignatzorin/wastemarket-backend/internal/logger"
)

// Префикс тем событий реального времени: market.events.<scope>.
const eventsSubjectPrefix = "market.events."

// Адресаты события.
const (
	ScopeSeller = "seller"
	ScopeBidder = "bidder"
	ScopeAll    = "all"
)

// Envelope - событие в шине между экземплярами сервиса.
type Envelope struct {
	Scope  string          `json:"scope"`
	Target uuid.UUID       `json:"target,omitempty"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
	SentAt time.Time       `json:"sent_at"`
}

// Connect подключается к NATS с переподключением без ограничения попыток.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("wastemarket-backend"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Get().WithError(err).Warn("nats: соединение потеряно")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Get().WithField("url", c.ConnectedUrl()).Info("nats: соединение восстановлено")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats: не удалось подключиться: %w", err)
	}
	return conn, nil
}

// NATSPublisher отправляет события в шину, откуда их забирает Relay
// каждого экземпляра. Так клиент получает событие, на каком бы узле
// он ни был подключён.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

func (p *NATSPublisher) ToSeller(ctx context.Context, sellerID uuid.UUID, name string, data any) {
	p.publish(ScopeSeller, sellerID, name, data)
}

func (p *NATSPublisher) ToBidder(ctx context.Context, bidderID uuid.UUID, name string, data any) {
	p.publish(ScopeBidder, bidderID, name, data)
}

func (p *NATSPublisher) Broadcast(ctx context.Context, name string, data any) {
	p.publish(ScopeAll, uuid.Nil, name, data)
}

func (p *NATSPublisher) publish(scope string, target uuid.UUID, name string, data any) {
	entry := logger.Get().WithFields(logrus.Fields{"event": name, "scope": scope})

	raw, err := encodeEnvelope(scope, target, name, data)
	if err != nil {
		entry.WithError(err).Error("nats: не удалось сериализовать событие")
		return
	}
	if err := p.conn.Publish(eventsSubjectPrefix+scope, raw); err != nil {
		entry.WithError(err).Warn("nats: событие не опубликовано")
	}
}

func encodeEnvelope(scope string, target uuid.UUID, name string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		Scope:  scope,
		Target: target,
		Type:   name,
		Data:   payload,
		SentAt: time.Now().UTC(),
	})
}

var _ event.Publisher = (*NATSPublisher)(nil)
