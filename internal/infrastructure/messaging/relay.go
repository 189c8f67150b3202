package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/event"
	"github.com/ignatzorin/wastemarket-backend/internal/logger"
)

// Relay читает события из шины и передаёт их локальным подписчикам.
type Relay struct {
	conn  *nats.Conn
	local event.Publisher
}

func NewRelay(conn *nats.Conn, local event.Publisher) *Relay {
	return &Relay{conn: conn, local: local}
}

// Run подписывается на все события и работает до отмены ctx.
func (r *Relay) Run(ctx context.Context) error {
	sub, err := r.conn.Subscribe(eventsSubjectPrefix+">", func(msg *nats.Msg) {
		r.Deliver(ctx, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats: не удалось подписаться на события: %w", err)
	}
	logger.Get().WithField("subject", sub.Subject).Info("nats: relay подписан")

	<-ctx.Done()
	return sub.Unsubscribe()
}

// Deliver разбирает конверт и отдаёт событие локальному издателю.
func (r *Relay) Deliver(ctx context.Context, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Get().WithError(err).Warn("nats: повреждённый конверт события")
		return
	}

	switch env.Scope {
	case ScopeSeller:
		r.local.ToSeller(ctx, env.Target, env.Type, env.Data)
	case ScopeBidder:
		r.local.ToBidder(ctx, env.Target, env.Type, env.Data)
	case ScopeAll:
		r.local.Broadcast(ctx, env.Type, env.Data)
	default:
		logger.Get().WithField("scope", env.Scope).Warn("nats: неизвестный адресат события")
	}
}
