package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/event"
	"github.com/ignatzorin/wastemarket-backend/internal/logger"
)

const (
	settlementStream         = "SETTLEMENTS"
	settlementSubjectPrefix  = "settlement.requested."
	settlementPublishTimeout = 5 * time.Second
)

// SettlementPublisher передаёт принятые сделки в контур вывоза и оплаты
// через JetStream, чтобы запрос пережил перезапуск потребителя.
type SettlementPublisher struct {
	js jetstream.JetStream
}

func NewSettlementPublisher(ctx context.Context, conn *nats.Conn) (*SettlementPublisher, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("jetstream: не удалось создать контекст: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        settlementStream,
		Description: "Принятые ставки, ожидающие расчёта",
		Subjects:    []string{settlementSubjectPrefix + "*"},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      7 * 24 * time.Hour,
		Replicas:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("jetstream: не удалось создать поток %s: %w", settlementStream, err)
	}

	return &SettlementPublisher{js: js}, nil
}

// RequestSettlement публикует запрос. Id сообщения - id ставки, так что
// повторная отправка той же сделки отбрасывается сервером.
func (p *SettlementPublisher) RequestSettlement(ctx context.Context, req event.SettlementRequest) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("jetstream: не удалось сериализовать запрос: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settlementPublishTimeout)
	defer cancel()

	ack, err := p.js.Publish(pubCtx, settlementSubjectPrefix+req.ListingID.String(), raw,
		jetstream.WithMsgID(req.BidID.String()))
	if err != nil {
		return fmt.Errorf("jetstream: запрос расчёта не опубликован: %w", err)
	}

	logger.Get().WithFields(logrus.Fields{
		"listing_id": req.ListingID,
		"bid_id":     req.BidID,
		"seq":        ack.Sequence,
		"duplicate":  ack.Duplicate,
	}).Info("jetstream: запрос расчёта отправлен")
	return nil
}

// LogSettlement используется без NATS: запрос только пишется в лог.
type LogSettlement struct{}

func (LogSettlement) RequestSettlement(_ context.Context, req event.SettlementRequest) error {
	logger.Get().WithFields(logrus.Fields{
		"listing_id": req.ListingID,
		"bid_id":     req.BidID,
		"buyer_id":   req.BuyerID,
		"amount":     req.Amount.String(),
	}).Info("settlement: сделка ожидает расчёта")
	return nil
}

var (
	_ event.SettlementTrigger = (*SettlementPublisher)(nil)
	_ event.SettlementTrigger = LogSettlement{}
)
