package ws

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/wastemarket-backend/internal/logger"
)

// Publisher доставляет доменные события клиентам этого экземпляра через хаб.
type Publisher struct {
	hub *Hub
}

func NewPublisher(hub *Hub) *Publisher {
	return &Publisher{hub: hub}
}

func (p *Publisher) ToSeller(_ context.Context, sellerID uuid.UUID, name string, data any) {
	p.log(p.hub.ToRoom(SellerRoom(sellerID), name, data), name, SellerRoom(sellerID))
}

func (p *Publisher) ToBidder(_ context.Context, bidderID uuid.UUID, name string, data any) {
	p.log(p.hub.ToRoom(BidderRoom(bidderID), name, data), name, BidderRoom(bidderID))
}

func (p *Publisher) Broadcast(_ context.Context, name string, data any) {
	p.log(p.hub.Broadcast(name, data), name, "*")
}

func (p *Publisher) log(err error, name, room string) {
	if err == nil {
		return
	}
	logger.Get().WithFields(logrus.Fields{
		"event": name,
		"room":  room,
		"error": err.Error(),
	}).Warn("ws: событие не доставлено")
}
