package event

import (
	"context"

	"github.com/google/uuid"
)

// Имена событий реального времени.
const (
	BidNew         = "bid:new"
	BidUpdated     = "bid:updated"
	BidAccepted    = "bid:accepted"
	ListingUpdated = "listing:updated"
	ListingNew     = "listing:new"
)

// Publisher доставляет события подписчикам. Доставка best-effort:
// ошибки логируются реализацией и наружу не возвращаются.
type Publisher interface {
	ToSeller(ctx context.Context, sellerID uuid.UUID, name string, data any)
	ToBidder(ctx context.Context, bidderID uuid.UUID, name string, data any)
	Broadcast(ctx context.Context, name string, data any)
}

// Nop игнорирует все события.
type Nop struct{}

func (Nop) ToSeller(context.Context, uuid.UUID, string, any) {}
func (Nop) ToBidder(context.Context, uuid.UUID, string, any) {}
func (Nop) Broadcast(context.Context, string, any)           {}

// Multi рассылает событие через несколько издателей по очереди.
type Multi []Publisher

func (m Multi) ToSeller(ctx context.Context, sellerID uuid.UUID, name string, data any) {
	for _, p := range m {
		p.ToSeller(ctx, sellerID, name, data)
	}
}

func (m Multi) ToBidder(ctx context.Context, bidderID uuid.UUID, name string, data any) {
	for _, p := range m {
		p.ToBidder(ctx, bidderID, name, data)
	}
}

func (m Multi) Broadcast(ctx context.Context, name string, data any) {
	for _, p := range m {
		p.Broadcast(ctx, name, data)
	}
}
