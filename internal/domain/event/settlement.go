package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementRequest передаётся во внешний контур вывоза и оплаты после
// принятия ставки.
type SettlementRequest struct {
	ListingID  uuid.UUID       `json:"listing_id"`
	BidID      uuid.UUID       `json:"bid_id"`
	SellerID   uuid.UUID       `json:"seller_id"`
	BuyerID    uuid.UUID       `json:"buyer_id"`
	Amount     decimal.Decimal `json:"amount"`
	PickupDate *time.Time      `json:"pickup_date,omitempty"`
	PickupTime string          `json:"pickup_time,omitempty"`
	AcceptedAt time.Time       `json:"accepted_at"`
}

type SettlementTrigger interface {
	RequestSettlement(ctx context.Context, req SettlementRequest) error
}
