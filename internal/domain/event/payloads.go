package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
)

type BidView struct {
	ID                  uuid.UUID       `json:"id"`
	ListingID           uuid.UUID       `json:"listing_id"`
	BidderID            uuid.UUID       `json:"bidder_id"`
	Amount              decimal.Decimal `json:"amount"`
	Message             string          `json:"message,omitempty"`
	PickupDate          *time.Time      `json:"pickup_date,omitempty"`
	PickupTime          string          `json:"pickup_time,omitempty"`
	HasOwnTransport     bool            `json:"has_own_transport"`
	Status              string          `json:"status"`
	IsHighestBid        bool            `json:"is_highest_bid"`
	BidderRating        float64         `json:"bidder_rating"`
	BidderCompletedJobs int             `json:"bidder_completed_jobs"`
	DistanceKm          *float64        `json:"distance_km"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func NewBidView(b *entity.Bid) BidView {
	return BidView{
		ID:                  b.ID,
		ListingID:           b.ListingID,
		BidderID:            b.BidderID,
		Amount:              b.Amount,
		Message:             b.Message,
		PickupDate:          b.PickupDate,
		PickupTime:          b.PickupTime,
		HasOwnTransport:     b.HasOwnTransport,
		Status:              string(b.Status),
		IsHighestBid:        b.IsHighestBid,
		BidderRating:        b.BidderRating,
		BidderCompletedJobs: b.BidderCompletedJobs,
		DistanceKm:          b.DistanceKm,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

// BidPayload - данные bid:new и bid:updated.
type BidPayload struct {
	ListingID uuid.UUID `json:"listing_id"`
	Bid       BidView   `json:"bid"`
}

// BidAcceptedPayload - данные bid:accepted.
type BidAcceptedPayload struct {
	ListingID uuid.UUID `json:"listing_id"`
	BidID     uuid.UUID `json:"bid_id"`
}

// ListingUpdates - аукционные поля лота, меняющиеся при торгах.
type ListingUpdates struct {
	Status            string          `json:"status"`
	CurrentHighestBid decimal.Decimal `json:"current_highest_bid"`
	TotalBids         int             `json:"total_bids"`
	AcceptedBidID     *uuid.UUID      `json:"accepted_bid_id,omitempty"`
	AcceptedBuyerID   *uuid.UUID      `json:"accepted_buyer_id,omitempty"`
	ClosedAt          *time.Time      `json:"closed_at,omitempty"`
}

// ListingUpdatedPayload - данные listing:updated.
type ListingUpdatedPayload struct {
	ListingID uuid.UUID      `json:"listing_id"`
	Updates   ListingUpdates `json:"updates"`
}

func NewListingUpdatedPayload(l *entity.Listing) ListingUpdatedPayload {
	return ListingUpdatedPayload{
		ListingID: l.ID,
		Updates: ListingUpdates{
			Status:            string(l.Status),
			CurrentHighestBid: l.CurrentHighestBid,
			TotalBids:         l.TotalBids,
			AcceptedBidID:     l.AcceptedBidID,
			AcceptedBuyerID:   l.AcceptedBuyerID,
			ClosedAt:          l.ClosedAt,
		},
	}
}

type ListingView struct {
	ID                uuid.UUID       `json:"id"`
	SellerID          uuid.UUID       `json:"seller_id"`
	Title             string          `json:"title"`
	FinalWeight       decimal.Decimal `json:"final_weight"`
	FinalMaterials    []string        `json:"final_materials"`
	FinalValue        decimal.Decimal `json:"final_value"`
	Latitude          *float64        `json:"lat,omitempty"`
	Longitude         *float64        `json:"lng,omitempty"`
	CurrentHighestBid decimal.Decimal `json:"current_highest_bid"`
	TotalBids         int             `json:"total_bids"`
	BiddingDeadline   *time.Time      `json:"bidding_deadline,omitempty"`
	AcceptedBidID     *uuid.UUID      `json:"accepted_bid_id,omitempty"`
	AcceptedBuyerID   *uuid.UUID      `json:"accepted_buyer_id,omitempty"`
	Status            string          `json:"status"`
	ClosedAt          *time.Time      `json:"closed_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func NewListingView(l *entity.Listing) ListingView {
	v := ListingView{
		ID:                l.ID,
		SellerID:          l.SellerID,
		Title:             l.Title,
		FinalWeight:       l.FinalWeight,
		FinalMaterials:    l.FinalMaterials,
		FinalValue:        l.FinalValue,
		CurrentHighestBid: l.CurrentHighestBid,
		TotalBids:         l.TotalBids,
		BiddingDeadline:   l.BiddingDeadline,
		AcceptedBidID:     l.AcceptedBidID,
		AcceptedBuyerID:   l.AcceptedBuyerID,
		Status:            string(l.Status),
		ClosedAt:          l.ClosedAt,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
	if l.Location != nil {
		lat, lng := l.Location.Latitude, l.Location.Longitude
		v.Latitude = &lat
		v.Longitude = &lng
	}
	if v.FinalMaterials == nil {
		v.FinalMaterials = []string{}
	}
	return v
}

// ListingNewPayload - данные listing:new.
type ListingNewPayload struct {
	Listing ListingView `json:"listing"`
}
