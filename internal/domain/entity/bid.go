package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
)

// CollectorSnapshot - репутация сборщика на момент ставки.
type CollectorSnapshot struct {
	Rating        float64
	CompletedJobs int
}

// BidDetails - то, что сборщик может указать вместе с суммой.
type BidDetails struct {
	Message         string
	PickupDate      *time.Time
	PickupTime      string
	HasOwnTransport bool
}

type Bid struct {
	ID                  uuid.UUID
	ListingID           uuid.UUID
	BidderID            uuid.UUID
	Amount              decimal.Decimal
	Message             string
	PickupDate          *time.Time
	PickupTime          string
	HasOwnTransport     bool
	Status              valueobject.BidStatus
	IsHighestBid        bool
	BidderRating        float64
	BidderCompletedJobs int
	DistanceKm          *float64
	ExpiresAt           *time.Time
	RespondedAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func NewBid(listingID, bidderID uuid.UUID, amount decimal.Decimal, details BidDetails, snapshot CollectorSnapshot, distanceKm *float64) (*Bid, error) {
	if err := ValidateBidAmount(amount); err != nil {
		return nil, err
	}
	now := time.Now()
	return &Bid{
		ID:                  uuid.New(),
		ListingID:           listingID,
		BidderID:            bidderID,
		Amount:              amount,
		Message:             details.Message,
		PickupDate:          details.PickupDate,
		PickupTime:          details.PickupTime,
		HasOwnTransport:     details.HasOwnTransport,
		Status:              valueobject.BidStatusPending,
		BidderRating:        snapshot.Rating,
		BidderCompletedJobs: snapshot.CompletedJobs,
		DistanceKm:          distanceKm,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// Reactivate переиспользует отозванную или отклонённую запись под новую ставку.
func (b *Bid) Reactivate(amount decimal.Decimal, details BidDetails, snapshot CollectorSnapshot, distanceKm *float64) error {
	if !b.Status.IsReusable() {
		return apperror.ErrActiveBidExists
	}
	if err := ValidateBidAmount(amount); err != nil {
		return err
	}
	b.Amount = amount
	b.Message = details.Message
	b.PickupDate = details.PickupDate
	b.PickupTime = details.PickupTime
	b.HasOwnTransport = details.HasOwnTransport
	b.BidderRating = snapshot.Rating
	b.BidderCompletedJobs = snapshot.CompletedJobs
	b.DistanceKm = distanceKm
	b.Status = valueobject.BidStatusPending
	b.IsHighestBid = false
	b.RespondedAt = nil
	b.ExpiresAt = nil
	b.UpdatedAt = time.Now()
	return nil
}

func (b *Bid) ChangeAmount(amount decimal.Decimal) error {
	if !b.IsPending() {
		return apperror.ErrBidNotPending
	}
	if err := ValidateBidAmount(amount); err != nil {
		return err
	}
	b.Amount = amount
	b.UpdatedAt = time.Now()
	return nil
}

func (b *Bid) Withdraw() error {
	if !b.IsPending() {
		return apperror.ErrBidNotPending
	}
	b.Status = valueobject.BidStatusWithdrawn
	b.IsHighestBid = false
	b.UpdatedAt = time.Now()
	return nil
}

func (b *Bid) Accept(now time.Time) error {
	if b.IsAccepted() {
		return apperror.New(apperror.ErrCodeInvalidState, "bid is already accepted")
	}
	// Отклонённую ставку продавец может принять при смене победителя.
	if b.Status != valueobject.BidStatusPending && b.Status != valueobject.BidStatusRejected {
		return apperror.New(apperror.ErrCodeInvalidState, "only a pending or rejected bid can be accepted")
	}
	b.Status = valueobject.BidStatusAccepted
	b.RespondedAt = &now
	b.UpdatedAt = now
	return nil
}

// Reject отклоняет ожидающую ставку или снимает прежнего победителя.
func (b *Bid) Reject(now time.Time) error {
	if !b.Status.IsActive() {
		return apperror.New(apperror.ErrCodeInvalidState, "only a pending or accepted bid can be rejected")
	}
	b.Status = valueobject.BidStatusRejected
	b.IsHighestBid = false
	b.RespondedAt = &now
	b.UpdatedAt = now
	return nil
}

func (b *Bid) IsOwnedBy(userID uuid.UUID) bool {
	return b.BidderID == userID
}

func (b *Bid) IsPending() bool {
	return b.Status == valueobject.BidStatusPending
}

func (b *Bid) IsAccepted() bool {
	return b.Status == valueobject.BidStatusAccepted
}

// ListingSummary - поля лота, которые отдаются вместе со ставками сборщика.
type ListingSummary struct {
	ID                uuid.UUID
	Title             string
	Status            valueobject.ListingStatus
	CurrentHighestBid decimal.Decimal
	TotalBids         int
	FinalWeight       decimal.Decimal
	FinalValue        decimal.Decimal
	BiddingDeadline   *time.Time
}

// BidWithListing - ставка вместе с кратким описанием лота.
type BidWithListing struct {
	Bid     *Bid
	Listing ListingSummary
}
