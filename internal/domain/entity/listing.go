package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
)

// Listing - партия отходов, выставленная продавцом на торги.
type Listing struct {
	ID                uuid.UUID
	SellerID          uuid.UUID
	Title             string
	FinalWeight       decimal.Decimal
	FinalMaterials    []string
	FinalValue        decimal.Decimal
	Location          *valueobject.Location
	CurrentHighestBid decimal.Decimal
	TotalBids         int
	BiddingDeadline   *time.Time
	AcceptedBidID     *uuid.UUID
	AcceptedBuyerID   *uuid.UUID
	Status            valueobject.ListingStatus
	ClosedAt          *time.Time
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewListing(sellerID uuid.UUID, title string, weight, value decimal.Decimal, materials []string, location *valueobject.Location, deadline *time.Time, publish bool) (*Listing, error) {
	if title == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "listing title is required")
	}
	if err := validateListingNumbers(weight, value); err != nil {
		return nil, err
	}
	if deadline != nil && deadline.Before(time.Now()) {
		return nil, apperror.New(apperror.ErrCodeValidation, "bidding deadline cannot be in the past")
	}

	status := valueobject.ListingStatusDraft
	if publish {
		status = valueobject.ListingStatusActive
	}

	now := time.Now()
	return &Listing{
		ID:                uuid.New(),
		SellerID:          sellerID,
		Title:             title,
		FinalWeight:       weight,
		FinalMaterials:    materials,
		FinalValue:        value,
		Location:          location,
		CurrentHighestBid: decimal.Zero,
		BiddingDeadline:   deadline,
		Status:            status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func (l *Listing) IsOwnedBy(userID uuid.UUID) bool {
	return l.SellerID == userID
}

// DeadlinePassed сообщает, что срок торгов истёк к моменту now.
func (l *Listing) DeadlinePassed(now time.Time) bool {
	return l.BiddingDeadline != nil && !now.Before(*l.BiddingDeadline)
}

// ValidateAcceptsBids пропускает только активный лот с непросроченным дедлайном.
func (l *Listing) ValidateAcceptsBids(now time.Time) error {
	if l.Status != valueobject.ListingStatusActive || l.DeadlinePassed(now) {
		return apperror.ErrBiddingEnded
	}
	return nil
}

// RecordBidInteraction учитывает ставку в счётчике и текущем максимуме.
// countsAsNew ложно только для правки суммы уже ожидающей ставки.
func (l *Listing) RecordBidInteraction(amount decimal.Decimal, isNewHighest, countsAsNew bool) {
	if countsAsNew {
		l.TotalBids++
	}
	if isNewHighest {
		l.CurrentHighestBid = amount
	}
	l.UpdatedAt = time.Now()
}

// ForgetBidInteraction откатывает счётчик при отзыве ставки, не уходя ниже нуля.
func (l *Listing) ForgetBidInteraction() {
	if l.TotalBids > 0 {
		l.TotalBids--
	}
	l.UpdatedAt = time.Now()
}

// SetHighestBid выставляет текущий максимум после пересчёта (ноль - ставок нет).
func (l *Listing) SetHighestBid(amount decimal.Decimal) {
	l.CurrentHighestBid = amount
	l.UpdatedAt = time.Now()
}

func (l *Listing) Publish() error {
	if !l.Status.CanTransitionTo(valueobject.ListingStatusActive) {
		return apperror.New(apperror.ErrCodeInvalidState, "listing cannot be published in its current status")
	}
	l.Status = valueobject.ListingStatusActive
	l.UpdatedAt = time.Now()
	return nil
}

// CloseBidding закрывает приём ставок по решению продавца.
func (l *Listing) CloseBidding() error {
	if l.Status != valueobject.ListingStatusActive {
		return apperror.New(apperror.ErrCodeInvalidState, "only an active listing can be closed")
	}
	now := time.Now()
	l.Status = valueobject.ListingStatusBiddingClosed
	l.ClosedAt = &now
	l.UpdatedAt = now
	return nil
}

// CanAcceptWinner - победителя можно выбрать из active, bidding_closed и expired.
func (l *Listing) CanAcceptWinner() bool {
	switch l.Status {
	case valueobject.ListingStatusActive, valueobject.ListingStatusBiddingClosed, valueobject.ListingStatusExpired:
		return true
	}
	return false
}

// AcceptWinner фиксирует победившую ставку и закрывает торги.
func (l *Listing) AcceptWinner(bid *Bid) error {
	if !l.CanAcceptWinner() {
		return apperror.New(apperror.ErrCodeInvalidState, "a winner cannot be accepted in the current listing status")
	}
	now := time.Now()
	bidID := bid.ID
	buyerID := bid.BidderID
	l.AcceptedBidID = &bidID
	l.AcceptedBuyerID = &buyerID
	l.Status = valueobject.ListingStatusBiddingClosed
	l.ClosedAt = &now
	l.UpdatedAt = now
	return nil
}

// Expire переводит просроченный активный лот в expired.
func (l *Listing) Expire() error {
	if l.Status != valueobject.ListingStatusActive {
		return apperror.New(apperror.ErrCodeInvalidState, "only an active listing can expire")
	}
	l.Status = valueobject.ListingStatusExpired
	l.UpdatedAt = time.Now()
	return nil
}
