package valueobject

import "github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"

type ListingStatus string

const (
	ListingStatusDraft         ListingStatus = "draft"
	ListingStatusActive        ListingStatus = "active"
	ListingStatusBiddingClosed ListingStatus = "bidding_closed"
	ListingStatusSold          ListingStatus = "sold"
	ListingStatusCancelled     ListingStatus = "cancelled"
	ListingStatusExpired       ListingStatus = "expired"
)

func (s ListingStatus) IsValid() bool {
	switch s {
	case ListingStatusDraft, ListingStatusActive, ListingStatusBiddingClosed,
		ListingStatusSold, ListingStatusCancelled, ListingStatusExpired:
		return true
	}
	return false
}

// listingTransitions - допустимые переходы лота. bidding_closed -> bidding_closed
// нужен для смены победителя до расчёта.
var listingTransitions = map[ListingStatus][]ListingStatus{
	ListingStatusDraft:         {ListingStatusActive, ListingStatusCancelled},
	ListingStatusActive:        {ListingStatusBiddingClosed, ListingStatusExpired, ListingStatusCancelled},
	ListingStatusBiddingClosed: {ListingStatusBiddingClosed, ListingStatusSold, ListingStatusCancelled},
	ListingStatusExpired:       {ListingStatusBiddingClosed, ListingStatusCancelled},
	ListingStatusSold:          {},
	ListingStatusCancelled:     {},
}

func (s ListingStatus) CanTransitionTo(newStatus ListingStatus) bool {
	for _, status := range listingTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// IsTerminal сообщает, что из статуса больше нет переходов.
func (s ListingStatus) IsTerminal() bool {
	return len(listingTransitions[s]) == 0
}

func NewListingStatus(status string) (ListingStatus, error) {
	s := ListingStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "invalid listing status")
	}
	return s, nil
}

type BidStatus string

const (
	BidStatusPending   BidStatus = "pending"
	BidStatusAccepted  BidStatus = "accepted"
	BidStatusRejected  BidStatus = "rejected"
	BidStatusWithdrawn BidStatus = "withdrawn"
	BidStatusExpired   BidStatus = "expired"
)

func (s BidStatus) IsValid() bool {
	switch s {
	case BidStatusPending, BidStatusAccepted, BidStatusRejected, BidStatusWithdrawn, BidStatusExpired:
		return true
	}
	return false
}

// IsActive - ставка удерживает место участника на лоте.
func (s BidStatus) IsActive() bool {
	return s == BidStatusPending || s == BidStatusAccepted
}

// IsReusable - запись можно переиспользовать при повторной ставке.
func (s BidStatus) IsReusable() bool {
	return s == BidStatusWithdrawn || s == BidStatusRejected || s == BidStatusExpired
}

func NewBidStatus(status string) (BidStatus, error) {
	s := BidStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "invalid bid status")
	}
	return s, nil
}
