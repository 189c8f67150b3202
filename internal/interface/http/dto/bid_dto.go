package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/event"
	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/wastemarket-backend/internal/validation"
)

const pickupDateLayout = "2006-01-02"

type PlaceBidRequest struct {
	Amount          *decimal.Decimal `json:"amount"`
	Message         string           `json:"message"`
	PickupDate      *string          `json:"pickup_date"`
	PickupTime      string           `json:"pickup_time"`
	HasOwnTransport bool             `json:"has_own_transport"`
	Location        *LocationRequest `json:"location"`
}

type UpdateBidRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

// BidResponse совпадает с представлением ставки в событиях реального времени.
type BidResponse = event.BidView

type ListingSummaryResponse struct {
	ID                uuid.UUID       `json:"id"`
	Title             string          `json:"title"`
	Status            string          `json:"status"`
	CurrentHighestBid decimal.Decimal `json:"current_highest_bid"`
	TotalBids         int             `json:"total_bids"`
	FinalWeight       decimal.Decimal `json:"final_weight"`
	FinalValue        decimal.Decimal `json:"final_value"`
	BiddingDeadline   *time.Time      `json:"bidding_deadline,omitempty"`
}

type MyBidResponse struct {
	BidResponse
	Listing ListingSummaryResponse `json:"listing"`
}

type AcceptBidResponse struct {
	Bid     BidResponse     `json:"bid"`
	Listing ListingResponse `json:"listing"`
}

// RequireAmount проверяет, что сумма передана.
func RequireAmount(amount *decimal.Decimal) (decimal.Decimal, error) {
	if amount == nil {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "amount is required")
	}
	return *amount, nil
}

// BidDetails собирает необязательные поля ставки.
func (r PlaceBidRequest) BidDetails() (entity.BidDetails, error) {
	if err := validation.ValidateBidMessage(r.Message); err != nil {
		return entity.BidDetails{}, err
	}
	if err := validation.ValidatePickupTime(r.PickupTime); err != nil {
		return entity.BidDetails{}, err
	}

	details := entity.BidDetails{
		Message:         strings.TrimSpace(r.Message),
		PickupTime:      strings.TrimSpace(r.PickupTime),
		HasOwnTransport: r.HasOwnTransport,
	}
	if r.PickupDate != nil && *r.PickupDate != "" {
		date, err := time.Parse(pickupDateLayout, *r.PickupDate)
		if err != nil {
			return entity.BidDetails{}, apperror.Wrap(err, apperror.ErrCodeValidation, "pickup_date must be YYYY-MM-DD")
		}
		details.PickupDate = &date
	}
	return details, nil
}

func ToBidResponse(b *entity.Bid) BidResponse {
	return event.NewBidView(b)
}

func ToBidResponses(bids []*entity.Bid) []BidResponse {
	responses := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		responses = append(responses, ToBidResponse(b))
	}
	return responses
}

func ToMyBidResponses(items []entity.BidWithListing) []MyBidResponse {
	responses := make([]MyBidResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, MyBidResponse{
			BidResponse: ToBidResponse(item.Bid),
			Listing: ListingSummaryResponse{
				ID:                item.Listing.ID,
				Title:             item.Listing.Title,
				Status:            string(item.Listing.Status),
				CurrentHighestBid: item.Listing.CurrentHighestBid,
				TotalBids:         item.Listing.TotalBids,
				FinalWeight:       item.Listing.FinalWeight,
				FinalValue:        item.Listing.FinalValue,
				BiddingDeadline:   item.Listing.BiddingDeadline,
			},
		})
	}
	return responses
}
