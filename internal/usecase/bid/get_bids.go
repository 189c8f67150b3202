package bid

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/repository"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/valueobject"
)

type GetListingBidsUseCase struct {
	listings repository.ListingRepository
	bids     repository.BidRepository
}

func NewGetListingBidsUseCase(listings repository.ListingRepository, bids repository.BidRepository) *GetListingBidsUseCase {
	return &GetListingBidsUseCase{listings: listings, bids: bids}
}

func (uc *GetListingBidsUseCase) Execute(ctx context.Context, listingID uuid.UUID) ([]*entity.Bid, error) {
	if _, err := uc.listings.FindByID(ctx, listingID); err != nil {
		return nil, err
	}
	return uc.bids.FindByListingID(ctx, listingID)
}

type GetMyBidsUseCase struct {
	bids repository.BidRepository
}

func NewGetMyBidsUseCase(bids repository.BidRepository) *GetMyBidsUseCase {
	return &GetMyBidsUseCase{bids: bids}
}

// Execute отдаёт ставки сборщика, новые первыми. Пустой status - без фильтра.
func (uc *GetMyBidsUseCase) Execute(ctx context.Context, bidderID uuid.UUID, status string) ([]entity.BidWithListing, error) {
	var filter *valueobject.BidStatus
	if status != "" {
		s, err := valueobject.NewBidStatus(status)
		if err != nil {
			return nil, err
		}
		filter = &s
	}
	return uc.bids.FindByBidderID(ctx, bidderID, filter)
}
