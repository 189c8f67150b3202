package listing

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/repository"
)

type GetListingUseCase struct {
	listings repository.ListingRepository
}

func NewGetListingUseCase(listings repository.ListingRepository) *GetListingUseCase {
	return &GetListingUseCase{listings: listings}
}

func (uc *GetListingUseCase) Execute(ctx context.Context, listingID uuid.UUID) (*entity.Listing, error) {
	return uc.listings.FindByID(ctx, listingID)
}
