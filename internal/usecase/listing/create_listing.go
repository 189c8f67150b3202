package listing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/event"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/repository"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
)

type CreateListingInput struct {
	SellerID        uuid.UUID
	Title           string
	FinalWeight     decimal.Decimal
	FinalMaterials  []string
	FinalValue      decimal.Decimal
	Location        *valueobject.Location
	BiddingDeadline *time.Time
	Publish         bool
}

type CreateListingUseCase struct {
	listings  repository.ListingRepository
	publisher event.Publisher
}

func NewCreateListingUseCase(listings repository.ListingRepository, publisher event.Publisher) *CreateListingUseCase {
	return &CreateListingUseCase{
		listings:  listings,
		publisher: publisher,
	}
}

func (uc *CreateListingUseCase) Execute(ctx context.Context, input CreateListingInput) (*entity.Listing, error) {
	listing, err := entity.NewListing(
		input.SellerID,
		input.Title,
		input.FinalWeight,
		input.FinalValue,
		input.FinalMaterials,
		input.Location,
		input.BiddingDeadline,
		input.Publish,
	)
	if err != nil {
		return nil, err
	}

	if err := uc.listings.Create(ctx, listing); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to create listing")
	}

	if listing.Status == valueobject.ListingStatusActive {
		uc.publisher.Broadcast(ctx, event.ListingNew, event.ListingNewPayload{Listing: event.NewListingView(listing)})
	}

	return listing, nil
}

type PublishListingUseCase struct {
	guard     *Guard
	listings  repository.ListingRepository
	publisher event.Publisher
}

func NewPublishListingUseCase(guard *Guard, listings repository.ListingRepository, publisher event.Publisher) *PublishListingUseCase {
	return &PublishListingUseCase{
		guard:     guard,
		listings:  listings,
		publisher: publisher,
	}
}

// Execute переводит черновик в active и объявляет лот всем сборщикам.
func (uc *PublishListingUseCase) Execute(ctx context.Context, listingID, sellerID uuid.UUID) (*entity.Listing, error) {
	var published *entity.Listing
	err := uc.guard.Mutate(ctx, listingID, func(ctx context.Context, listing *entity.Listing) error {
		if !listing.IsOwnedBy(sellerID) {
			return apperror.ErrNotListingSeller
		}
		if err := listing.Publish(); err != nil {
			return err
		}
		if err := uc.listings.Update(ctx, listing); err != nil {
			return err
		}
		published = listing
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.publisher.Broadcast(ctx, event.ListingNew, event.ListingNewPayload{Listing: event.NewListingView(published)})
	return published, nil
}
