package listing

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/event"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/repository"
	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
)

type CloseBiddingUseCase struct {
	guard     *Guard
	listings  repository.ListingRepository
	publisher event.Publisher
}

func NewCloseBiddingUseCase(guard *Guard, listings repository.ListingRepository, publisher event.Publisher) *CloseBiddingUseCase {
	return &CloseBiddingUseCase{
		guard:     guard,
		listings:  listings,
		publisher: publisher,
	}
}

// Execute закрывает приём ставок. Доступно только продавцу и только для active.
func (uc *CloseBiddingUseCase) Execute(ctx context.Context, listingID, sellerID uuid.UUID) (*entity.Listing, error) {
	var closed *entity.Listing
	err := uc.guard.Mutate(ctx, listingID, func(ctx context.Context, listing *entity.Listing) error {
		if !listing.IsOwnedBy(sellerID) {
			return apperror.ErrNotListingSeller
		}
		if err := listing.CloseBidding(); err != nil {
			return err
		}
		if err := uc.listings.Update(ctx, listing); err != nil {
			return err
		}
		closed = listing
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.publisher.Broadcast(ctx, event.ListingUpdated, event.NewListingUpdatedPayload(closed))
	return closed, nil
}
