package bid

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/event"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/repository"
	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/wastemarket-backend/internal/usecase/listing"
)

type WithdrawBidUseCase struct {
	guard     *listing.Guard
	listings  repository.ListingRepository
	bids      repository.BidRepository
	publisher event.Publisher
}

func NewWithdrawBidUseCase(guard *listing.Guard, listings repository.ListingRepository, bids repository.BidRepository, publisher event.Publisher) *WithdrawBidUseCase {
	return &WithdrawBidUseCase{
		guard:     guard,
		listings:  listings,
		bids:      bids,
		publisher: publisher,
	}
}

func (uc *WithdrawBidUseCase) Execute(ctx context.Context, bidID, callerID uuid.UUID) error {
	found, err := uc.bids.FindByID(ctx, bidID)
	if err != nil {
		return err
	}
	if !found.IsOwnedBy(callerID) {
		return apperror.ErrNotBidOwner
	}

	ledger := ledger{bids: uc.bids}

	var updated *entity.Listing
	err = uc.guard.Mutate(ctx, found.ListingID, func(ctx context.Context, l *entity.Listing) error {
		bid, err := uc.bids.FindByID(ctx, bidID)
		if err != nil {
			return err
		}

		wasHighest := bid.IsHighestBid
		if err := bid.Withdraw(); err != nil {
			return err
		}
		if err := uc.bids.Update(ctx, bid); err != nil {
			return err
		}

		l.ForgetBidInteraction()
		if wasHighest {
			if _, err := ledger.recompute(ctx, l); err != nil {
				return err
			}
		}

		if err := uc.listings.Update(ctx, l); err != nil {
			return err
		}
		updated = l
		return nil
	})
	if err != nil {
		return err
	}

	uc.publisher.Broadcast(ctx, event.ListingUpdated, event.NewListingUpdatedPayload(updated))
	return nil
}
