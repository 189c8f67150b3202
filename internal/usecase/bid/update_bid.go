package bid

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/event"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/repository"
	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/wastemarket-backend/internal/usecase/listing"
)

type UpdateBidUseCase struct {
	guard     *listing.Guard
	listings  repository.ListingRepository
	bids      repository.BidRepository
	publisher event.Publisher
}

func NewUpdateBidUseCase(guard *listing.Guard, listings repository.ListingRepository, bids repository.BidRepository, publisher event.Publisher) *UpdateBidUseCase {
	return &UpdateBidUseCase{
		guard:     guard,
		listings:  listings,
		bids:      bids,
		publisher: publisher,
	}
}

// Execute меняет сумму ожидающей ставки. totalBids не меняется.
func (uc *UpdateBidUseCase) Execute(ctx context.Context, bidID, callerID uuid.UUID, amount decimal.Decimal) (*entity.Bid, error) {
	if err := entity.ValidateBidAmount(amount); err != nil {
		return nil, err
	}

	found, err := uc.bids.FindByID(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if !found.IsOwnedBy(callerID) {
		return nil, apperror.ErrNotBidOwner
	}

	ledger := ledger{bids: uc.bids}

	var (
		revised *entity.Bid
		updated *entity.Listing
	)
	err = uc.guard.Mutate(ctx, found.ListingID, func(ctx context.Context, l *entity.Listing) error {
		bid, err := uc.bids.FindByID(ctx, bidID)
		if err != nil {
			return err
		}
		if !bid.IsPending() {
			return apperror.ErrBidNotPending
		}
		if err := l.ValidateAcceptsBids(time.Now()); err != nil {
			return err
		}

		wasHighest := bid.IsHighestBid
		if err := bid.ChangeAmount(amount); err != nil {
			return err
		}

		switch {
		case wasHighest:
			// Лидер мог снизить сумму ниже другой ставки, поэтому пересчитываем.
			if err := uc.bids.Update(ctx, bid); err != nil {
				return err
			}
			winner, err := ledger.recompute(ctx, l)
			if err != nil {
				return err
			}
			bid.IsHighestBid = winner != nil && winner.ID == bid.ID
		default:
			isNewHighest, err := ledger.outbids(ctx, l, amount)
			if err != nil {
				return err
			}
			if isNewHighest {
				if err := ledger.promote(ctx, bid); err != nil {
					return err
				}
				l.RecordBidInteraction(amount, true, false)
			}
			if err := uc.bids.Update(ctx, bid); err != nil {
				return err
			}
		}

		if err := uc.listings.Update(ctx, l); err != nil {
			return err
		}

		revised = bid
		updated = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.publisher.ToSeller(ctx, updated.SellerID, event.BidUpdated, event.BidPayload{ListingID: updated.ID, Bid: event.NewBidView(revised)})
	uc.publisher.Broadcast(ctx, event.ListingUpdated, event.NewListingUpdatedPayload(updated))

	return revised, nil
}
