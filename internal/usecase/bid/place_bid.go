package bid

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
	"github.com/ignatzorin/wastemarket-backend/internal/usecase/listing"
)

type PlaceBidInput struct {
	ListingID      uuid.UUID
	BidderID       uuid.UUID
	Amount         decimal.Decimal
	Details        entity.BidDetails
	BidderLocation *valueobject.Location
}

type PlaceBidUseCase struct {
	guard      *listing.Guard
	listings   repository.ListingRepository
	bids       repository.BidRepository
	collectors repository.CollectorDirectory
	publisher  event.Publisher
}

func NewPlaceBidUseCase(
	guard *listing.Guard,
	listings repository.ListingRepository,
	bids repository.BidRepository,
	collectors repository.CollectorDirectory,
	publisher event.Publisher,
) *PlaceBidUseCase {
	return &PlaceBidUseCase{
		guard:      guard,
		listings:   listings,
		bids:       bids,
		collectors: collectors,
		publisher:  publisher,
	}
}

// Execute создаёт ставку или переиспользует отозванную/отклонённую запись
// того же сборщика на этом лоте.
func (uc *PlaceBidUseCase) Execute(ctx context.Context, input PlaceBidInput) (*entity.Bid, error) {
	if err := entity.ValidateBidAmount(input.Amount); err != nil {
		return nil, err
	}

	snapshot, err := uc.collectors.Snapshot(ctx, input.BidderID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to load collector profile")
	}

	ledger := ledger{bids: uc.bids}

	var (
		placed  *entity.Bid
		updated *entity.Listing
	)
	err = uc.guard.Mutate(ctx, input.ListingID, func(ctx context.Context, l *entity.Listing) error {
		if err := l.ValidateAcceptsBids(time.Now()); err != nil {
			return err
		}
		if l.IsOwnedBy(input.BidderID) {
			return apperror.New(apperror.ErrCodeForbidden, "you cannot bid on your own listing")
		}

		distance := valueobject.DistanceBetween(input.BidderLocation, l.Location)

		existing, err := uc.bids.FindByListingAndBidder(ctx, l.ID, input.BidderID)
		if err != nil {
			return err
		}

		bid := existing
		if bid != nil {
			if err := bid.Reactivate(input.Amount, input.Details, snapshot, distance); err != nil {
				return err
			}
		} else {
			bid, err = entity.NewBid(l.ID, input.BidderID, input.Amount, input.Details, snapshot, distance)
			if err != nil {
				return err
			}
		}

		isNewHighest, err := ledger.outbids(ctx, l, bid.Amount)
		if err != nil {
			return err
		}
		if isNewHighest {
			if err := ledger.promote(ctx, bid); err != nil {
				return err
			}
		}

		if existing != nil {
			err = uc.bids.Update(ctx, bid)
		} else {
			err = uc.bids.Create(ctx, bid)
		}
		if err != nil {
			return err
		}

		// Повторная ставка после отзыва тоже считается: totalBids - счётчик событий.
		l.RecordBidInteraction(bid.Amount, isNewHighest, true)
		if err := uc.listings.Update(ctx, l); err != nil {
			return err
		}

		placed = bid
		updated = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.publisher.ToSeller(ctx, updated.SellerID, event.BidNew, event.BidPayload{ListingID: updated.ID, Bid: event.NewBidView(placed)})
	uc.publisher.Broadcast(ctx, event.ListingUpdated, event.NewListingUpdatedPayload(updated))

	return placed, nil
}
