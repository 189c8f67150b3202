package bid

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/event"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/repository"
	"github.com/ignatzorin/wastemarket-backend/internal/logger"
	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/wastemarket-backend/internal/usecase/listing"
)

type AcceptBidUseCase struct {
	guard      *listing.Guard
	listings   repository.ListingRepository
	bids       repository.BidRepository
	publisher  event.Publisher
	settlement event.SettlementTrigger
}

func NewAcceptBidUseCase(
	guard *listing.Guard,
	listings repository.ListingRepository,
	bids repository.BidRepository,
	publisher event.Publisher,
	settlement event.SettlementTrigger,
) *AcceptBidUseCase {
	return &AcceptBidUseCase{
		guard:      guard,
		listings:   listings,
		bids:       bids,
		publisher:  publisher,
		settlement: settlement,
	}
}

// Execute принимает ставку: прежний победитель и все ожидающие ставки лота
// отклоняются, лот закрывается. Всё в одной транзакции.
func (uc *AcceptBidUseCase) Execute(ctx context.Context, bidID, sellerID uuid.UUID) (*entity.Bid, *entity.Listing, error) {
	found, err := uc.bids.FindByID(ctx, bidID)
	if err != nil {
		return nil, nil, err
	}

	var (
		accepted *entity.Bid
		closed   *entity.Listing
	)
	err = uc.guard.Mutate(ctx, found.ListingID, func(ctx context.Context, l *entity.Listing) error {
		if !l.IsOwnedBy(sellerID) {
			return apperror.ErrNotListingSeller
		}
		if !l.CanAcceptWinner() {
			return apperror.New(apperror.ErrCodeInvalidState, "listing does not allow accepting bids")
		}

		bid, err := uc.bids.FindByID(ctx, bidID)
		if err != nil {
			return err
		}

		now := time.Now()

		if l.AcceptedBidID != nil && *l.AcceptedBidID != bid.ID {
			previous, err := uc.bids.FindByID(ctx, *l.AcceptedBidID)
			if err != nil && !apperror.IsNotFound(err) {
				return err
			}
			if previous != nil && previous.IsAccepted() {
				if err := previous.Reject(now); err != nil {
					return err
				}
				if err := uc.bids.Update(ctx, previous); err != nil {
					return err
				}
			}
		}

		if err := bid.Accept(now); err != nil {
			return err
		}

		siblings, err := uc.bids.FindPendingByListingID(ctx, l.ID)
		if err != nil {
			return err
		}
		for _, sibling := range siblings {
			if sibling.ID == bid.ID {
				continue
			}
			if err := sibling.Reject(now); err != nil {
				return err
			}
			if err := uc.bids.Update(ctx, sibling); err != nil {
				return err
			}
		}

		// Живой остаётся только принятая ставка, она же и лидер.
		if err := uc.bids.ClearHighest(ctx, l.ID); err != nil {
			return err
		}
		bid.IsHighestBid = true
		if err := uc.bids.Update(ctx, bid); err != nil {
			return err
		}
		l.SetHighestBid(bid.Amount)

		if err := l.AcceptWinner(bid); err != nil {
			return err
		}
		if err := uc.listings.Update(ctx, l); err != nil {
			return err
		}

		accepted = bid
		closed = l
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	uc.publisher.Broadcast(ctx, event.ListingUpdated, event.NewListingUpdatedPayload(closed))
	uc.publisher.ToBidder(ctx, accepted.BidderID, event.BidAccepted, event.BidAcceptedPayload{ListingID: closed.ID, BidID: accepted.ID})

	req := event.SettlementRequest{
		ListingID:  closed.ID,
		BidID:      accepted.ID,
		SellerID:   closed.SellerID,
		BuyerID:    accepted.BidderID,
		Amount:     accepted.Amount,
		PickupDate: accepted.PickupDate,
		PickupTime: accepted.PickupTime,
		AcceptedAt: *accepted.RespondedAt,
	}
	if err := uc.settlement.RequestSettlement(ctx, req); err != nil {
		// Ставка уже принята, расчёт подхватит повторная отправка снаружи.
		logger.ForListing(closed.ID).WithFields(logrus.Fields{
			"bid_id": accepted.ID,
			"error":  err.Error(),
		}).Error("bid: не удалось передать сделку в расчёт")
	}

	return accepted, closed, nil
}
