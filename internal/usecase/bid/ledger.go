package bid

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/repository"
)

// ledger содержит правила флага лидера. Все методы вызываются внутри
// listing.Guard.Mutate, поэтому сброс и установка флага коммитятся вместе.
type ledger struct {
	bids repository.BidRepository
}

// outbids решает, становится ли сумма новым максимумом: строго больше
// текущего или лидера на лоте ещё нет.
func (l ledger) outbids(ctx context.Context, listing *entity.Listing, amount decimal.Decimal) (bool, error) {
	current, err := l.bids.FindHighest(ctx, listing.ID)
	if err != nil {
		return false, err
	}
	if current == nil {
		return true, nil
	}
	return amount.GreaterThan(listing.CurrentHighestBid), nil
}

// promote снимает флаг со всех ставок лота и ставит его bid.
// Саму ставку вызывающий сохраняет после promote.
func (l ledger) promote(ctx context.Context, bid *entity.Bid) error {
	if err := l.bids.ClearHighest(ctx, bid.ListingID); err != nil {
		return err
	}
	bid.IsHighestBid = true
	return nil
}

// recompute выбирает лидера среди ожидающих ставок: наибольшая сумма,
// при равенстве - более ранняя. Возвращает nil, если ожидающих нет.
func (l ledger) recompute(ctx context.Context, listing *entity.Listing) (*entity.Bid, error) {
	pending, err := l.bids.FindPendingByListingID(ctx, listing.ID)
	if err != nil {
		return nil, err
	}

	var winner *entity.Bid
	for _, candidate := range pending {
		if winner == nil ||
			candidate.Amount.GreaterThan(winner.Amount) ||
			(candidate.Amount.Equal(winner.Amount) && candidate.CreatedAt.Before(winner.CreatedAt)) {
			winner = candidate
		}
	}

	if err := l.bids.ClearHighest(ctx, listing.ID); err != nil {
		return nil, err
	}

	if winner == nil {
		listing.SetHighestBid(decimal.Zero)
		return nil, nil
	}

	winner.IsHighestBid = true
	if err := l.bids.Update(ctx, winner); err != nil {
		return nil, err
	}
	listing.SetHighestBid(winner.Amount)
	return winner, nil
}
