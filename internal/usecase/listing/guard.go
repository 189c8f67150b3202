package listing

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/repository"
)

// Guard выполняет изменение лота под блокировкой лота и в одной транзакции.
// Лот внутри fn прочитан с блокировкой строки.
type Guard struct {
	locker   repository.ListingLocker
	tx       repository.Transactor
	listings repository.ListingRepository
}

func NewGuard(locker repository.ListingLocker, tx repository.Transactor, listings repository.ListingRepository) *Guard {
	return &Guard{
		locker:   locker,
		tx:       tx,
		listings: listings,
	}
}

func (g *Guard) Mutate(ctx context.Context, listingID uuid.UUID, fn func(ctx context.Context, listing *entity.Listing) error) error {
	unlock, err := g.locker.Lock(ctx, listingID)
	if err != nil {
		return err
	}
	defer unlock()

	return g.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		listing, err := g.listings.FindByIDForUpdate(txCtx, listingID)
		if err != nil {
			return err
		}
		return fn(txCtx, listing)
	})
}
