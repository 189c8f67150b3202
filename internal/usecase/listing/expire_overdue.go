package listing

import (
	"context"
	"time"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/event"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/repository"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/wastemarket-backend/internal/logger"
	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
)

const overdueBatchSize = 100

type ExpireOverdueUseCase struct {
	guard     *Guard
	listings  repository.ListingRepository
	publisher event.Publisher
	now       func() time.Time
}

func NewExpireOverdueUseCase(guard *Guard, listings repository.ListingRepository, publisher event.Publisher) *ExpireOverdueUseCase {
	return &ExpireOverdueUseCase{
		guard:     guard,
		listings:  listings,
		publisher: publisher,
		now:       time.Now,
	}
}

// Execute переводит в expired активные лоты с истёкшим дедлайном и
// возвращает количество переведённых.
func (uc *ExpireOverdueUseCase) Execute(ctx context.Context) (int, error) {
	now := uc.now()
	overdue, err := uc.listings.FindOverdue(ctx, now, overdueBatchSize)
	if err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to load overdue listings")
	}

	expired := 0
	for _, candidate := range overdue {
		var updated *entity.Listing
		err := uc.guard.Mutate(ctx, candidate.ID, func(ctx context.Context, listing *entity.Listing) error {
			// Между выборкой и блокировкой лот мог закрыться.
			if listing.Status != valueobject.ListingStatusActive || !listing.DeadlinePassed(now) {
				return nil
			}
			if err := listing.Expire(); err != nil {
				return err
			}
			if err := uc.listings.Update(ctx, listing); err != nil {
				return err
			}
			updated = listing
			return nil
		})
		if err != nil {
			logger.ForListing(candidate.ID).WithError(err).Warn("listing: не удалось перевести лот в expired")
			continue
		}
		if updated == nil {
			continue
		}

		expired++
		uc.publisher.Broadcast(ctx, event.ListingUpdated, event.NewListingUpdatedPayload(updated))
	}

	return expired, nil
}
