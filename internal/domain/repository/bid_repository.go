package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/valueobject"
)

type BidRepository interface {
	Create(ctx context.Context, bid *entity.Bid) error
	Update(ctx context.Context, bid *entity.Bid) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Bid, error)
	// FindByListingAndBidder возвращает nil без ошибки, если записи нет.
	FindByListingAndBidder(ctx context.Context, listingID, bidderID uuid.UUID) (*entity.Bid, error)
	// FindByListingID отдаёт все неотозванные ставки: сумма по убыванию, затем новые раньше.
	FindByListingID(ctx context.Context, listingID uuid.UUID) ([]*entity.Bid, error)
	FindPendingByListingID(ctx context.Context, listingID uuid.UUID) ([]*entity.Bid, error)
	// FindHighest возвращает nil без ошибки, если помеченной ставки нет.
	FindHighest(ctx context.Context, listingID uuid.UUID) (*entity.Bid, error)
	FindAcceptedByListingID(ctx context.Context, listingID uuid.UUID) (*entity.Bid, error)
	// ClearHighest снимает флаг лидера со всех ставок лота.
	ClearHighest(ctx context.Context, listingID uuid.UUID) error
	FindByBidderID(ctx context.Context, bidderID uuid.UUID, status *valueobject.BidStatus) ([]entity.BidWithListing, error)
}
