package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
)

type ListingRepository interface {
	Create(ctx context.Context, listing *entity.Listing) error
	// Update сохраняет лот, если его версия не изменилась с момента чтения,
	// и увеличивает версию.
	Update(ctx context.Context, listing *entity.Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Listing, error)
	// FindByIDForUpdate читает лот с блокировкой строки до конца транзакции.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Listing, error)
	FindOverdue(ctx context.Context, now time.Time, limit int) ([]*entity.Listing, error)
}
