package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
)

// Transactor выполняет fn в одной транзакции. Репозитории, вызванные с ctx
// из fn, работают внутри неё.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ListingLocker сериализует изменения одного лота.
type ListingLocker interface {
	Lock(ctx context.Context, listingID uuid.UUID) (unlock func(), err error)
}

// CollectorDirectory отдаёт репутацию сборщика для снимка в ставке.
type CollectorDirectory interface {
	Snapshot(ctx context.Context, collectorID uuid.UUID) (entity.CollectorSnapshot, error)
}
