package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
)

// CollectorDirectory читает репутацию сборщиков из таблицы профилей,
// которую ведёт сервис пользователей.
type CollectorDirectory struct {
	db *sqlx.DB
}

func NewCollectorDirectory(db *sqlx.DB) *CollectorDirectory {
	return &CollectorDirectory{db: db}
}

// Snapshot возвращает нулевой снимок для сборщика без профиля.
func (d *CollectorDirectory) Snapshot(ctx context.Context, collectorID uuid.UUID) (entity.CollectorSnapshot, error) {
	var row struct {
		Rating        float64 `db:"rating"`
		CompletedJobs int     `db:"completed_jobs"`
	}
	query := `SELECT rating, completed_jobs FROM collector_profiles WHERE user_id = $1`
	if err := d.db.GetContext(ctx, &row, query, collectorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.CollectorSnapshot{}, nil
		}
		return entity.CollectorSnapshot{}, err
	}
	return entity.CollectorSnapshot{Rating: row.Rating, CompletedJobs: row.CompletedJobs}, nil
}
