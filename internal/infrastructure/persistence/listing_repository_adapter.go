package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/wastemarket-backend/internal/repository/common"
)

const listingColumns = `
	id, seller_id, title, final_weight, final_materials, final_value, latitude, longitude,
	current_highest_bid, total_bids, bidding_deadline, accepted_bid_id, accepted_buyer_id,
	status, closed_at, version, created_at, updated_at
`

type ListingRepositoryAdapter struct {
	db *sqlx.DB
}

func NewListingRepositoryAdapter(db *sqlx.DB) *ListingRepositoryAdapter {
	return &ListingRepositoryAdapter{db: db}
}

func (r *ListingRepositoryAdapter) Create(ctx context.Context, listing *entity.Listing) error {
	row := toListingRow(listing)
	query := `
		INSERT INTO listings (` + listingColumns + `)
		VALUES (:id, :seller_id, :title, :final_weight, :final_materials, :final_value, :latitude, :longitude,
		        :current_highest_bid, :total_bids, :bidding_deadline, :accepted_bid_id, :accepted_buyer_id,
		        :status, :closed_at, :version, :created_at, :updated_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, common.Executor(ctx, r.db), query, row); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to create listing")
	}
	return nil
}

func (r *ListingRepositoryAdapter) Update(ctx context.Context, listing *entity.Listing) error {
	query := `
		UPDATE listings
		SET title = $3, final_weight = $4, final_materials = $5, final_value = $6,
		    latitude = $7, longitude = $8, current_highest_bid = $9, total_bids = $10,
		    bidding_deadline = $11, accepted_bid_id = $12, accepted_buyer_id = $13,
		    status = $14, closed_at = $15, version = version + 1, updated_at = $16
		WHERE id = $1 AND version = $2
	`
	row := toListingRow(listing)
	result, err := common.Executor(ctx, r.db).ExecContext(ctx, query,
		row.ID, row.Version, row.Title, row.FinalWeight, row.FinalMaterials, row.FinalValue,
		row.Latitude, row.Longitude, row.CurrentHighestBid, row.TotalBids,
		row.BiddingDeadline, row.AcceptedBidID, row.AcceptedBuyerID,
		row.Status, row.ClosedAt, row.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to update listing")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to check update result")
	}
	if rows == 0 {
		return apperror.Wrap(common.ErrStaleVersion, apperror.ErrCodeConflict, "listing was changed by another request, retry")
	}

	listing.Version++
	return nil
}

func (r *ListingRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Listing, error) {
	return r.findOne(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
}

func (r *ListingRepositoryAdapter) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Listing, error) {
	return r.findOne(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1 FOR UPDATE`, id)
}

func (r *ListingRepositoryAdapter) FindOverdue(ctx context.Context, now time.Time, limit int) ([]*entity.Listing, error) {
	var rows []listingRow
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE status = $1 AND bidding_deadline IS NOT NULL AND bidding_deadline <= $2
		ORDER BY bidding_deadline
		LIMIT $3
	`
	if err := sqlx.SelectContext(ctx, common.Executor(ctx, r.db), &rows, query,
		string(valueobject.ListingStatusActive), now, limit); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to load overdue listings")
	}

	result := make([]*entity.Listing, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

func (r *ListingRepositoryAdapter) findOne(ctx context.Context, query string, id uuid.UUID) (*entity.Listing, error) {
	var row listingRow
	if err := sqlx.GetContext(ctx, common.Executor(ctx, r.db), &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrListingNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to load listing")
	}
	return row.toEntity(), nil
}

type listingRow struct {
	ID                uuid.UUID       `db:"id"`
	SellerID          uuid.UUID       `db:"seller_id"`
	Title             string          `db:"title"`
	FinalWeight       decimal.Decimal `db:"final_weight"`
	FinalMaterials    pq.StringArray  `db:"final_materials"`
	FinalValue        decimal.Decimal `db:"final_value"`
	Latitude          *float64        `db:"latitude"`
	Longitude         *float64        `db:"longitude"`
	CurrentHighestBid decimal.Decimal `db:"current_highest_bid"`
	TotalBids         int             `db:"total_bids"`
	BiddingDeadline   *time.Time      `db:"bidding_deadline"`
	AcceptedBidID     *uuid.UUID      `db:"accepted_bid_id"`
	AcceptedBuyerID   *uuid.UUID      `db:"accepted_buyer_id"`
	Status            string          `db:"status"`
	ClosedAt          *time.Time      `db:"closed_at"`
	Version           int64           `db:"version"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

func toListingRow(l *entity.Listing) listingRow {
	row := listingRow{
		ID:                l.ID,
		SellerID:          l.SellerID,
		Title:             l.Title,
		FinalWeight:       l.FinalWeight,
		FinalMaterials:    pq.StringArray(l.FinalMaterials),
		FinalValue:        l.FinalValue,
		CurrentHighestBid: l.CurrentHighestBid,
		TotalBids:         l.TotalBids,
		BiddingDeadline:   l.BiddingDeadline,
		AcceptedBidID:     l.AcceptedBidID,
		AcceptedBuyerID:   l.AcceptedBuyerID,
		Status:            string(l.Status),
		ClosedAt:          l.ClosedAt,
		Version:           l.Version,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
	if row.FinalMaterials == nil {
		row.FinalMaterials = pq.StringArray{}
	}
	if l.Location != nil {
		lat, lng := l.Location.Latitude, l.Location.Longitude
		row.Latitude = &lat
		row.Longitude = &lng
	}
	return row
}

func (r *listingRow) toEntity() *entity.Listing {
	status, _ := valueobject.NewListingStatus(r.Status)
	l := &entity.Listing{
		ID:                r.ID,
		SellerID:          r.SellerID,
		Title:             r.Title,
		FinalWeight:       r.FinalWeight,
		FinalMaterials:    []string(r.FinalMaterials),
		FinalValue:        r.FinalValue,
		CurrentHighestBid: r.CurrentHighestBid,
		TotalBids:         r.TotalBids,
		BiddingDeadline:   r.BiddingDeadline,
		AcceptedBidID:     r.AcceptedBidID,
		AcceptedBuyerID:   r.AcceptedBuyerID,
		Status:            status,
		ClosedAt:          r.ClosedAt,
		Version:           r.Version,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if r.Latitude != nil && r.Longitude != nil {
		l.Location = &valueobject.Location{Latitude: *r.Latitude, Longitude: *r.Longitude}
	}
	return l
}
