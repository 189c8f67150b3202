package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/wastemarket-backend/internal/repository/common"
)

const bidColumns = `
	id, listing_id, bidder_id, amount, message, pickup_date, pickup_time, has_own_transport,
	status, is_highest_bid, bidder_rating, bidder_completed_jobs, distance_km,
	expires_at, responded_at, created_at, updated_at
`

type BidRepositoryAdapter struct {
	db *sqlx.DB
}

func NewBidRepositoryAdapter(db *sqlx.DB) *BidRepositoryAdapter {
	return &BidRepositoryAdapter{db: db}
}

func (r *BidRepositoryAdapter) Create(ctx context.Context, bid *entity.Bid) error {
	query := `
		INSERT INTO bids (` + bidColumns + `)
		VALUES (:id, :listing_id, :bidder_id, :amount, :message, :pickup_date, :pickup_time, :has_own_transport,
		        :status, :is_highest_bid, :bidder_rating, :bidder_completed_jobs, :distance_km,
		        :expires_at, :responded_at, :created_at, :updated_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, common.Executor(ctx, r.db), query, toBidRow(bid)); err != nil {
		if common.IsUniqueViolation(err) {
			return apperror.Wrap(err, apperror.ErrCodeConflict, apperror.ErrActiveBidExists.Message)
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to create bid")
	}
	return nil
}

func (r *BidRepositoryAdapter) Update(ctx context.Context, bid *entity.Bid) error {
	query := `
		UPDATE bids
		SET amount = :amount, message = :message, pickup_date = :pickup_date, pickup_time = :pickup_time,
		    has_own_transport = :has_own_transport, status = :status, is_highest_bid = :is_highest_bid,
		    bidder_rating = :bidder_rating, bidder_completed_jobs = :bidder_completed_jobs,
		    distance_km = :distance_km, expires_at = :expires_at, responded_at = :responded_at,
		    updated_at = :updated_at
		WHERE id = :id
	`
	result, err := sqlx.NamedExecContext(ctx, common.Executor(ctx, r.db), query, toBidRow(bid))
	if err != nil {
		if common.IsUniqueViolation(err) {
			return apperror.Wrap(err, apperror.ErrCodeConflict, "bid state conflicts with another bid on this listing")
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to update bid")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to check update result")
	}
	if rows == 0 {
		return apperror.ErrBidNotFound
	}
	return nil
}

func (r *BidRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Bid, error) {
	var row bidRow
	query := `SELECT ` + bidColumns + ` FROM bids WHERE id = $1`
	if err := sqlx.GetContext(ctx, common.Executor(ctx, r.db), &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrBidNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to load bid")
	}
	return row.toEntity(), nil
}

func (r *BidRepositoryAdapter) FindByListingAndBidder(ctx context.Context, listingID, bidderID uuid.UUID) (*entity.Bid, error) {
	var row bidRow
	query := `SELECT ` + bidColumns + ` FROM bids WHERE listing_id = $1 AND bidder_id = $2`
	if err := sqlx.GetContext(ctx, common.Executor(ctx, r.db), &row, query, listingID, bidderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to load bid")
	}
	return row.toEntity(), nil
}

func (r *BidRepositoryAdapter) FindByListingID(ctx context.Context, listingID uuid.UUID) ([]*entity.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE listing_id = $1 AND status <> $2
		ORDER BY amount DESC, created_at DESC
	`
	return r.selectBids(ctx, query, listingID, string(valueobject.BidStatusWithdrawn))
}

func (r *BidRepositoryAdapter) FindPendingByListingID(ctx context.Context, listingID uuid.UUID) ([]*entity.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE listing_id = $1 AND status = $2
		ORDER BY amount DESC, created_at ASC
	`
	return r.selectBids(ctx, query, listingID, string(valueobject.BidStatusPending))
}

func (r *BidRepositoryAdapter) FindHighest(ctx context.Context, listingID uuid.UUID) (*entity.Bid, error) {
	var row bidRow
	query := `SELECT ` + bidColumns + ` FROM bids WHERE listing_id = $1 AND is_highest_bid LIMIT 1`
	if err := sqlx.GetContext(ctx, common.Executor(ctx, r.db), &row, query, listingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to load highest bid")
	}
	return row.toEntity(), nil
}

func (r *BidRepositoryAdapter) FindAcceptedByListingID(ctx context.Context, listingID uuid.UUID) (*entity.Bid, error) {
	var row bidRow
	query := `SELECT ` + bidColumns + ` FROM bids WHERE listing_id = $1 AND status = $2 LIMIT 1`
	if err := sqlx.GetContext(ctx, common.Executor(ctx, r.db), &row, query, listingID, string(valueobject.BidStatusAccepted)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to load accepted bid")
	}
	return row.toEntity(), nil
}

func (r *BidRepositoryAdapter) ClearHighest(ctx context.Context, listingID uuid.UUID) error {
	query := `UPDATE bids SET is_highest_bid = FALSE WHERE listing_id = $1 AND is_highest_bid`
	if _, err := common.Executor(ctx, r.db).ExecContext(ctx, query, listingID); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to reset highest bid")
	}
	return nil
}

func (r *BidRepositoryAdapter) FindByBidderID(ctx context.Context, bidderID uuid.UUID, status *valueobject.BidStatus) ([]entity.BidWithListing, error) {
	query := `
		SELECT b.id, b.listing_id, b.bidder_id, b.amount, b.message, b.pickup_date, b.pickup_time,
		       b.has_own_transport, b.status, b.is_highest_bid, b.bidder_rating, b.bidder_completed_jobs,
		       b.distance_km, b.expires_at, b.responded_at, b.created_at, b.updated_at,
		       l.title AS listing_title, l.status AS listing_status,
		       l.current_highest_bid AS listing_current_highest_bid, l.total_bids AS listing_total_bids,
		       l.final_weight AS listing_final_weight, l.final_value AS listing_final_value,
		       l.bidding_deadline AS listing_bidding_deadline
		FROM bids b
		JOIN listings l ON l.id = b.listing_id
		WHERE b.bidder_id = $1 AND ($2::text IS NULL OR b.status = $2)
		ORDER BY b.created_at DESC
	`
	var statusArg *string
	if status != nil {
		s := string(*status)
		statusArg = &s
	}

	var rows []bidWithListingRow
	if err := sqlx.SelectContext(ctx, common.Executor(ctx, r.db), &rows, query, bidderID, statusArg); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to load bids")
	}

	result := make([]entity.BidWithListing, len(rows))
	for i := range rows {
		listingStatus, _ := valueobject.NewListingStatus(rows[i].ListingStatus)
		result[i] = entity.BidWithListing{
			Bid: rows[i].bidRow.toEntity(),
			Listing: entity.ListingSummary{
				ID:                rows[i].ListingID,
				Title:             rows[i].ListingTitle,
				Status:            listingStatus,
				CurrentHighestBid: rows[i].ListingCurrentHighestBid,
				TotalBids:         rows[i].ListingTotalBids,
				FinalWeight:       rows[i].ListingFinalWeight,
				FinalValue:        rows[i].ListingFinalValue,
				BiddingDeadline:   rows[i].ListingBiddingDeadline,
			},
		}
	}
	return result, nil
}

func (r *BidRepositoryAdapter) selectBids(ctx context.Context, query string, args ...any) ([]*entity.Bid, error) {
	var rows []bidRow
	if err := sqlx.SelectContext(ctx, common.Executor(ctx, r.db), &rows, query, args...); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to load bids")
	}
	result := make([]*entity.Bid, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

type bidRow struct {
	ID                  uuid.UUID       `db:"id"`
	ListingID           uuid.UUID       `db:"listing_id"`
	BidderID            uuid.UUID       `db:"bidder_id"`
	Amount              decimal.Decimal `db:"amount"`
	Message             string          `db:"message"`
	PickupDate          *time.Time      `db:"pickup_date"`
	PickupTime          string          `db:"pickup_time"`
	HasOwnTransport     bool            `db:"has_own_transport"`
	Status              string          `db:"status"`
	IsHighestBid        bool            `db:"is_highest_bid"`
	BidderRating        float64         `db:"bidder_rating"`
	BidderCompletedJobs int             `db:"bidder_completed_jobs"`
	DistanceKm          *float64        `db:"distance_km"`
	ExpiresAt           *time.Time      `db:"expires_at"`
	RespondedAt         *time.Time      `db:"responded_at"`
	CreatedAt           time.Time       `db:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at"`
}

type bidWithListingRow struct {
	bidRow
	ListingTitle             string          `db:"listing_title"`
	ListingStatus            string          `db:"listing_status"`
	ListingCurrentHighestBid decimal.Decimal `db:"listing_current_highest_bid"`
	ListingTotalBids         int             `db:"listing_total_bids"`
	ListingFinalWeight       decimal.Decimal `db:"listing_final_weight"`
	ListingFinalValue        decimal.Decimal `db:"listing_final_value"`
	ListingBiddingDeadline   *time.Time      `db:"listing_bidding_deadline"`
}

func toBidRow(b *entity.Bid) bidRow {
	return bidRow{
		ID:                  b.ID,
		ListingID:           b.ListingID,
		BidderID:            b.BidderID,
		Amount:              b.Amount,
		Message:             b.Message,
		PickupDate:          b.PickupDate,
		PickupTime:          b.PickupTime,
		HasOwnTransport:     b.HasOwnTransport,
		Status:              string(b.Status),
		IsHighestBid:        b.IsHighestBid,
		BidderRating:        b.BidderRating,
		BidderCompletedJobs: b.BidderCompletedJobs,
		DistanceKm:          b.DistanceKm,
		ExpiresAt:           b.ExpiresAt,
		RespondedAt:         b.RespondedAt,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

func (r *bidRow) toEntity() *entity.Bid {
	status, _ := valueobject.NewBidStatus(r.Status)
	return &entity.Bid{
		ID:                  r.ID,
		ListingID:           r.ListingID,
		BidderID:            r.BidderID,
		Amount:              r.Amount,
		Message:             r.Message,
		PickupDate:          r.PickupDate,
		PickupTime:          r.PickupTime,
		HasOwnTransport:     r.HasOwnTransport,
		Status:              status,
		IsHighestBid:        r.IsHighestBid,
		BidderRating:        r.BidderRating,
		BidderCompletedJobs: r.BidderCompletedJobs,
		DistanceKm:          r.DistanceKm,
		ExpiresAt:           r.ExpiresAt,
		RespondedAt:         r.RespondedAt,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}
