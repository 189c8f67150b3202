package persistence

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return sqlx.NewDb(raw, "postgres"), mock
}

func anyArgs(n int) []driver.Value {
	args := make([]driver.Value, n)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	return args
}

var listingCols = []string{
	"id", "seller_id", "title", "final_weight", "final_materials", "final_value", "latitude", "longitude",
	"current_highest_bid", "total_bids", "bidding_deadline", "accepted_bid_id", "accepted_buyer_id",
	"status", "closed_at", "version", "created_at", "updated_at",
}

var bidCols = []string{
	"id", "listing_id", "bidder_id", "amount", "message", "pickup_date", "pickup_time", "has_own_transport",
	"status", "is_highest_bid", "bidder_rating", "bidder_completed_jobs", "distance_km",
	"expires_at", "responded_at", "created_at", "updated_at",
}

func TestListingRepository_UpdateChecksVersion(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepositoryAdapter(db)

	l, err := entity.NewListing(uuid.New(), "Copper wire", decimal.NewFromInt(40), decimal.RequireFromString("1200.50"), []string{"copper"}, nil, nil, true)
	require.NoError(t, err)
	l.Version = 3

	args := append([]driver.Value{l.ID, int64(3)}, anyArgs(14)...)
	update := regexp.QuoteMeta("WHERE id = $1 AND version = $2")

	// Другой запрос успел сохранить лот: строка не найдена по версии.
	mock.ExpectExec(update).WithArgs(args...).WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.Update(context.Background(), l)
	assert.True(t, apperror.IsConflict(err))
	assert.Equal(t, int64(3), l.Version)

	mock.ExpectExec(update).WithArgs(args...).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), l))
	assert.Equal(t, int64(4), l.Version)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_FindByIDScansRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepositoryAdapter(db)

	id, seller, accepted := uuid.New(), uuid.New(), uuid.New()
	created := time.Date(2030, 1, 15, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(listingCols).AddRow(
		id.String(), seller.String(), "Cardboard", "120.500", "{cardboard,paper}", "300.00", 55.75, 37.61,
		"150.25", int64(4), nil, accepted.String(), nil,
		"bidding_closed", created, int64(7), created, created,
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM listings WHERE id = $1 FOR UPDATE")).WithArgs(id).WillReturnRows(rows)

	l, err := repo.FindByIDForUpdate(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, seller, l.SellerID)
	assert.Equal(t, []string{"cardboard", "paper"}, l.FinalMaterials)
	assert.True(t, l.FinalWeight.Equal(decimal.RequireFromString("120.5")))
	assert.True(t, l.CurrentHighestBid.Equal(decimal.RequireFromString("150.25")))
	assert.Equal(t, 4, l.TotalBids)
	assert.Equal(t, valueobject.ListingStatusBiddingClosed, l.Status)
	require.NotNil(t, l.Location)
	assert.Equal(t, 55.75, l.Location.Latitude)
	require.NotNil(t, l.AcceptedBidID)
	assert.Equal(t, accepted, *l.AcceptedBidID)
	assert.Nil(t, l.AcceptedBuyerID)
	assert.Nil(t, l.BiddingDeadline)
	assert.Equal(t, int64(7), l.Version)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_FindByIDMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepositoryAdapter(db)

	mock.ExpectQuery("FROM listings WHERE id").WillReturnRows(sqlmock.NewRows(listingCols))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrListingNotFound)
}

func TestBidRepository_CreateMapsUniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBidRepositoryAdapter(db)

	b, err := entity.NewBid(uuid.New(), uuid.New(), decimal.NewFromInt(10), entity.BidDetails{}, entity.CollectorSnapshot{}, nil)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO bids").WillReturnError(&pq.Error{Code: "23505"})
	err = repo.Create(context.Background(), b)
	assert.True(t, apperror.IsConflict(err))

	mock.ExpectExec("INSERT INTO bids").WillReturnError(errors.New("connection reset"))
	err = repo.Create(context.Background(), b)
	assert.Equal(t, apperror.ErrCodeDatabaseError, apperror.CodeOf(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBidRepository_UpdateMissingBid(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBidRepositoryAdapter(db)

	b, err := entity.NewBid(uuid.New(), uuid.New(), decimal.NewFromInt(10), entity.BidDetails{}, entity.CollectorSnapshot{}, nil)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE bids").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Update(context.Background(), b), apperror.ErrBidNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBidRepository_FindByBidderIDStatusFilter(t *testing.T) {
	bidder, listingID := uuid.New(), uuid.New()
	created := time.Date(2030, 2, 1, 9, 30, 0, 0, time.UTC)
	deadline := created.Add(48 * time.Hour)
	joined := append(append([]string{}, bidCols...),
		"listing_title", "listing_status", "listing_current_highest_bid", "listing_total_bids",
		"listing_final_weight", "listing_final_value", "listing_bidding_deadline")

	rowsFor := func(status string) *sqlmock.Rows {
		return sqlmock.NewRows(joined).AddRow(
			uuid.New().String(), listingID.String(), bidder.String(), "120.50", "tomorrow", nil, "09:00-12:00", true,
			status, false, 4.5, int64(12), 3.2,
			nil, nil, created, created,
			"Scrap metal", "active", "130.00", int64(3),
			"80.000", "900.00", deadline,
		)
	}

	tests := []struct {
		name    string
		status  *valueobject.BidStatus
		wantArg any
	}{
		{name: "no filter", status: nil, wantArg: nil},
		{name: "rejected only", status: ptr(valueobject.BidStatusRejected), wantArg: "rejected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewBidRepositoryAdapter(db)

			status := "pending"
			if tt.status != nil {
				status = string(*tt.status)
			}
			mock.ExpectQuery(regexp.QuoteMeta("($2::text IS NULL OR b.status = $2)")).
				WithArgs(bidder, tt.wantArg).
				WillReturnRows(rowsFor(status))

			items, err := repo.FindByBidderID(context.Background(), bidder, tt.status)
			require.NoError(t, err)
			require.Len(t, items, 1)

			got := items[0]
			assert.Equal(t, bidder, got.Bid.BidderID)
			assert.True(t, got.Bid.Amount.Equal(decimal.RequireFromString("120.5")))
			assert.Equal(t, valueobject.BidStatus(status), got.Bid.Status)
			assert.Equal(t, 12, got.Bid.BidderCompletedJobs)
			require.NotNil(t, got.Bid.DistanceKm)
			assert.Equal(t, 3.2, *got.Bid.DistanceKm)
			assert.Nil(t, got.Bid.PickupDate)

			assert.Equal(t, listingID, got.Listing.ID)
			assert.Equal(t, "Scrap metal", got.Listing.Title)
			assert.Equal(t, valueobject.ListingStatusActive, got.Listing.Status)
			assert.True(t, got.Listing.CurrentHighestBid.Equal(decimal.NewFromInt(130)))
			assert.Equal(t, 3, got.Listing.TotalBids)
			require.NotNil(t, got.Listing.BiddingDeadline)
			assert.True(t, got.Listing.BiddingDeadline.Equal(deadline))

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTransactor_CommitsAndRollsBack(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		db, mock := newMockDB(t)
		tx := NewTransactor(db)
		bids := NewBidRepositoryAdapter(db)
		listingID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE bids SET is_highest_bid = FALSE").WithArgs(listingID).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
			// Вложенный вызов переиспользует открытую транзакцию.
			return tx.WithinTransaction(ctx, func(ctx context.Context) error {
				return bids.ClearHighest(ctx, listingID)
			})
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("domain error rolls back unchanged", func(t *testing.T) {
		db, mock := newMockDB(t)
		tx := NewTransactor(db)

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := tx.WithinTransaction(context.Background(), func(context.Context) error {
			return apperror.ErrBiddingEnded
		})
		assert.ErrorIs(t, err, apperror.ErrBiddingEnded)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver error becomes database error", func(t *testing.T) {
		db, mock := newMockDB(t)
		tx := NewTransactor(db)

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := tx.WithinTransaction(context.Background(), func(context.Context) error {
			return errors.New("deadlock detected")
		})
		assert.Equal(t, apperror.ErrCodeDatabaseError, apperror.CodeOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCollectorDirectory_MissingProfileIsZero(t *testing.T) {
	db, mock := newMockDB(t)
	dir := NewCollectorDirectory(db)
	known, unknown := uuid.New(), uuid.New()

	mock.ExpectQuery("FROM collector_profiles").WithArgs(known).
		WillReturnRows(sqlmock.NewRows([]string{"rating", "completed_jobs"}).AddRow(4.9, int64(31)))
	mock.ExpectQuery("FROM collector_profiles").WithArgs(unknown).
		WillReturnRows(sqlmock.NewRows([]string{"rating", "completed_jobs"}))

	snapshot, err := dir.Snapshot(context.Background(), known)
	require.NoError(t, err)
	assert.Equal(t, entity.CollectorSnapshot{Rating: 4.9, CompletedJobs: 31}, snapshot)

	snapshot, err = dir.Snapshot(context.Background(), unknown)
	require.NoError(t, err)
	assert.Equal(t, entity.CollectorSnapshot{}, snapshot)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func ptr[T any](v T) *T { return &v }
