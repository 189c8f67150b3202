package bid

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/event"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
)

func TestWithdrawBid_LeaderWithdrawalRestoresRunnerUp(t *testing.T) {
	env := newTestEnv(t)
	bidderA, bidderB := uuid.New(), uuid.New()
	l := env.activeListing(t, uuid.New())

	a := env.placeBid(t, l.ID, bidderA, "100")
	b := env.placeBid(t, l.ID, bidderB, "90")
	_, err := env.update.Execute(context.Background(), b.ID, bidderB, dec("150"))
	require.NoError(t, err)

	require.NoError(t, env.withdraw.Execute(context.Background(), b.ID, bidderB))

	stored := env.reloadListing(t, l.ID)
	assert.Equal(t, 1, stored.TotalBids)
	assert.True(t, stored.CurrentHighestBid.Equal(dec("100")))
	assert.True(t, env.reloadBid(t, a.ID).IsHighestBid)

	withdrawn := env.reloadBid(t, b.ID)
	assert.Equal(t, valueobject.BidStatusWithdrawn, withdrawn.Status)
	assert.False(t, withdrawn.IsHighestBid)
}

func TestWithdrawBid_SoleBidResetsHighest(t *testing.T) {
	env := newTestEnv(t)
	bidder := uuid.New()
	l := env.activeListing(t, uuid.New())
	a := env.placeBid(t, l.ID, bidder, "100")

	require.NoError(t, env.withdraw.Execute(context.Background(), a.ID, bidder))

	stored := env.reloadListing(t, l.ID)
	assert.True(t, stored.CurrentHighestBid.IsZero())
	assert.Equal(t, 0, stored.TotalBids)
	assert.Empty(t, env.highestBids(t, l.ID))
}

func TestWithdrawBid_NonLeaderKeepsHighest(t *testing.T) {
	env := newTestEnv(t)
	bidderB := uuid.New()
	l := env.activeListing(t, uuid.New())
	a := env.placeBid(t, l.ID, uuid.New(), "100")
	b := env.placeBid(t, l.ID, bidderB, "90")

	require.NoError(t, env.withdraw.Execute(context.Background(), b.ID, bidderB))

	assert.True(t, env.reloadBid(t, a.ID).IsHighestBid)
	stored := env.reloadListing(t, l.ID)
	assert.True(t, stored.CurrentHighestBid.Equal(dec("100")))
	assert.Equal(t, 1, stored.TotalBids)
}

func TestWithdrawBid_TieGoesToEarliestBid(t *testing.T) {
	env := newTestEnv(t)
	bidderC := uuid.New()
	l := env.activeListing(t, uuid.New())

	early := env.placeBid(t, l.ID, uuid.New(), "100")
	late := env.placeBid(t, l.ID, uuid.New(), "100")
	c := env.placeBid(t, l.ID, bidderC, "150")

	require.NoError(t, env.withdraw.Execute(context.Background(), c.ID, bidderC))

	assert.True(t, env.reloadBid(t, early.ID).IsHighestBid)
	assert.False(t, env.reloadBid(t, late.ID).IsHighestBid)
}

func TestWithdrawBid_TwiceFailsCleanly(t *testing.T) {
	env := newTestEnv(t)
	bidder := uuid.New()
	l := env.activeListing(t, uuid.New())
	env.placeBid(t, l.ID, uuid.New(), "50")
	a := env.placeBid(t, l.ID, bidder, "100")
	require.NoError(t, env.withdraw.Execute(context.Background(), a.ID, bidder))

	err := env.withdraw.Execute(context.Background(), a.ID, bidder)

	assert.True(t, apperror.IsInvalidState(err))
	// Счётчик не ушёл ниже после повторной попытки.
	assert.Equal(t, 1, env.reloadListing(t, l.ID).TotalBids)
}

func TestWithdrawBid_OnlyOwner(t *testing.T) {
	env := newTestEnv(t)
	l := env.activeListing(t, uuid.New())
	a := env.placeBid(t, l.ID, uuid.New(), "100")

	err := env.withdraw.Execute(context.Background(), a.ID, uuid.New())

	assert.True(t, apperror.IsForbidden(err))
	assert.Equal(t, valueobject.BidStatusPending, env.reloadBid(t, a.ID).Status)
}

func TestWithdrawBid_UnknownBid(t *testing.T) {
	env := newTestEnv(t)

	err := env.withdraw.Execute(context.Background(), uuid.New(), uuid.New())

	assert.True(t, apperror.IsNotFound(err))
}

func TestWithdrawBid_BroadcastsListingUpdate(t *testing.T) {
	env := newTestEnv(t)
	bidder := uuid.New()
	l := env.activeListing(t, uuid.New())
	a := env.placeBid(t, l.ID, bidder, "100")
	env.publisher.reset()

	require.NoError(t, env.withdraw.Execute(context.Background(), a.ID, bidder))

	updates := env.publisher.named(event.ListingUpdated)
	require.Len(t, updates, 1)
	payload := updates[0].data.(event.ListingUpdatedPayload)
	assert.Equal(t, 0, payload.Updates.TotalBids)
	assert.True(t, payload.Updates.CurrentHighestBid.IsZero())
}
