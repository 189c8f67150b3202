package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocation_Bounds(t *testing.T) {
	_, err := NewLocation(91, 0)
	assert.Error(t, err)
	_, err = NewLocation(0, -181)
	assert.Error(t, err)

	loc, err := NewLocation(-90, 180)
	require.NoError(t, err)
	assert.Equal(t, -90.0, loc.Latitude)
}

func TestDistanceBetween(t *testing.T) {
	moscow := &Location{Latitude: 55.7558, Longitude: 37.6173}
	spb := &Location{Latitude: 59.9343, Longitude: 30.3351}

	d := DistanceBetween(moscow, spb)
	require.NotNil(t, d)
	assert.InDelta(t, 634, *d, 5)

	same := DistanceBetween(moscow, moscow)
	require.NotNil(t, same)
	assert.Zero(t, *same)

	assert.Nil(t, DistanceBetween(nil, spb))
	assert.Nil(t, DistanceBetween(moscow, nil))
}

func TestStatuses(t *testing.T) {
	_, err := NewBidStatus("winning")
	assert.Error(t, err)
	s, err := NewBidStatus("withdrawn")
	require.NoError(t, err)
	assert.True(t, s.IsReusable())
	assert.False(t, s.IsActive())

	assert.True(t, ListingStatusActive.CanTransitionTo(ListingStatusExpired))
	assert.False(t, ListingStatusSold.CanTransitionTo(ListingStatusActive))
	assert.True(t, ListingStatusCancelled.IsTerminal())
	assert.True(t, ListingStatusBiddingClosed.CanTransitionTo(ListingStatusBiddingClosed))
}
