package bid

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/event"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/repository"
	"github.com/ignatzorin/wastemarket-backend/internal/infrastructure/lock"
	"github.com/ignatzorin/wastemarket-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/wastemarket-backend/internal/usecase/listing"
)

type recordedEvent struct {
	scope  string
	target uuid.UUID
	name   string
	data   any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) ToSeller(_ context.Context, sellerID uuid.UUID, name string, data any) {
	p.add(recordedEvent{scope: "seller", target: sellerID, name: name, data: data})
}

func (p *recordingPublisher) ToBidder(_ context.Context, bidderID uuid.UUID, name string, data any) {
	p.add(recordedEvent{scope: "bidder", target: bidderID, name: name, data: data})
}

func (p *recordingPublisher) Broadcast(_ context.Context, name string, data any) {
	p.add(recordedEvent{scope: "all", name: name, data: data})
}

func (p *recordingPublisher) add(e recordedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) named(name string) []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []recordedEvent
	for _, e := range p.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type recordingSettlement struct {
	mu       sync.Mutex
	requests []event.SettlementRequest
	err      error
}

func (s *recordingSettlement) RequestSettlement(_ context.Context, req event.SettlementRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.err
}

type testEnv struct {
	store      *memory.Store
	listings   *memory.ListingRepository
	bids       *memory.BidRepository
	publisher  *recordingPublisher
	settlement *recordingSettlement

	place    *PlaceBidUseCase
	update   *UpdateBidUseCase
	withdraw *WithdrawBidUseCase
	accept   *AcceptBidUseCase
	forList  *GetListingBidsUseCase
	mine     *GetMyBidsUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	env := &testEnv{
		store:      store,
		listings:   store.Listings(),
		bids:       store.Bids(),
		publisher:  &recordingPublisher{},
		settlement: &recordingSettlement{},
	}
	env.wire(env.listings, env.bids)
	return env
}

// wire собирает сценарии поверх заданных репозиториев.
func (e *testEnv) wire(listings repository.ListingRepository, bids repository.BidRepository) {
	guard := listing.NewGuard(lock.NewKeyedMutex(), e.store, listings)
	e.place = NewPlaceBidUseCase(guard, listings, bids, e.store, e.publisher)
	e.update = NewUpdateBidUseCase(guard, listings, bids, e.publisher)
	e.withdraw = NewWithdrawBidUseCase(guard, listings, bids, e.publisher)
	e.accept = NewAcceptBidUseCase(guard, listings, bids, e.publisher, e.settlement)
	e.forList = NewGetListingBidsUseCase(listings, bids)
	e.mine = NewGetMyBidsUseCase(bids)
}

func (e *testEnv) activeListing(t *testing.T, sellerID uuid.UUID) *entity.Listing {
	t.Helper()
	l, err := entity.NewListing(sellerID, "Mixed cardboard", dec("120"), dec("300"), []string{"cardboard"}, nil, nil, true)
	require.NoError(t, err)
	require.NoError(t, e.listings.Create(context.Background(), l))
	return l
}

func (e *testEnv) placeBid(t *testing.T, listingID, bidderID uuid.UUID, amount string) *entity.Bid {
	t.Helper()
	b, err := e.place.Execute(context.Background(), PlaceBidInput{
		ListingID: listingID,
		BidderID:  bidderID,
		Amount:    dec(amount),
	})
	require.NoError(t, err)
	// Разносим createdAt, чтобы порядок ставок был однозначным.
	time.Sleep(2 * time.Millisecond)
	return b
}

func (e *testEnv) reloadListing(t *testing.T, id uuid.UUID) *entity.Listing {
	t.Helper()
	l, err := e.listings.FindByID(context.Background(), id)
	require.NoError(t, err)
	return l
}

func (e *testEnv) reloadBid(t *testing.T, id uuid.UUID) *entity.Bid {
	t.Helper()
	b, err := e.bids.FindByID(context.Background(), id)
	require.NoError(t, err)
	return b
}

// highestBids возвращает все ставки лота с флагом лидера.
func (e *testEnv) highestBids(t *testing.T, listingID uuid.UUID) []*entity.Bid {
	t.Helper()
	all, err := e.bids.FindByListingID(context.Background(), listingID)
	require.NoError(t, err)
	var out []*entity.Bid
	for _, b := range all {
		if b.IsHighestBid {
			out = append(out, b)
		}
	}
	return out
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
