package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
)

// Store - хранилище в памяти для локального запуска и тестов. Повторяет
// ограничения схемы PostgreSQL: одна ставка сборщика на лот, не больше
// одной лидирующей и одной принятой ставки, проверка версии лота.
// Транзакция откатывает все записи, сделанные с её ctx. Пока транзакция
// открыта, операции вне неё ждут фиксации или отката и не видят
// промежуточного состояния.
type Store struct {
	// commit держит открытая транзакция. Порядок захвата: commit, затем mu.
	commit     sync.RWMutex
	mu         sync.RWMutex
	listings   map[uuid.UUID]entity.Listing
	bids       map[uuid.UUID]entity.Bid
	collectors map[uuid.UUID]entity.CollectorSnapshot
}

func NewStore() *Store {
	return &Store{
		listings:   make(map[uuid.UUID]entity.Listing),
		bids:       make(map[uuid.UUID]entity.Bid),
		collectors: make(map[uuid.UUID]entity.CollectorSnapshot),
	}
}

type journalKey struct{}

// journal хранит отмену каждой записи транзакции в обратном порядке.
type journal struct {
	undo []func()
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.commit.Lock()
	defer s.commit.Unlock()

	j := &journal{}
	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		s.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(journalKey{}).(*journal)
	return ok
}

// view оформляет операцию вне транзакции. Внутри транзакции commit уже захвачен.
func (s *Store) view(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.commit.RLock()
	return s.commit.RUnlock
}

// record запоминает отмену записи. Вызывается под s.mu.
func record(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}

// SetCollector задаёт репутацию сборщика.
func (s *Store) SetCollector(collectorID uuid.UUID, snapshot entity.CollectorSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collectors[collectorID] = snapshot
}

func (s *Store) Snapshot(ctx context.Context, collectorID uuid.UUID) (entity.CollectorSnapshot, error) {
	defer s.view(ctx)()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectors[collectorID], nil
}

// Listings и Bids возвращают репозитории поверх общего хранилища.
func (s *Store) Listings() *ListingRepository { return &ListingRepository{s: s} }
func (s *Store) Bids() *BidRepository         { return &BidRepository{s: s} }

type ListingRepository struct {
	s *Store
}

func (r *ListingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	defer r.s.view(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.listings[listing.ID]; exists {
		return apperror.New(apperror.ErrCodeConflict, "listing already exists")
	}
	r.s.listings[listing.ID] = *listing
	id := listing.ID
	record(ctx, func() { delete(r.s.listings, id) })
	return nil
}

func (r *ListingRepository) Update(ctx context.Context, listing *entity.Listing) error {
	defer r.s.view(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.listings[listing.ID]
	if !ok {
		return apperror.ErrListingNotFound
	}
	if stored.Version != listing.Version {
		return apperror.New(apperror.ErrCodeConflict, "listing was modified concurrently")
	}

	listing.Version++
	r.s.listings[listing.ID] = *listing
	record(ctx, func() { r.s.listings[stored.ID] = stored })
	return nil
}

func (r *ListingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Listing, error) {
	defer r.s.view(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stored, ok := r.s.listings[id]
	if !ok {
		return nil, apperror.ErrListingNotFound
	}
	return &stored, nil
}

// FindByIDForUpdate совпадает с FindByID: сериализацию даёт блокировка лота.
func (r *ListingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Listing, error) {
	return r.FindByID(ctx, id)
}

func (r *ListingRepository) FindOverdue(ctx context.Context, now time.Time, limit int) ([]*entity.Listing, error) {
	defer r.s.view(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []*entity.Listing
	for _, stored := range r.s.listings {
		if stored.Status == valueobject.ListingStatusActive && stored.DeadlinePassed(now) {
			l := stored
			result = append(result, &l)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].BiddingDeadline.Before(*result[j].BiddingDeadline)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type BidRepository struct {
	s *Store
}

func (r *BidRepository) Create(ctx context.Context, bid *entity.Bid) error {
	defer r.s.view(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, other := range r.s.bids {
		if other.ListingID == bid.ListingID && other.BidderID == bid.BidderID {
			return apperror.ErrActiveBidExists
		}
	}
	if err := r.s.checkFlags(bid); err != nil {
		return err
	}

	r.s.bids[bid.ID] = *bid
	id := bid.ID
	record(ctx, func() { delete(r.s.bids, id) })
	return nil
}

func (r *BidRepository) Update(ctx context.Context, bid *entity.Bid) error {
	defer r.s.view(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.bids[bid.ID]
	if !ok {
		return apperror.ErrBidNotFound
	}
	if err := r.s.checkFlags(bid); err != nil {
		return err
	}

	r.s.bids[bid.ID] = *bid
	record(ctx, func() { r.s.bids[stored.ID] = stored })
	return nil
}

// checkFlags повторяет частичные уникальные индексы схемы. Вызывается под s.mu.
func (s *Store) checkFlags(bid *entity.Bid) error {
	for _, other := range s.bids {
		if other.ID == bid.ID || other.ListingID != bid.ListingID {
			continue
		}
		if bid.IsHighestBid && other.IsHighestBid {
			return apperror.New(apperror.ErrCodeConflict, "bid state conflicts with another bid on this listing")
		}
		if bid.IsAccepted() && other.IsAccepted() {
			return apperror.New(apperror.ErrCodeConflict, "bid state conflicts with another bid on this listing")
		}
	}
	return nil
}

func (r *BidRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Bid, error) {
	defer r.s.view(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stored, ok := r.s.bids[id]
	if !ok {
		return nil, apperror.ErrBidNotFound
	}
	return &stored, nil
}

func (r *BidRepository) FindByListingAndBidder(ctx context.Context, listingID, bidderID uuid.UUID) (*entity.Bid, error) {
	defer r.s.view(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, stored := range r.s.bids {
		if stored.ListingID == listingID && stored.BidderID == bidderID {
			b := stored
			return &b, nil
		}
	}
	return nil, nil
}

func (r *BidRepository) FindByListingID(ctx context.Context, listingID uuid.UUID) ([]*entity.Bid, error) {
	result := r.filter(ctx, func(b entity.Bid) bool {
		return b.ListingID == listingID && b.Status != valueobject.BidStatusWithdrawn
	})
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Amount.Equal(result[j].Amount) {
			return result[i].Amount.GreaterThan(result[j].Amount)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *BidRepository) FindPendingByListingID(ctx context.Context, listingID uuid.UUID) ([]*entity.Bid, error) {
	result := r.filter(ctx, func(b entity.Bid) bool {
		return b.ListingID == listingID && b.IsPending()
	})
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Amount.Equal(result[j].Amount) {
			return result[i].Amount.GreaterThan(result[j].Amount)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *BidRepository) FindHighest(ctx context.Context, listingID uuid.UUID) (*entity.Bid, error) {
	found := r.filter(ctx, func(b entity.Bid) bool {
		return b.ListingID == listingID && b.IsHighestBid
	})
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (r *BidRepository) FindAcceptedByListingID(ctx context.Context, listingID uuid.UUID) (*entity.Bid, error) {
	found := r.filter(ctx, func(b entity.Bid) bool {
		return b.ListingID == listingID && b.IsAccepted()
	})
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (r *BidRepository) ClearHighest(ctx context.Context, listingID uuid.UUID) error {
	defer r.s.view(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, stored := range r.s.bids {
		if stored.ListingID != listingID || !stored.IsHighestBid {
			continue
		}
		previous := stored
		stored.IsHighestBid = false
		r.s.bids[id] = stored
		record(ctx, func() { r.s.bids[previous.ID] = previous })
	}
	return nil
}

func (r *BidRepository) FindByBidderID(ctx context.Context, bidderID uuid.UUID, status *valueobject.BidStatus) ([]entity.BidWithListing, error) {
	defer r.s.view(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []entity.BidWithListing
	for _, stored := range r.s.bids {
		if stored.BidderID != bidderID || (status != nil && stored.Status != *status) {
			continue
		}
		l, ok := r.s.listings[stored.ListingID]
		if !ok {
			continue
		}
		b := stored
		result = append(result, entity.BidWithListing{
			Bid: &b,
			Listing: entity.ListingSummary{
				ID:                l.ID,
				Title:             l.Title,
				Status:            l.Status,
				CurrentHighestBid: l.CurrentHighestBid,
				TotalBids:         l.TotalBids,
				FinalWeight:       l.FinalWeight,
				FinalValue:        l.FinalValue,
				BiddingDeadline:   l.BiddingDeadline,
			},
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Bid.CreatedAt.After(result[j].Bid.CreatedAt)
	})
	return result, nil
}

func (r *BidRepository) filter(ctx context.Context, keep func(entity.Bid) bool) []*entity.Bid {
	defer r.s.view(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []*entity.Bid
	for _, stored := range r.s.bids {
		if keep(stored) {
			b := stored
			result = append(result, &b)
		}
	}
	return result
}
