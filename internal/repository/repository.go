package repository

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"auction-ledger/internal/biddingerrors"
	model "auction-ledger/internal/models"
	"auction-ledger/internal/ranking"
)

// AuctionStore holds auction metadata and owns status transitions
type AuctionStore interface {
	CreateAuction(ctx context.Context, auction model.Auction) error
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	ListAuctions(ctx context.Context, filter model.AuctionFilter) ([]model.Auction, error)
	TransitionStatus(ctx context.Context, auctionID string, from, to model.AuctionStatus) error
	ListDueAuctions(ctx context.Context, now time.Time) ([]string, error)
}

// BidLedger is the append-only record of bids and the only write path for them
type BidLedger interface {
	PlaceBid(ctx context.Context, bid model.Bid) error
	GetCurrentHighest(ctx context.Context, auctionID string) (model.Bid, error)
	ListBids(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetAuctionsByBidder(ctx context.Context, userID string) ([]model.Auction, error)
}

// AuctionDB defines the storage interface for the auction system
type AuctionDB interface {
	AuctionStore
	BidLedger
}

// auctionEntry holds one auction and its bids behind its own lock, so bids on
// different auctions never contend.
type auctionEntry struct {
	mu      sync.Mutex
	auction model.Auction
	bids    []model.Bid // acceptance order
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB
type MemoryRepo struct {
	mu       sync.RWMutex // guards the auctions map only
	auctions map[string]*auctionEntry
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions: make(map[string]*auctionEntry),
	}
}

func (r *MemoryRepo) entry(auctionID string) (*auctionEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.auctions[auctionID]
	return e, ok
}

func (r *MemoryRepo) entries() []*auctionEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*auctionEntry, 0, len(r.auctions))
	for _, e := range r.auctions {
		out = append(out, e)
	}
	return out
}

// CreateAuction stores a new auction
func (r *MemoryRepo) CreateAuction(_ context.Context, auction model.Auction) error {
	if auction.AuctionID == "" {
		return fmt.Errorf("create auction: %w - empty auction ID", biddingerrors.ErrInvalidAuction)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.auctions[auction.AuctionID]; exists {
		return fmt.Errorf("create auction %s: %w - duplicate ID", auction.AuctionID, biddingerrors.ErrInvalidAuction)
	}
	r.auctions[auction.AuctionID] = &auctionEntry{auction: auction}
	return nil
}

// GetAuction returns the auction with the given ID
func (r *MemoryRepo) GetAuction(_ context.Context, auctionID string) (model.Auction, error) {
	e, ok := r.entry(auctionID)
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.auction, nil
}

// ListAuctions returns auctions matching filter, newest first
func (r *MemoryRepo) ListAuctions(_ context.Context, filter model.AuctionFilter) ([]model.Auction, error) {
	out := make([]model.Auction, 0)
	for _, e := range r.entries() {
		e.mu.Lock()
		a := e.auction
		e.mu.Unlock()
		if filter.Matches(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].AuctionID < out[j].AuctionID
	})
	return out, nil
}

// TransitionStatus moves an auction from one status to another, failing with
// ErrStatusConflict if the current status is not from.
func (r *MemoryRepo) TransitionStatus(_ context.Context, auctionID string, from, to model.AuctionStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("transition auction %s from %s to %s: %w", auctionID, from, to, biddingerrors.ErrInvalidTransition)
	}

	e, ok := r.entry(auctionID)
	if !ok {
		return fmt.Errorf("transition auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.auction.Status != from {
		return fmt.Errorf("transition auction %s: %w - status is %s, expected %s", auctionID, biddingerrors.ErrStatusConflict, e.auction.Status, from)
	}
	e.auction.Status = to
	return nil
}

// ListDueAuctions returns IDs of active auctions whose deadline is at or before now
func (r *MemoryRepo) ListDueAuctions(_ context.Context, now time.Time) ([]string, error) {
	var ids []string
	for _, e := range r.entries() {
		e.mu.Lock()
		if e.auction.Status == model.StatusActive && !e.auction.Deadline.After(now) {
			ids = append(ids, e.auction.AuctionID)
		}
		e.mu.Unlock()
	}
	sort.Strings(ids)
	return ids, nil
}

// PlaceBid checks the bid against the auction's current state and appends it,
// all under the auction's lock.
func (r *MemoryRepo) PlaceBid(_ context.Context, bid model.Bid) error {
	e, ok := r.entry(bid.AuctionID)
	if !ok {
		return fmt.Errorf("place bid on auction %s: %w", bid.AuctionID, biddingerrors.ErrAuctionNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	highest, hasBids := ranking.Highest(e.bids)
	if err := CheckBid(e.auction, highest, hasBids, bid); err != nil {
		return err
	}

	e.bids = append(e.bids, bid)
	return nil
}

// CheckBid applies the acceptance rules for bid against the auction and its
// current highest bid. Callers must hold whatever lock serializes the auction.
func CheckBid(auction model.Auction, highest model.Bid, hasBids bool, bid model.Bid) error {
	switch {
	case !openFor(auction, bid):
		return fmt.Errorf("place bid on auction %s: %w - status is %s", auction.AuctionID, biddingerrors.ErrAuctionNotActive, auction.Status)
	case !bid.PlacedAt.Before(auction.Deadline):
		return fmt.Errorf("place bid on auction %s: %w - deadline was %s", auction.AuctionID, biddingerrors.ErrAuctionExpired, auction.Deadline.UTC().Format(time.RFC3339))
	case bid.BidderID == auction.OwnerID:
		return fmt.Errorf("place bid on auction %s: %w", auction.AuctionID, biddingerrors.ErrSelfBid)
	case !hasBids && bid.Amount.LessThan(auction.StartingPrice):
		return fmt.Errorf("place bid on auction %s: %w - starting price is %s", auction.AuctionID, biddingerrors.ErrBidTooLow, auction.StartingPrice.StringFixed(2))
	case hasBids && !bid.Amount.GreaterThan(highest.Amount):
		return fmt.Errorf("place bid on auction %s: %w - current highest bid is %s", auction.AuctionID, biddingerrors.ErrBidTooLow, highest.Amount.StringFixed(2))
	}
	return nil
}

// openFor reports whether auction still takes bid. An ended auction accepts
// bids placed before its deadline that reach the ledger after the sweeper.
func openFor(auction model.Auction, bid model.Bid) bool {
	switch auction.Status {
	case model.StatusActive:
		return true
	case model.StatusEnded:
		return bid.PlacedAt.Before(auction.Deadline)
	default:
		return false
	}
}

// GetCurrentHighest returns the highest bid for an auction
func (r *MemoryRepo) GetCurrentHighest(_ context.Context, auctionID string) (model.Bid, error) {
	e, ok := r.entry(auctionID)
	if !ok {
		return model.Bid{}, fmt.Errorf("get highest bid for auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	highest, ok := ranking.Highest(e.bids)
	if !ok {
		return model.Bid{}, fmt.Errorf("get highest bid for auction %s: %w", auctionID, biddingerrors.ErrNoBids)
	}
	return highest, nil
}

// ListBids returns all bids for an auction, highest first
func (r *MemoryRepo) ListBids(_ context.Context, auctionID string) ([]model.Bid, error) {
	e, ok := r.entry(auctionID)
	if !ok {
		return nil, fmt.Errorf("list bids for auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}

	e.mu.Lock()
	bids := append([]model.Bid(nil), e.bids...)
	e.mu.Unlock()

	ranking.SortBids(bids)
	if bids == nil {
		bids = []model.Bid{}
	}
	return bids, nil
}

// GetAuctionsByBidder returns all auctions a user has bid on
func (r *MemoryRepo) GetAuctionsByBidder(_ context.Context, userID string) ([]model.Auction, error) {
	var out []model.Auction
	for _, e := range r.entries() {
		e.mu.Lock()
		for _, b := range e.bids {
			if b.BidderID == userID {
				out = append(out, e.auction)
				break
			}
		}
		e.mu.Unlock()
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("get auctions for user %s: %w", userID, biddingerrors.ErrUserNoBids)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AuctionID < out[j].AuctionID })
	return out, nil
}

// AddAuction adds an auction to the repository, replacing any existing one.
// Used for seeding and tests.
func (r *MemoryRepo) AddAuction(auction model.Auction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auctions[auction.AuctionID] = &auctionEntry{auction: auction}
}
