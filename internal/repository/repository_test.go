package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"auction-ledger/internal/biddingerrors"
	model "auction-ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	t0       = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deadline = t0.Add(time.Hour)
)

// Helper to create a new active Auction
func newAuction(auctionID, ownerID string, startingPrice int64) model.Auction {
	return model.Auction{
		AuctionID:     auctionID,
		OwnerID:       ownerID,
		Title:         fmt.Sprintf("%s title", auctionID),
		StartingPrice: decimal.NewFromInt(startingPrice),
		Deadline:      deadline,
		Status:        model.StatusActive,
		CreatedAt:     t0,
	}
}

// Helper to create a new Bid
func newBid(bidID, auctionID, bidderID string, amount int64, placedAt time.Time) model.Bid {
	return model.Bid{
		BidID:     bidID,
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    decimal.NewFromInt(amount),
		PlacedAt:  placedAt,
	}
}

// Test PlaceBid acceptance rules, applied in sequence
func TestMemoryRepo_PlaceBid(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := NewMemoryRepo()
	repo.AddAuction(newAuction("a1", "seller", 50))
	ended := newAuction("a2", "seller", 50)
	ended.Status = model.StatusEnded
	repo.AddAuction(ended)

	tests := []struct {
		name        string
		bid         model.Bid
		expectedErr error
	}{
		{name: "below_starting_price", bid: newBid("b1", "a1", "alice", 49, t0), expectedErr: biddingerrors.ErrBidTooLow},
		{name: "equal_to_starting_price", bid: newBid("b2", "a1", "alice", 50, t0)},
		{name: "equal_to_highest", bid: newBid("b3", "a1", "bob", 50, t0.Add(time.Second)), expectedErr: biddingerrors.ErrBidTooLow},
		{name: "above_highest", bid: newBid("b4", "a1", "bob", 60, t0.Add(time.Second))},
		{name: "seller_bids", bid: newBid("b5", "a1", "seller", 1000, t0.Add(time.Second)), expectedErr: biddingerrors.ErrSelfBid},
		{name: "at_deadline", bid: newBid("b6", "a1", "alice", 1000, deadline), expectedErr: biddingerrors.ErrAuctionExpired},
		{name: "just_before_deadline", bid: newBid("b7", "a1", "alice", 70, deadline.Add(-time.Nanosecond))},
		{name: "ended_auction_late_bid", bid: newBid("b8", "a2", "alice", 1000, deadline), expectedErr: biddingerrors.ErrAuctionNotActive},
		{name: "ended_while_bid_in_flight", bid: newBid("b10", "a2", "alice", 1000, deadline.Add(-time.Millisecond))},
		{name: "unknown_auction", bid: newBid("b9", "nope", "alice", 1000, t0), expectedErr: biddingerrors.ErrAuctionNotFound},
	}

	// sequential: each case builds on the ledger state of the previous ones
	for _, tc := range tests {
		err := repo.PlaceBid(ctx, tc.bid)
		if tc.expectedErr != nil {
			require.ErrorIs(t, err, tc.expectedErr, tc.name)
			continue
		}
		require.NoError(t, err, tc.name)
	}

	bids, err := repo.ListBids(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, bids, 3)
	require.Equal(t, "b7", bids[0].BidID)

	bids, err = repo.ListBids(ctx, "a2")
	require.NoError(t, err)
	require.Len(t, bids, 1)
	require.Equal(t, "b10", bids[0].BidID)
}

// Test a bid placed before the deadline survives the sweeper ending the
// auction first
func TestMemoryRepo_PlaceBid_AfterSweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewMemoryRepo()
	repo.AddAuction(newAuction("a1", "seller", 10))
	repo.AddAuction(newAuction("a2", "seller", 10))

	require.NoError(t, repo.PlaceBid(ctx, newBid("b1", "a1", "alice", 20, t0)))
	require.NoError(t, repo.TransitionStatus(ctx, "a1", model.StatusActive, model.StatusEnded))

	tests := []struct {
		name        string
		bid         model.Bid
		expectedErr error
	}{
		{name: "placed_before_deadline", bid: newBid("b2", "a1", "bob", 30, deadline.Add(-time.Millisecond))},
		{name: "still_must_beat_highest", bid: newBid("b3", "a1", "carol", 30, deadline.Add(-time.Microsecond)), expectedErr: biddingerrors.ErrBidTooLow},
		{name: "placed_at_deadline", bid: newBid("b4", "a1", "carol", 100, deadline), expectedErr: biddingerrors.ErrAuctionNotActive},
		{name: "seller_still_barred", bid: newBid("b5", "a1", "seller", 100, t0), expectedErr: biddingerrors.ErrSelfBid},
	}
	for _, tc := range tests {
		err := repo.PlaceBid(ctx, tc.bid)
		if tc.expectedErr != nil {
			require.ErrorIs(t, err, tc.expectedErr, tc.name)
			continue
		}
		require.NoError(t, err, tc.name)
	}

	highest, err := repo.GetCurrentHighest(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, "bob", highest.BidderID)

	// cancelled auctions take nothing, however early the bid
	require.NoError(t, repo.TransitionStatus(ctx, "a2", model.StatusActive, model.StatusCancelled))
	err = repo.PlaceBid(ctx, newBid("b6", "a2", "alice", 20, t0))
	require.ErrorIs(t, err, biddingerrors.ErrAuctionNotActive)
}

// Test that the status check comes before the deadline check
func TestMemoryRepo_PlaceBid_CheckOrder(t *testing.T) {
	t.Parallel()
	repo := NewMemoryRepo()
	a := newAuction("a1", "seller", 10)
	a.Status = model.StatusCancelled
	repo.AddAuction(a)

	err := repo.PlaceBid(context.Background(), newBid("b1", "a1", "seller", 1, deadline.Add(time.Hour)))
	require.ErrorIs(t, err, biddingerrors.ErrAuctionNotActive)
}

// Test concurrent bidding never accepts a non-increasing bid
func TestMemoryRepo_PlaceBid_Concurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewMemoryRepo()
	repo.AddAuction(newAuction("a1", "seller", 1))
	repo.AddAuction(newAuction("a2", "seller", 1))

	var wg sync.WaitGroup
	var acceptedSame int32
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = repo.PlaceBid(ctx, newBid(fmt.Sprintf("x%d", i), "a1", fmt.Sprintf("u%d", i), int64(10+i), t0))
		}(i)
		go func(i int) {
			defer wg.Done()
			if repo.PlaceBid(ctx, newBid(fmt.Sprintf("y%d", i), "a2", fmt.Sprintf("u%d", i), 500, t0)) == nil {
				atomic.AddInt32(&acceptedSame, 1)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(1), acceptedSame, "equal bids: exactly one accepted")

	bids, err := repo.ListBids(ctx, "a1")
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(109).Equal(bids[0].Amount))

	// the ledger itself, in acceptance order
	e, ok := repo.entry("a1")
	require.True(t, ok)
	e.mu.Lock()
	accepted := append([]model.Bid(nil), e.bids...)
	e.mu.Unlock()

	require.Len(t, accepted, len(bids))
	for i := 1; i < len(accepted); i++ {
		require.True(t, accepted[i].Amount.GreaterThan(accepted[i-1].Amount),
			"bid %s (%s) accepted after %s (%s)", accepted[i].BidID, accepted[i].Amount, accepted[i-1].BidID, accepted[i-1].Amount)
	}
}

// Test GetCurrentHighest and ListBids ordering with ties on time
func TestMemoryRepo_GetCurrentHighest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewMemoryRepo()
	repo.AddAuction(newAuction("a1", "seller", 10))
	repo.AddAuction(newAuction("a2", "seller", 10))

	_, err := repo.GetCurrentHighest(ctx, "a1")
	require.ErrorIs(t, err, biddingerrors.ErrNoBids)

	_, err = repo.GetCurrentHighest(ctx, "nope")
	require.ErrorIs(t, err, biddingerrors.ErrAuctionNotFound)

	require.NoError(t, repo.PlaceBid(ctx, newBid("b1", "a1", "alice", 10, t0)))
	require.NoError(t, repo.PlaceBid(ctx, newBid("b2", "a1", "bob", 20, t0.Add(time.Minute))))
	require.NoError(t, repo.PlaceBid(ctx, newBid("b3", "a1", "carol", 30, t0.Add(2*time.Minute))))

	top, err := repo.GetCurrentHighest(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, "b3", top.BidID)

	bids, err := repo.ListBids(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, []string{"b3", "b2", "b1"}, []string{bids[0].BidID, bids[1].BidID, bids[2].BidID})

	empty, err := repo.ListBids(ctx, "a2")
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}

// Test the CAS semantics of TransitionStatus
func TestMemoryRepo_TransitionStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewMemoryRepo()
	repo.AddAuction(newAuction("a1", "seller", 10))

	require.ErrorIs(t, repo.TransitionStatus(ctx, "a1", model.StatusEnded, model.StatusActive), biddingerrors.ErrInvalidTransition)
	require.ErrorIs(t, repo.TransitionStatus(ctx, "nope", model.StatusActive, model.StatusEnded), biddingerrors.ErrAuctionNotFound)

	var wg sync.WaitGroup
	var wins int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			to := model.StatusEnded
			if i%2 == 0 {
				to = model.StatusCancelled
			}
			if repo.TransitionStatus(ctx, "a1", model.StatusActive, to) == nil {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, int32(1), wins)

	err := repo.TransitionStatus(ctx, "a1", model.StatusActive, model.StatusEnded)
	require.ErrorIs(t, err, biddingerrors.ErrStatusConflict)
}

// Test auction listing and the sweeper's due query
func TestMemoryRepo_Auctions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewMemoryRepo()

	older := newAuction("a1", "seller", 10)
	older.CreatedAt = t0.Add(-time.Hour)
	older.CategoryID = "books"
	require.NoError(t, repo.CreateAuction(ctx, older))

	later := newAuction("a2", "seller", 10)
	later.Deadline = deadline.Add(time.Hour)
	require.NoError(t, repo.CreateAuction(ctx, later))

	require.ErrorIs(t, repo.CreateAuction(ctx, older), biddingerrors.ErrInvalidAuction)
	require.ErrorIs(t, repo.CreateAuction(ctx, model.Auction{}), biddingerrors.ErrInvalidAuction)

	all, err := repo.ListAuctions(ctx, model.AuctionFilter{})
	require.NoError(t, err)
	require.Equal(t, "a2", all[0].AuctionID, "newest first")

	books, err := repo.ListAuctions(ctx, model.AuctionFilter{CategoryID: "books"})
	require.NoError(t, err)
	require.Len(t, books, 1)

	due, err := repo.ListDueAuctions(ctx, deadline)
	require.NoError(t, err)
	require.Equal(t, []string{"a1"}, due, "deadline equal to now is due")

	due, err = repo.ListDueAuctions(ctx, deadline.Add(-time.Second))
	require.NoError(t, err)
	require.Empty(t, due)
}

// Test GetAuctionsByBidder
func TestMemoryRepo_GetAuctionsByBidder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewMemoryRepo()
	repo.AddAuction(newAuction("a2", "seller", 10))
	repo.AddAuction(newAuction("a1", "seller", 10))
	repo.AddAuction(newAuction("a3", "seller", 10))

	require.NoError(t, repo.PlaceBid(ctx, newBid("b1", "a2", "alice", 10, t0)))
	require.NoError(t, repo.PlaceBid(ctx, newBid("b2", "a1", "alice", 10, t0)))
	require.NoError(t, repo.PlaceBid(ctx, newBid("b3", "a1", "alice", 20, t0)))
	require.NoError(t, repo.PlaceBid(ctx, newBid("b4", "a3", "bob", 10, t0)))

	auctions, err := repo.GetAuctionsByBidder(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, auctions, 2)
	require.Equal(t, "a1", auctions[0].AuctionID)

	_, err = repo.GetAuctionsByBidder(ctx, "carol")
	require.ErrorIs(t, err, biddingerrors.ErrUserNoBids)
}
