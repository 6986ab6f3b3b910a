package bidding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"auction-ledger/internal/biddingerrors"
	"auction-ledger/internal/classifier"
	"auction-ledger/internal/models"
	"auction-ledger/internal/notify"
	"auction-ledger/internal/ranking"
	"auction-ledger/internal/repository"
	"auction-ledger/internal/sweeper"
	"auction-ledger/utils"

	"github.com/shopspring/decimal"
)

// BiddingService defines the business logic for auction bidding
type BiddingService struct {
	repo     repository.AuctionDB
	notifier notify.Notifier
	sweeper  *sweeper.Sweeper
	clock    func() time.Time
}

// NewBiddingService creates a new BiddingService instance. A nil notifier
// disables notifications.
func NewBiddingService(repo repository.AuctionDB, notifier notify.Notifier) *BiddingService {
	s := &BiddingService{
		repo:     repo,
		notifier: notifier,
		clock:    time.Now,
	}
	s.sweeper = sweeper.NewSweeper(repo, notifier).WithClock(s.now)
	return s
}

// WithClock replaces the service clock; used by tests and simulations
func (s *BiddingService) WithClock(clock func() time.Time) *BiddingService {
	s.clock = clock
	return s
}

// now is the service clock truncated to TIMESTAMPTZ precision
func (s *BiddingService) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

// Sweeper returns the lifecycle sweeper sharing this service's storage
func (s *BiddingService) Sweeper() *sweeper.Sweeper {
	return s.sweeper
}

// CreateAuction validates and stores a new active auction owned by the caller
func (s *BiddingService) CreateAuction(ctx context.Context, user models.UserContext, in models.AuctionInput) (models.Auction, error) {
	now := s.now()
	in.Deadline = in.Deadline.UTC().Truncate(time.Microsecond)
	if err := validateAuction(user, in, now); err != nil {
		return models.Auction{}, err
	}

	auction := models.Auction{
		AuctionID:     utils.GenerateID(),
		OwnerID:       user.UserID,
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		CategoryID:    in.CategoryID,
		StartingPrice: in.StartingPrice,
		Deadline:      in.Deadline,
		Status:        models.StatusActive,
		CreatedAt:     now,
	}

	if err := s.repo.CreateAuction(ctx, auction); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to create auction for user %s: %w", user.UserID, err)
	}
	return auction, nil
}

func validateAuction(user models.UserContext, in models.AuctionInput, now time.Time) error {
	if user.UserID == "" {
		return fmt.Errorf("service: %w - missing owner", biddingerrors.ErrInvalidAuction)
	}
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("service: %w - missing title", biddingerrors.ErrInvalidAuction)
	}
	if in.StartingPrice.IsNegative() || !isCents(in.StartingPrice) {
		return fmt.Errorf("service: %w - starting price must be a non-negative amount with at most two decimals", biddingerrors.ErrInvalidAuction)
	}
	if !in.Deadline.After(now) {
		return fmt.Errorf("service: %w - deadline must be in the future", biddingerrors.ErrInvalidAuction)
	}
	return nil
}

func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// PlaceBid validates and records a user's bid for an auction
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (models.Bid, error) {
	if err := validateBid(auctionID, bidderID, amount); err != nil {
		return models.Bid{}, err
	}

	bid := models.Bid{
		BidID:     utils.GenerateOrderedID(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		PlacedAt:  s.now(),
	}

	if err := s.repo.PlaceBid(ctx, bid); err != nil {
		if errors.Is(err, biddingerrors.ErrAuctionExpired) {
			s.endQuietly(ctx, auctionID, bid.PlacedAt)
		}
		return models.Bid{}, fmt.Errorf("service: failed to record bid for auction %s by user %s: %w", auctionID, bidderID, err)
	}

	s.announceBid(ctx, bid)
	return bid, nil
}

// validateBid checks input validity; business rules are enforced by the ledger
func validateBid(auctionID, bidderID string, amount decimal.Decimal) error {
	if auctionID == "" || bidderID == "" {
		return fmt.Errorf("service: %w - missing auctionID or bidderID", biddingerrors.ErrInvalidBid)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("service: %w - non-positive bid amount", biddingerrors.ErrInvalidBid)
	}
	if !isCents(amount) {
		return fmt.Errorf("service: %w - bid amount has more than two decimals", biddingerrors.ErrInvalidBid)
	}
	return nil
}

// announceBid tells the seller about the new bid and the bidder it displaced
// that they were outbid
func (s *BiddingService) announceBid(ctx context.Context, bid models.Bid) {
	if s.notifier == nil {
		return
	}

	amount := bid.Amount
	events := []notify.Event{}

	auction, err := s.repo.GetAuction(ctx, bid.AuctionID)
	if err == nil {
		events = append(events, notify.Event{
			Type:       notify.EventBidPlaced,
			AuctionID:  bid.AuctionID,
			Recipient:  auction.OwnerID,
			BidderID:   bid.BidderID,
			Amount:     &amount,
			OccurredAt: bid.PlacedAt,
		})
	}

	if prev, ok := s.displacedBid(ctx, bid); ok && prev.BidderID != bid.BidderID {
		events = append(events, notify.Event{
			Type:       notify.EventOutbid,
			AuctionID:  bid.AuctionID,
			Recipient:  prev.BidderID,
			BidderID:   bid.BidderID,
			Amount:     &amount,
			OccurredAt: bid.PlacedAt,
		})
	}

	// the sweeper got there first and announced the previous leader
	if auction.Status == models.StatusEnded {
		events = append(events, notify.Event{
			Type:       notify.EventAuctionEnded,
			AuctionID:  bid.AuctionID,
			Recipient:  bid.BidderID,
			BidderID:   bid.BidderID,
			Amount:     &amount,
			OccurredAt: s.now(),
		})
	}

	s.send(ctx, events...)
}

// displacedBid finds the bid ranked directly below bid, which was the
// current highest when bid was accepted
func (s *BiddingService) displacedBid(ctx context.Context, bid models.Bid) (models.Bid, bool) {
	bids, err := s.repo.ListBids(ctx, bid.AuctionID)
	if err != nil {
		utils.Warn("service: could not load bids for notification", map[string]any{"auction_id": bid.AuctionID, "error": err.Error()})
		return models.Bid{}, false
	}
	for _, b := range bids {
		if ranking.Less(bid, b) {
			return b, true
		}
	}
	return models.Bid{}, false
}

func (s *BiddingService) send(ctx context.Context, events ...notify.Event) {
	if s.notifier == nil {
		return
	}
	for _, e := range events {
		if err := s.notifier.Notify(ctx, e); err != nil {
			utils.Warn("service: notification failed", map[string]any{
				"type":       string(e.Type),
				"auction_id": e.AuctionID,
				"recipient":  e.Recipient,
				"error":      err.Error(),
			})
		}
	}
}

// endQuietly ends an overdue auction without waiting for the next sweep
func (s *BiddingService) endQuietly(ctx context.Context, auctionID string, now time.Time) {
	if _, err := s.sweeper.End(ctx, auctionID, now); err != nil {
		utils.Warn("service: lazy end failed", map[string]any{"auction_id": auctionID, "error": err.Error()})
	}
}

// loadAuction fetches an auction, ending it first if its deadline has passed
func (s *BiddingService) loadAuction(ctx context.Context, auctionID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}

	now := s.now()
	if auction.Status != models.StatusActive || auction.Deadline.After(now) {
		return auction, nil
	}

	if _, err := s.sweeper.End(ctx, auctionID, now); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to end auction %s: %w", auctionID, err)
	}
	auction, err = s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// GetAuction returns an auction with its current highest bid
func (s *BiddingService) GetAuction(ctx context.Context, auctionID string) (models.AuctionSummary, error) {
	auction, err := s.loadAuction(ctx, auctionID)
	if err != nil {
		return models.AuctionSummary{}, err
	}

	bids, err := s.repo.ListBids(ctx, auctionID)
	if err != nil {
		return models.AuctionSummary{}, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}

	summary := models.AuctionSummary{Auction: auction, BidCount: len(bids)}
	if top, ok := ranking.Highest(bids); ok {
		summary.CurrentHighest = &top
	}
	return summary, nil
}

// ListAuctions sweeps overdue auctions and returns those matching filter
func (s *BiddingService) ListAuctions(ctx context.Context, filter models.AuctionFilter) ([]models.Auction, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("service: %w - unknown status %q", biddingerrors.ErrInvalidAuction, filter.Status)
	}

	if _, err := s.sweeper.Sweep(ctx, s.now()); err != nil {
		utils.Warn("service: opportunistic sweep failed", map[string]any{"error": err.Error()})
	}

	auctions, err := s.repo.ListAuctions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list auctions: %w", err)
	}
	return auctions, nil
}

// GetBidsForAuction returns all bids for an auction, highest first
func (s *BiddingService) GetBidsForAuction(ctx context.Context, auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	bids, err := s.repo.ListBids(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}

	return bids, nil
}

// GetCurrentHighest returns the highest bid for an auction
func (s *BiddingService) GetCurrentHighest(ctx context.Context, auctionID string) (models.Bid, error) {
	if auctionID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	highest, err := s.repo.GetCurrentHighest(ctx, auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to get highest bid for auction %s: %w", auctionID, err)
	}

	return highest, nil
}

// GetBidStatus classifies a user's standing in an auction
func (s *BiddingService) GetBidStatus(ctx context.Context, auctionID, userID string) (models.BidStatus, error) {
	if userID == "" {
		return "", fmt.Errorf("service: %w - empty user ID", biddingerrors.ErrInvalidBid)
	}

	auction, err := s.loadAuction(ctx, auctionID)
	if err != nil {
		return "", err
	}

	bids, err := s.repo.ListBids(ctx, auctionID)
	if err != nil {
		return "", fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}

	return classifier.Classify(auction, bids, userID), nil
}

// GetAuctionsByUser returns all auctions a user has placed bids on
func (s *BiddingService) GetAuctionsByUser(ctx context.Context, userID string) ([]models.Auction, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", biddingerrors.ErrInvalidBid)
	}

	auctions, err := s.repo.GetAuctionsByBidder(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get auctions for user %s: %w", userID, err)
	}

	return auctions, nil
}

// CancelAuction moves an active auction to cancelled. Only the owner or an
// admin may cancel.
func (s *BiddingService) CancelAuction(ctx context.Context, user models.UserContext, auctionID string) error {
	auction, err := s.loadAuction(ctx, auctionID)
	if err != nil {
		return err
	}

	if auction.OwnerID != user.UserID && !user.IsAdmin() {
		return fmt.Errorf("service: %w - user %s cannot cancel auction %s", biddingerrors.ErrForbidden, user.UserID, auctionID)
	}
	if auction.Status != models.StatusActive {
		return fmt.Errorf("service: cancel auction %s: %w - status is %s", auctionID, biddingerrors.ErrAuctionNotActive, auction.Status)
	}

	err = s.repo.TransitionStatus(ctx, auctionID, models.StatusActive, models.StatusCancelled)
	if errors.Is(err, biddingerrors.ErrStatusConflict) {
		return fmt.Errorf("service: cancel auction %s: %w: %w", auctionID, biddingerrors.ErrAuctionNotActive, err)
	}
	if err != nil {
		return fmt.Errorf("service: failed to cancel auction %s: %w", auctionID, err)
	}

	s.announceCancel(ctx, auctionID)
	return nil
}

func (s *BiddingService) announceCancel(ctx context.Context, auctionID string) {
	if s.notifier == nil {
		return
	}
	bids, err := s.repo.ListBids(ctx, auctionID)
	if err != nil {
		utils.Warn("service: could not load bidders for cancellation notice", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	now := s.now()
	seen := make(map[string]bool)
	var events []notify.Event
	for _, b := range bids {
		if seen[b.BidderID] {
			continue
		}
		seen[b.BidderID] = true
		events = append(events, notify.Event{
			Type:       notify.EventAuctionCancelled,
			AuctionID:  auctionID,
			Recipient:  b.BidderID,
			OccurredAt: now,
		})
	}
	s.send(ctx, events...)
}

// Sweep ends all overdue auctions now
func (s *BiddingService) Sweep(ctx context.Context) (int, error) {
	n, err := s.sweeper.Sweep(ctx, s.now())
	if err != nil {
		return n, fmt.Errorf("service: sweep failed: %w", err)
	}
	return n, nil
}

// GetNotifications returns a user's recent notifications when the notifier
// keeps an inbox, and an empty list otherwise
func (s *BiddingService) GetNotifications(ctx context.Context, userID string, limit int64) ([]notify.Event, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", biddingerrors.ErrInvalidBid)
	}

	reader, ok := s.notifier.(notify.InboxReader)
	if !ok {
		return []notify.Event{}, nil
	}

	events, err := reader.Inbox(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to read notifications for user %s: %w", userID, err)
	}
	return events, nil
}
