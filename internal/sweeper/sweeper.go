package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"auction-ledger/internal/biddingerrors"
	model "auction-ledger/internal/models"
	"auction-ledger/internal/notify"
	"auction-ledger/internal/repository"
	"auction-ledger/utils"

	"github.com/robfig/cron/v3"
)

// Sweeper transitions active auctions whose deadline has passed to ended
type Sweeper struct {
	repo     repository.AuctionDB
	notifier notify.Notifier
	clock    func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewSweeper creates a Sweeper. A nil notifier disables end-of-auction events.
func NewSweeper(repo repository.AuctionDB, notifier notify.Notifier) *Sweeper {
	return &Sweeper{
		repo:     repo,
		notifier: notifier,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used by scheduled runs
func (s *Sweeper) WithClock(clock func() time.Time) *Sweeper {
	s.clock = clock
	return s
}

// Sweep ends every active auction due at now and returns how many it
// transitioned. Auctions another sweeper got to first are skipped silently,
// so concurrent or repeated calls are safe.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.repo.ListDueAuctions(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("sweeper: failed to list due auctions: %w", err)
	}

	transitioned := 0
	var errs []error
	for _, id := range ids {
		ended, err := s.End(ctx, id, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ended {
			transitioned++
		}
	}

	if len(errs) > 0 {
		return transitioned, fmt.Errorf("sweeper: %d auction(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return transitioned, nil
}

// End ends one auction and announces the winner if this call performed the
// transition
func (s *Sweeper) End(ctx context.Context, auctionID string, now time.Time) (bool, error) {
	ended, err := EndAuction(ctx, s.repo, auctionID, now)
	if err != nil || !ended {
		return false, err
	}
	s.announce(ctx, auctionID, now)
	return true, nil
}

// EndAuction moves a single auction from active to ended without looking at
// its deadline; callers decide it is due. It reports false without error when
// another caller already transitioned it.
func EndAuction(ctx context.Context, store repository.AuctionStore, auctionID string, now time.Time) (bool, error) {
	err := store.TransitionStatus(ctx, auctionID, model.StatusActive, model.StatusEnded)
	switch {
	case err == nil:
		utils.Info("sweeper: auction ended", map[string]any{"auction_id": auctionID, "at": now.Format(time.RFC3339)})
		return true, nil
	case errors.Is(err, biddingerrors.ErrStatusConflict):
		utils.Debug("sweeper: auction already transitioned", map[string]any{"auction_id": auctionID})
		return false, nil
	default:
		return false, fmt.Errorf("end auction %s: %w", auctionID, err)
	}
}

// announce tells the winner, if any, that they won
func (s *Sweeper) announce(ctx context.Context, auctionID string, now time.Time) {
	if s.notifier == nil {
		return
	}

	winner, err := s.repo.GetCurrentHighest(ctx, auctionID)
	if err != nil {
		if !errors.Is(err, biddingerrors.ErrNoBids) {
			utils.Warn("sweeper: could not load winner", map[string]any{"auction_id": auctionID, "error": err.Error()})
		}
		return
	}

	amount := winner.Amount
	event := notify.Event{
		Type:       notify.EventAuctionEnded,
		AuctionID:  auctionID,
		Recipient:  winner.BidderID,
		BidderID:   winner.BidderID,
		Amount:     &amount,
		OccurredAt: now,
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		utils.Warn("sweeper: notification failed", map[string]any{"auction_id": auctionID, "error": err.Error()})
	}
}

// Start runs Sweep on the given cron schedule (e.g. "@every 30s")
func (s *Sweeper) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return fmt.Errorf("sweeper: already started")
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, s.run)
	if err != nil {
		return fmt.Errorf("sweeper: invalid schedule %q: %w", schedule, err)
	}

	c.Start()
	s.cron = c
	utils.Info("sweeper: started", map[string]any{"schedule": schedule})
	return nil
}

// Stop halts scheduled runs and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	utils.Info("sweeper: stopped", nil)
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.Sweep(ctx, s.clock())
	if err != nil {
		utils.Error("sweeper: run failed", map[string]any{"transitioned": n, "error": err.Error()})
		return
	}
	if n > 0 {
		utils.Info("sweeper: run complete", map[string]any{"transitioned": n})
	}
}
