package notify

//go:generate mockgen -source=notify.go -destination=mock_notify.go -package=notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"auction-ledger/utils"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// EventType names a notification kind
type EventType string

const (
	EventBidPlaced        EventType = "bid_placed"
	EventOutbid           EventType = "outbid"
	EventAuctionEnded     EventType = "auction_ended"
	EventAuctionCancelled EventType = "auction_cancelled"
)

// Event is delivered to a single recipient
type Event struct {
	Type       EventType        `json:"type"`
	AuctionID  string           `json:"auction_id"`
	Recipient  string           `json:"recipient"`
	BidderID   string           `json:"bidder_id,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// Notifier delivers events to users. Failures must not affect the caller's
// operation; callers log and continue.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// InboxReader returns a user's stored notifications, most recent first
type InboxReader interface {
	Inbox(ctx context.Context, userID string, limit int64) ([]Event, error)
}

// EventsChannel is the pub/sub channel every event is published on
const EventsChannel = "auction-events"

// maxInbox caps the per-user notification list
const maxInbox = 100

// InboxKey returns the Redis list holding a user's notifications
func InboxKey(userID string) string {
	return "notifications:" + userID
}

// RedisNotifier publishes events on a channel and keeps a capped inbox per user
type RedisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier creates a notifier backed by client
func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

// Notify publishes the event and pushes it onto the recipient's inbox
func (n *RedisNotifier) Notify(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	_, err = n.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, EventsChannel, payload)
		if event.Recipient != "" {
			key := InboxKey(event.Recipient)
			pipe.LPush(ctx, key, payload)
			pipe.LTrim(ctx, key, 0, maxInbox-1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish %s event for auction %s: %w", event.Type, event.AuctionID, err)
	}
	return nil
}

// Inbox returns up to limit of a user's most recent notifications
func (n *RedisNotifier) Inbox(ctx context.Context, userID string, limit int64) ([]Event, error) {
	if limit <= 0 || limit > maxInbox {
		limit = maxInbox
	}
	raw, err := n.client.LRange(ctx, InboxKey(userID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read inbox for user %s: %w", userID, err)
	}

	events := make([]Event, 0, len(raw))
	for _, r := range raw {
		var e Event
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			utils.Warn("notify: skipping malformed inbox entry", map[string]any{"user_id": userID, "error": err.Error()})
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

// LogNotifier writes events to the application log. Used when no Redis is configured.
type LogNotifier struct{}

// Notify logs the event
func (LogNotifier) Notify(_ context.Context, event Event) error {
	fields := map[string]any{
		"type":       string(event.Type),
		"auction_id": event.AuctionID,
		"recipient":  event.Recipient,
	}
	if event.BidderID != "" {
		fields["bidder_id"] = event.BidderID
	}
	if event.Amount != nil {
		fields["amount"] = event.Amount.StringFixed(2)
	}
	utils.Info("notification", fields)
	return nil
}
