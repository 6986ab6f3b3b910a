package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// pipelineRecorder captures the command names of every pipeline the client sends
type pipelineRecorder struct {
	mu        sync.Mutex
	pipelines [][]string
}

func (r *pipelineRecorder) DialHook(next redis.DialHook) redis.DialHook { return next }

func (r *pipelineRecorder) ProcessHook(next redis.ProcessHook) redis.ProcessHook { return next }

func (r *pipelineRecorder) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		names := make([]string, len(cmds))
		for i, c := range cmds {
			names[i] = c.Name()
		}
		r.mu.Lock()
		r.pipelines = append(r.pipelines, names)
		r.mu.Unlock()
		return next(ctx, cmds)
	}
}

func (r *pipelineRecorder) Pipelines() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.pipelines...)
}

func newTestRedis(t *testing.T) (*RedisNotifier, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisNotifier(client), mr, client
}

func bidEvent(recipient string, amount int64) Event {
	a := decimal.NewFromInt(amount)
	return Event{
		Type:       EventOutbid,
		AuctionID:  "auction-1",
		Recipient:  recipient,
		BidderID:   "bob",
		Amount:     &a,
		OccurredAt: occurred.Add(time.Duration(amount) * time.Second),
	}
}

func TestRedisNotifier_Notify(t *testing.T) {
	ctx := context.Background()
	n, mr, client := newTestRedis(t)

	rec := &pipelineRecorder{}
	client.AddHook(rec)

	sub := client.Subscribe(ctx, EventsChannel)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	event := bidEvent("alice", 120)
	require.NoError(t, n.Notify(ctx, event))

	recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(recvCtx)
	require.NoError(t, err)
	require.Equal(t, EventsChannel, msg.Channel)

	var published Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &published))
	require.Equal(t, EventOutbid, published.Type)
	require.Equal(t, "alice", published.Recipient)
	require.True(t, published.Amount.Equal(decimal.NewFromInt(120)))

	inbox, err := mr.List(InboxKey("alice"))
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	require.JSONEq(t, msg.Payload, inbox[0])

	require.Contains(t, rec.Pipelines(), []string{"multi", "publish", "lpush", "ltrim", "exec"},
		"publish and inbox write go out in one transaction")
}

func TestRedisNotifier_Notify_NoRecipient(t *testing.T) {
	ctx := context.Background()
	n, mr, _ := newTestRedis(t)

	require.NoError(t, n.Notify(ctx, Event{Type: EventAuctionEnded, AuctionID: "auction-1", OccurredAt: occurred}))
	require.False(t, mr.Exists(InboxKey("")))
}

func TestRedisNotifier_InboxCapped(t *testing.T) {
	ctx := context.Background()
	n, mr, _ := newTestRedis(t)

	const sent = maxInbox + 5
	for i := 1; i <= sent; i++ {
		require.NoError(t, n.Notify(ctx, bidEvent("alice", int64(i))))
	}

	stored, err := mr.List(InboxKey("alice"))
	require.NoError(t, err)
	require.Len(t, stored, maxInbox)

	var newest, oldest Event
	require.NoError(t, json.Unmarshal([]byte(stored[0]), &newest))
	require.NoError(t, json.Unmarshal([]byte(stored[len(stored)-1]), &oldest))
	require.True(t, newest.Amount.Equal(decimal.NewFromInt(sent)))
	require.True(t, oldest.Amount.Equal(decimal.NewFromInt(sent-maxInbox+1)))
}

func TestRedisNotifier_Inbox(t *testing.T) {
	ctx := context.Background()
	n, _, _ := newTestRedis(t)

	for i := 1; i <= maxInbox; i++ {
		require.NoError(t, n.Notify(ctx, bidEvent("alice", int64(i))))
	}

	tests := []struct {
		name  string
		limit int64
		want  int
	}{
		{"Limit_Respected", 3, 3},
		{"Zero_Means_Cap", 0, maxInbox},
		{"Negative_Means_Cap", -1, maxInbox},
		{"Above_Cap_Clamped", 1000, maxInbox},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := n.Inbox(ctx, "alice", tt.limit)
			require.NoError(t, err)
			require.Len(t, events, tt.want)
			for i := 1; i < len(events); i++ {
				require.True(t, events[i-1].Amount.GreaterThan(*events[i].Amount), "newest first")
			}
			require.True(t, events[0].Amount.Equal(decimal.NewFromInt(maxInbox)))
		})
	}
}

func TestRedisNotifier_Inbox_SkipsMalformed(t *testing.T) {
	ctx := context.Background()
	n, mr, _ := newTestRedis(t)

	require.NoError(t, n.Notify(ctx, bidEvent("bob", 10)))
	_, err := mr.Lpush(InboxKey("bob"), "not json")
	require.NoError(t, err)
	require.NoError(t, n.Notify(ctx, bidEvent("bob", 20)))

	events, err := n.Inbox(ctx, "bob", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.True(t, events[0].Amount.Equal(decimal.NewFromInt(20)))
	require.True(t, events[1].Amount.Equal(decimal.NewFromInt(10)))

	empty, err := n.Inbox(ctx, "nobody", 10)
	require.NoError(t, err)
	require.Empty(t, empty)
}
