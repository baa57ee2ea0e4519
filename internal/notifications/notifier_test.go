package notifications

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishUser(context.Background(), 1, "test payload"))
	assert.NoError(t, n.PublishBroadcast(context.Background(), "test payload"))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, string) {}))
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		userID   uint
		expected string
	}{
		{1, "notifications:user:1"},
		{100, "notifications:user:100"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, UserChannel(tt.userID))
		id, ok := ParseUserChannel(tt.expected)
		assert.True(t, ok)
		assert.Equal(t, tt.userID, id)
	}
}

func TestParseUserChannel_Invalid(t *testing.T) {
	t.Parallel()
	for _, ch := range []string{"", "notifications:user:", "notifications:user:abc", "notifications:user:0", "chat:conv:5"} {
		_, ok := ParseUserChannel(ch)
		assert.False(t, ok, ch)
	}
}

type delivery struct {
	userID    uint
	broadcast bool
	payload   string
}

func subscribe(t *testing.T, n *Notifier) (context.CancelFunc, <-chan delivery) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	out := make(chan delivery, 8)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(channel, payload string) {
		if channel == BroadcastChannel {
			out <- delivery{broadcast: true, payload: payload}
			return
		}
		id, ok := ParseUserChannel(channel)
		require.True(t, ok, channel)
		out <- delivery{userID: id, payload: payload}
	}))
	return cancel, out
}

func receive(t *testing.T, ch <-chan delivery) delivery {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(time.Second):
		t.Fatal("no delivery")
		return delivery{}
	}
}

func TestNotifier_RoutesByChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	n := NewNotifier(rdb)
	_, deliveries := subscribe(t, n)

	ctx := context.Background()
	require.NoError(t, n.PublishUser(ctx, 4, `{"type":"notification"}`))
	assert.Equal(t, delivery{userID: 4, payload: `{"type":"notification"}`}, receive(t, deliveries))

	require.NoError(t, n.PublishBroadcast(ctx, "maintenance"))
	assert.Equal(t, delivery{broadcast: true, payload: "maintenance"}, receive(t, deliveries))
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	n := NewNotifier(rdb)
	cancel, deliveries := subscribe(t, n)

	require.NoError(t, n.PublishUser(context.Background(), 2, "first"))
	assert.Equal(t, "first", receive(t, deliveries).payload)

	cancel()
	assert.Eventually(t, func() bool {
		return mr.PubSubNumPat() == 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, n.PublishUser(context.Background(), 2, "late"))
	assert.Never(t, func() bool { return len(deliveries) > 0 }, 150*time.Millisecond, 10*time.Millisecond)
}

func TestNotifier_HandlerPanicDoesNotStopDelivery(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	n := NewNotifier(rdb)

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(_, payload string) {
		calls.Add(1)
		if payload == "boom" {
			panic("handler bug")
		}
	}))

	require.NoError(t, n.PublishUser(ctx, 1, "boom"))
	require.NoError(t, n.PublishUser(ctx, 1, "fine"))
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 10*time.Millisecond)
}
