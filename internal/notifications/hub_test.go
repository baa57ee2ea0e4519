package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub()

	a, err := hub.Register(10, nil)
	require.NoError(t, err)
	b, err := hub.Register(10, nil)
	require.NoError(t, err)
	other, err := hub.Register(11, nil)
	require.NoError(t, err)

	hub.Broadcast(10, `{"type":"notification"}`)

	assert.Equal(t, `{"type":"notification"}`, string(<-a.Send))
	assert.Equal(t, `{"type":"notification"}`, string(<-b.Send))
	assert.Empty(t, other.Send)
	assert.True(t, hub.IsOnline(10))
	assert.False(t, hub.IsOnline(12))
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(3, nil)
	require.NoError(t, err)

	hub.UnregisterClient(c)
	hub.UnregisterClient(c)

	_, open := <-c.Send
	assert.False(t, open)
	assert.False(t, hub.IsOnline(3))
	assert.False(t, c.TrySend([]byte("late")))
}

func TestHub_PerUserLimit(t *testing.T) {
	hub := NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(1, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(1, nil)
	assert.ErrorIs(t, err, ErrUserFull)

	_, err = hub.Register(2, nil)
	assert.NoError(t, err)
}

func TestHub_ShutdownRejectsNewClients(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(1, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	_, open := <-c.Send
	assert.False(t, open)

	_, err = hub.Register(1, nil)
	assert.ErrorIs(t, err, ErrServerFull)
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(1, nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer; i++ {
		require.True(t, c.TrySend([]byte("x")))
	}
	assert.False(t, c.TrySend([]byte("overflow")))
	assert.Len(t, c.Send, sendBuffer)
}

func TestHub_StartWiringForwardsUserMessages(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	hub := NewHub()
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.StartWiring(ctx, n))

	owner, err := hub.Register(7, nil)
	require.NoError(t, err)
	bystander, err := hub.Register(8, nil)
	require.NoError(t, err)

	require.NoError(t, n.PublishUser(context.Background(), 7, "denied"))
	assert.Eventually(t, func() bool { return len(owner.Send) == 1 }, testEventuallyTimeout, testPollInterval)
	assert.Empty(t, bystander.Send)

	require.NoError(t, n.PublishBroadcast(context.Background(), "maintenance"))
	assert.Eventually(t, func() bool { return len(bystander.Send) == 1 }, testEventuallyTimeout, testPollInterval)
}
