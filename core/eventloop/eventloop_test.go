package eventloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuedBeforeWait(t *testing.T) {
	loop := New()
	sub, err := loop.Subscribe()
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, loop.Post(Event{Base: "WIFI_EVENT", ID: 1}))
	require.NoError(t, loop.Post(Event{Base: "WIFI_EVENT", ID: 2}))

	for _, want := range []int32{1, 2} {
		ev, err := sub.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, ev.ID)
	}
}

func TestNextWaitsForPost(t *testing.T) {
	loop := New()
	sub, err := loop.Subscribe()
	require.NoError(t, err)
	defer sub.Close()

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = loop.Post(Event{Base: "IP_EVENT", ID: 7, Payload: "addr"})
	}()

	ev, err := sub.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "IP_EVENT/7", ev.String())
	assert.Equal(t, "addr", ev.Payload)
}

func TestNextHonoursContext(t *testing.T) {
	loop := New()
	sub, err := loop.Subscribe()
	require.NoError(t, err)
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = sub.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFanOutPreservesOrder(t *testing.T) {
	loop := New()
	a, err := loop.Subscribe()
	require.NoError(t, err)
	b, err := loop.Subscribe()
	require.NoError(t, err)

	const n = 100
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			_ = loop.Post(Event{Base: "X", ID: int32(i)})
		}
	}()

	for _, sub := range []*Subscription{a, b} {
		for i := 0; i < n; i++ {
			ev, err := sub.Next(context.Background())
			require.NoError(t, err)
			require.Equal(t, int32(i), ev.ID)
		}
	}
	wg.Wait()
}

func TestClose(t *testing.T) {
	loop := New()
	sub, err := loop.Subscribe()
	require.NoError(t, err)

	require.NoError(t, loop.Post(Event{Base: "X", ID: 1}))
	loop.Close()

	ev, err := sub.Next(context.Background())
	require.NoError(t, err, "queued events survive close")
	assert.Equal(t, int32(1), ev.ID)

	_, err = sub.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	assert.ErrorIs(t, loop.Post(Event{}), ErrClosed)
	_, err = loop.Subscribe()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestUnsubscribedMissesEvents(t *testing.T) {
	loop := New()
	sub, err := loop.Subscribe()
	require.NoError(t, err)
	sub.Close()

	require.NoError(t, loop.Post(Event{Base: "X", ID: 1}))
	_, err = sub.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
