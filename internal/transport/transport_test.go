package transport

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribeDeliversInOrder(t *testing.T) {
	pub, err := NewPublisher("ctrl", "127.0.0.1:0")
	require.NoError(t, err)
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan int, 8)
	sub := NewSubscriber("ctrl", pub.Addr().String())
	go sub.Run(ctx, 3, func(payload []byte) {
		var v int
		require.NoError(t, json.Unmarshal(payload, &v))
		received <- v
	})

	require.True(t, pub.WaitForSubscriber(2*time.Second))

	n := 0
	pub.Run(ctx, 10*time.Millisecond, 3, func() any {
		n++
		return n
	})

	for i := 1; i <= 3; i++ {
		select {
		case v := <-received:
			assert.Equal(t, i, v)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
}

func TestCachingProxyReplaysLastValueToNewSubscriber(t *testing.T) {
	pub, err := NewPublisher("ctrl", "127.0.0.1:0")
	require.NoError(t, err)
	defer pub.Close()

	proxy, err := NewCachingProxy("ctrl", pub.Addr().String(), "127.0.0.1:0", 0, 0)
	require.NoError(t, err)
	defer proxy.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go proxy.Run(ctx)

	require.True(t, pub.WaitForSubscriber(2*time.Second))
	require.NoError(t, pub.Publish(42))

	// Give the proxy time to receive and cache the upstream value before a
	// late subscriber connects.
	time.Sleep(200 * time.Millisecond)

	var mu sync.Mutex
	var got int
	gotCh := make(chan struct{})

	late := NewSubscriber("ctrl", proxy.Addr().String())
	go late.Run(ctx, 1, func(payload []byte) {
		mu.Lock()
		json.Unmarshal(payload, &got)
		mu.Unlock()
		close(gotCh)
	})

	select {
	case <-gotCh:
	case <-time.After(2 * time.Second):
		t.Fatal("late subscriber never received the cached replay")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 42, got)
}
