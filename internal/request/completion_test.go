package request

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoopRunsCallbacksInOrder(t *testing.T) {
	loop := NewLoop()
	loop.Start()
	defer loop.Close()

	var (
		mu  sync.Mutex
		got []int
		wg  sync.WaitGroup
	)
	wg.Add(50)
	for i := 0; i < 50; i++ {
		i := i
		loop.Deliver(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()

	for i := range got {
		require.Equal(t, i, got[i])
	}
}

func TestLoopRunStopsOnContext(t *testing.T) {
	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	ran := make(chan struct{})
	loop.Deliver(func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatalf("callback was not run")
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestLoopCloseDrainsAndFallsBackInline(t *testing.T) {
	loop := NewLoop()
	ran := 0
	loop.Deliver(func() { ran++ })
	loop.Close()

	require.NoError(t, loop.Run(context.Background()))
	require.Equal(t, 1, ran)

	loop.Deliver(func() { ran++ })
	require.Equal(t, 2, ran)
	loop.Close()
}
