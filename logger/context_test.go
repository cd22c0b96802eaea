package logger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNetworkCounter(t *testing.T) {
	ctx := WithNetworkCounter(context.Background())

	IncrementNetworkCounter(ctx)
	IncrementNetworkCounter(ctx)
	AddNetworkElapsed(ctx, 1500)
	AddNetworkElapsed(ctx, 500)

	assert.Equal(t, int64(2), GetNetworkCounter(ctx))
	assert.Equal(t, int64(2000), GetNetworkElapsed(ctx))
}

func TestNetworkCounterWithoutInitialization(t *testing.T) {
	ctx := context.Background()

	assert.NotPanics(t, func() {
		IncrementNetworkCounter(ctx)
		AddNetworkElapsed(ctx, 10)
	})
	assert.Zero(t, GetNetworkCounter(ctx))
	assert.Zero(t, GetNetworkElapsed(ctx))
}

func TestNetworkCounterConcurrent(t *testing.T) {
	ctx := WithNetworkCounter(context.Background())

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			IncrementNetworkCounter(ctx)
			AddNetworkElapsed(ctx, 2)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), GetNetworkCounter(ctx))
	assert.Equal(t, int64(100), GetNetworkElapsed(ctx))
}
