package bridge

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentortab/mentortab/internal/config"
)

func newTestBridge() *Bridge {
	cfg := &config.RuntimeConfig{ScrapeTimeout: time.Second}
	return New(context.Background(), nil, cfg)
}

func TestRequestNoBrowser(t *testing.T) {
	b := newTestBridge()
	_, err := b.Request(context.Background(), RequestHintData)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoActiveTab)
}

func TestDispatchUnknownTag(t *testing.T) {
	b := newTestBridge()
	_, err := b.dispatch(context.Background(), context.Background(), "NO_SUCH_REQUEST")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScraperUnreachable)
}

func TestDispatchRespondsOnce(t *testing.T) {
	b := newTestBridge()

	calls := 0
	b.RegisterRequest(RequestHintData, func(ctx context.Context) (any, error) {
		calls++
		return map[string]string{"title": "Two Sum"}, nil
	})

	resp, err := b.dispatch(context.Background(), context.Background(), RequestHintData)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"title": "Two Sum"}, resp)
	assert.Equal(t, 1, calls)
}

func TestDispatchHandlerFailureIsScraperUnreachable(t *testing.T) {
	b := newTestBridge()
	b.RegisterRequest(RequestHintData, func(ctx context.Context) (any, error) {
		return nil, fmt.Errorf("evaluate: target crashed")
	})

	_, err := b.dispatch(context.Background(), context.Background(), RequestHintData)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScraperUnreachable)
	assert.Contains(t, err.Error(), "target crashed")
}

func TestDispatchSerializesRequests(t *testing.T) {
	b := newTestBridge()

	running := 0
	max := 0
	b.RegisterRequest(RequestHintData, func(ctx context.Context) (any, error) {
		running++
		if running > max {
			max = running
		}
		time.Sleep(10 * time.Millisecond)
		running--
		return "ok", nil
	})

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := b.dispatch(context.Background(), context.Background(), RequestHintData)
			done <- err
		}()
	}
	require.NoError(t, <-done)
	require.NoError(t, <-done)
	assert.Equal(t, 1, max, "requests must not overlap")
}

func TestDispatchCallerCancellation(t *testing.T) {
	b := newTestBridge()
	b.RegisterRequest(RequestHintData, func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := b.dispatch(ctx, context.Background(), RequestHintData)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScraperUnreachable)
	assert.True(t, errors.Is(err, ErrScraperUnreachable))
}
