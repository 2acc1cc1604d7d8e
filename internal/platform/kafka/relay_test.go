package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (s *recordingSink) Publish(_ context.Context, key string, _ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return s.err
}

func (s *recordingSink) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keys...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRelayDrainsInOrder(t *testing.T) {
	sink := &recordingSink{}
	relay := NewRelay(sink, 8, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = relay.Run(ctx)
		close(done)
	}()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, relay.Publish(ctx, key, []byte("payload")))
	}

	require.Eventually(t, func() bool {
		return len(sink.seen()) == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, sink.seen())

	cancel()
	<-done
}

func TestRelayDropsWhenInboxFull(t *testing.T) {
	sink := &recordingSink{}
	relay := NewRelay(sink, 1, discardLogger())
	ctx := context.Background()

	// No Run loop: the second publish finds the inbox full and must not block.
	require.NoError(t, relay.Publish(ctx, "kept", nil))
	require.NoError(t, relay.Publish(ctx, "dropped", nil))

	assert.Len(t, relay.inbox, 1)
}

func TestRelaySurvivesSinkErrors(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker down")}
	relay := NewRelay(sink, 8, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = relay.Run(ctx) }()

	require.NoError(t, relay.Publish(ctx, "first", nil))
	require.NoError(t, relay.Publish(ctx, "second", nil))

	require.Eventually(t, func() bool {
		return len(sink.seen()) == 2
	}, time.Second, 5*time.Millisecond)
}
