package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRoundTrip(t *testing.T) {
	in := SessionCancelled{
		SessionID:   uuid.New(),
		Date:        "2026-10-25",
		Time:        "10:00",
		CancelledBy: uuid.New(),
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	ev, err := Decode(in.Subject(), data)
	require.NoError(t, err)
	assert.Equal(t, in, ev)
}

func TestDecodeUnknownSubject(t *testing.T) {
	_, err := Decode("counsel.unknown", []byte("{}"))
	assert.Error(t, err)
}

type blockingHandler struct {
	release chan struct{}
	mu      sync.Mutex
	handled []Event
}

func (h *blockingHandler) Handle(_ context.Context, ev Event) error {
	<-h.release
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, ev)
	return nil
}

func (h *blockingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestLocalPublisherDoesNotWaitForHandler(t *testing.T) {
	h := &blockingHandler{release: make(chan struct{})}
	p := NewLocalPublisher(h, 1, 4)

	ev := SessionBooked{SessionID: uuid.New()}
	done := make(chan error, 1)
	go func() { done <- p.Publish(context.Background(), ev) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on the handler")
	}
	assert.Equal(t, 0, h.count())

	close(h.release)
	require.NoError(t, p.Close(context.Background()))
	assert.Equal(t, 1, h.count())
	assert.ErrorIs(t, p.Publish(context.Background(), ev), ErrClosed)
}

func TestLocalPublisherQueueFull(t *testing.T) {
	h := &blockingHandler{release: make(chan struct{})}
	p := NewLocalPublisher(h, 1, 1)
	ctx := context.Background()

	// the worker holds at most one event; the buffer holds one more
	var full bool
	for range 3 {
		if err := p.Publish(ctx, SessionBooked{SessionID: uuid.New()}); errors.Is(err, ErrQueueFull) {
			full = true
		}
	}
	assert.True(t, full)

	close(h.release)
	require.NoError(t, p.Close(ctx))
}
