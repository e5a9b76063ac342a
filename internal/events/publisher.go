package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Handler consumes events, either behind a NATS subscription or in-process.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// NatsPublisher sends events as JSON on their subject.
type NatsPublisher struct {
	nc *nats.Conn
}

func NewNatsPublisher(nc *nats.Conn) *NatsPublisher {
	return &NatsPublisher{nc: nc}
}

func (p *NatsPublisher) Publish(_ context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.nc.Publish(ev.Subject(), data); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Subject(), err)
	}
	return nil
}

// ErrQueueFull is returned by LocalPublisher when its buffer is full.
var ErrQueueFull = errors.New("events: local queue full")

// ErrClosed is returned by LocalPublisher after Close.
var ErrClosed = errors.New("events: publisher closed")

const localHandleTimeout = 30 * time.Second

// LocalPublisher hands events to a handler in-process when no broker is
// configured. Publish only enqueues; a fixed set of workers runs the handler
// so slow mail or SMS delivery never holds up the caller.
type LocalPublisher struct {
	h     Handler
	queue chan Event
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewLocalPublisher(h Handler, workers, buffer int) *LocalPublisher {
	if workers < 1 {
		workers = 1
	}
	p := &LocalPublisher{h: h, queue: make(chan Event, buffer)}
	p.wg.Add(workers)
	for range workers {
		go p.run()
	}
	return p
}

func (p *LocalPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *LocalPublisher) run() {
	defer p.wg.Done()
	for ev := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), localHandleTimeout)
		if err := p.h.Handle(ctx, ev); err != nil {
			slog.Error("events: local handler failed", "subject", ev.Subject(), "err", err)
		}
		cancel()
	}
}

// Close stops accepting events and waits until the queued ones are handled
// or ctx ends.
func (p *LocalPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
