// Package reqreply turns a fire-and-forget publish primitive into a bounded
// request/reply call. One Gateway instance owns the pending-waiter table for
// one downstream service; replies are pushed in by the transport through
// Deliver and matched strictly on correlation id.
package reqreply

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a request when the Gateway is built with timeout 0.
const DefaultTimeout = 3000 * time.Millisecond

var ErrTimeout = errors.New("reqreply: no reply before deadline")

type Publisher interface {
	Publish(ctx context.Context, topic, correlationID string, payload []byte) error
}

type result struct {
	payload []byte
	err     error
}

type Gateway struct {
	log     *slog.Logger
	pub     Publisher
	timeout time.Duration

	mu      sync.Mutex
	waiters map[string]chan result
}

func NewGateway(log *slog.Logger, pub Publisher, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{
		log:     log,
		pub:     pub,
		timeout: timeout,
		waiters: make(map[string]chan result),
	}
}

// Request publishes payload to topic under a fresh correlation id and waits
// for the matching reply. It resolves exactly once: with the reply payload,
// with ErrTimeout, or with the transport's error. The waiter is registered
// before the publish so a reply can never arrive unmatchable.
func (g *Gateway) Request(ctx context.Context, topic string, payload []byte) ([]byte, error) {
	id := uuid.NewString()
	ch := make(chan result, 1)

	g.mu.Lock()
	g.waiters[id] = ch
	g.mu.Unlock()

	if err := g.pub.Publish(ctx, topic, id, payload); err != nil {
		g.remove(id)
		return nil, err
	}

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.payload, res.err
	case <-timer.C:
		if g.remove(id) {
			return nil, ErrTimeout
		}
		// The reply won the removal race just as the timer fired; it is
		// already buffered, so take it instead of reporting a timeout.
		res := <-ch
		return res.payload, res.err
	case <-ctx.Done():
		if g.remove(id) {
			return nil, ctx.Err()
		}
		res := <-ch
		return res.payload, res.err
	}
}

// Deliver resolves the waiter registered under correlationID. It reports
// false when no waiter matches, which covers late replies after a timeout,
// duplicates, and replies that were never ours; those are dropped.
func (g *Gateway) Deliver(correlationID string, payload []byte) bool {
	g.mu.Lock()
	ch, ok := g.waiters[correlationID]
	if ok {
		delete(g.waiters, correlationID)
	}
	g.mu.Unlock()

	if !ok {
		return false
	}
	ch <- result{payload: payload}
	return true
}

// FailAll resolves every pending request with err. The transport calls this
// when its reply subscription breaks; in-flight callers observe the
// transport error instead of waiting out their full timeout.
func (g *Gateway) FailAll(err error) {
	g.mu.Lock()
	failed := g.waiters
	g.waiters = make(map[string]chan result)
	g.mu.Unlock()

	for _, ch := range failed {
		ch <- result{err: err}
	}
	if len(failed) > 0 {
		g.log.Warn("failed pending requests", "count", len(failed), "err", err)
	}
}

// Pending reports the number of requests still waiting for a reply.
func (g *Gateway) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.waiters)
}

func (g *Gateway) remove(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.waiters[id]; !ok {
		return false
	}
	delete(g.waiters, id)
	return true
}
