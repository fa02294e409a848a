package reqreply

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"
)

// echoPublisher replies asynchronously to every publish, echoing the request
// payload under the request's own correlation id after a random delay so
// replies land out of order.
type echoPublisher struct {
	gw       *Gateway
	maxDelay time.Duration
}

func (p *echoPublisher) Publish(_ context.Context, _ string, correlationID string, payload []byte) error {
	go func() {
		if p.maxDelay > 0 {
			time.Sleep(time.Duration(rand.Int63n(int64(p.maxDelay))))
		}
		p.gw.Deliver(correlationID, append([]byte("re:"), payload...))
	}()
	return nil
}

type silentPublisher struct{}

func (silentPublisher) Publish(context.Context, string, string, []byte) error { return nil }

// recordingPublisher never replies but remembers the correlation ids it saw.
type recordingPublisher struct {
	mu  sync.Mutex
	ids []string
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, correlationID string, _ []byte) error {
	p.mu.Lock()
	p.ids = append(p.ids, correlationID)
	p.mu.Unlock()
	return nil
}

type failingPublisher struct{ err error }

func (p failingPublisher) Publish(context.Context, string, string, []byte) error { return p.err }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequest_CorrelatesConcurrentReplies(t *testing.T) {
	pub := &echoPublisher{maxDelay: 20 * time.Millisecond}
	gw := NewGateway(testLogger(), pub, time.Second)
	pub.gw = gw

	const n = 64
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			want := fmt.Sprintf("req-%d", i)
			reply, err := gw.Request(context.Background(), "card.check", []byte(want))
			if err != nil {
				errs <- err
				return
			}
			if got := string(reply); got != "re:"+want {
				errs <- fmt.Errorf("request %d got foreign reply %q", i, got)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if got := gw.Pending(); got != 0 {
		t.Errorf("pending after completion = %d, want 0", got)
	}
}

func TestRequest_TimeoutThenLateReplyIsDropped(t *testing.T) {
	pub := &recordingPublisher{}
	gw := NewGateway(testLogger(), pub, 30*time.Millisecond)

	_, err := gw.Request(context.Background(), "card.check", []byte("x"))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if got := gw.Pending(); got != 0 {
		t.Fatalf("pending after timeout = %d, want 0", got)
	}

	// The request resolved once, as a timeout; its own reply arriving late
	// finds no waiter and is dropped.
	if len(pub.ids) != 1 {
		t.Fatalf("published %d requests, want 1", len(pub.ids))
	}
	if gw.Deliver(pub.ids[0], []byte("late")) {
		t.Error("late reply matched a waiter after timeout")
	}
}

func TestRequest_PublishErrorRemovesWaiter(t *testing.T) {
	wantErr := errors.New("broker down")
	gw := NewGateway(testLogger(), failingPublisher{err: wantErr}, time.Second)

	_, err := gw.Request(context.Background(), "card.check", []byte("x"))
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if got := gw.Pending(); got != 0 {
		t.Errorf("pending after publish failure = %d, want 0", got)
	}
}

func TestRequest_ContextCancellation(t *testing.T) {
	gw := NewGateway(testLogger(), silentPublisher{}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := gw.Request(ctx, "card.check", []byte("x"))
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got := gw.Pending(); got != 0 {
		t.Errorf("pending after cancellation = %d, want 0", got)
	}
}

func TestFailAll_ResolvesEveryPendingRequest(t *testing.T) {
	gw := NewGateway(testLogger(), silentPublisher{}, time.Second)
	wantErr := errors.New("subscription lost")

	const n = 8
	done := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := gw.Request(context.Background(), "card.check", []byte("x"))
			done <- err
		}()
	}

	// Wait for all waiters to register before breaking the transport.
	deadline := time.Now().Add(time.Second)
	for gw.Pending() < n {
		if time.Now().After(deadline) {
			t.Fatalf("only %d of %d waiters registered", gw.Pending(), n)
		}
		time.Sleep(time.Millisecond)
	}
	gw.FailAll(wantErr)

	for i := 0; i < n; i++ {
		if err := <-done; !errors.Is(err, wantErr) {
			t.Errorf("request %d: err = %v, want %v", i, err, wantErr)
		}
	}
	if got := gw.Pending(); got != 0 {
		t.Errorf("pending after FailAll = %d, want 0", got)
	}
}

func TestPending_StaysCleanAcrossMixedOutcomes(t *testing.T) {
	pub := &echoPublisher{}
	gw := NewGateway(testLogger(), pub, 30*time.Millisecond)
	pub.gw = gw

	// Successful round trips.
	for i := 0; i < 5; i++ {
		if _, err := gw.Request(context.Background(), "card.check", []byte("ok")); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}

	// Timed-out requests against a mute transport.
	mute := NewGateway(testLogger(), silentPublisher{}, 20*time.Millisecond)
	for i := 0; i < 5; i++ {
		if _, err := mute.Request(context.Background(), "card.check", []byte("x")); !errors.Is(err, ErrTimeout) {
			t.Fatalf("request %d: err = %v, want ErrTimeout", i, err)
		}
	}

	if got := gw.Pending(); got != 0 {
		t.Errorf("echo gateway pending = %d, want 0", got)
	}
	if got := mute.Pending(); got != 0 {
		t.Errorf("mute gateway pending = %d, want 0", got)
	}
}
