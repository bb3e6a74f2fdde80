package requester

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSignalLateSubscriberGetsTerminal(t *testing.T) {
	sig := newSignal[int]()
	sig.emitProgress()
	item := 42
	sig.resolve(success(ParsedResponse[int]{Item: &item}))

	ch := sig.Subscribe()
	out, ok := <-ch
	if !ok {
		t.Fatalf("expected terminal outcome for late subscriber")
	}
	if out.State != StateSuccess || out.Result.Item == nil || *out.Result.Item != 42 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed after terminal outcome")
	}
}

func TestSignalResolveIsSingleFire(t *testing.T) {
	sig := newSignal[int]()
	ch := sig.Subscribe()

	sig.resolve(failed[int](newStatusError(500)))
	sig.resolve(failed[int](newStatusError(404)))

	out := <-ch
	if out.Err == nil || out.Err.Status != 500 {
		t.Fatalf("expected first resolution to win, got %+v", out)
	}
	if _, ok := <-ch; ok {
		t.Fatalf("expected no further events")
	}
}

func TestSignalProgressReplayedToMidFlightSubscriber(t *testing.T) {
	sig := newSignal[int]()
	sig.emitProgress()

	ch := sig.Subscribe()
	out := <-ch
	if out.State != StateInProgress {
		t.Fatalf("expected replayed InProgress, got %+v", out)
	}
}

func TestSignalProgressEmittedOnce(t *testing.T) {
	sig := newSignal[int]()
	ch := sig.Subscribe()
	sig.emitProgress()
	sig.emitProgress()
	sig.resolve(failed[int](newStatusError(404)))

	progress := 0
	for out := range ch {
		if out.State == StateInProgress {
			progress++
		}
	}
	if progress != 1 {
		t.Fatalf("expected exactly one InProgress event, got %d", progress)
	}
}

func TestSignalWaitHonorsContext(t *testing.T) {
	sig := newSignal[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := sig.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestSignalWaitSkipsProgress(t *testing.T) {
	sig := newSignal[int]()
	go func() {
		sig.emitProgress()
		sig.resolve(failed[int](newStatusError(503)))
	}()

	out, err := sig.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if out.State != StateFailed || out.Err.Status != 503 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}
