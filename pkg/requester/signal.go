package requester

import (
	"context"
	"sync"
)

// State distinguishes outcome variants delivered on a Signal.
type State int

const (
	StateInProgress State = iota + 1
	StateSuccess
	StateFailed
)

// Outcome is one event delivered on a Signal: an optimistic InProgress
// notification or exactly one terminal Success/Failed value.
type Outcome[T any] struct {
	State  State
	Result ParsedResponse[T] // populated on Success
	Err    *Error            // populated on Failed
}

// Terminal reports whether the outcome ends the stream.
func (o Outcome[T]) Terminal() bool { return o.State != StateInProgress }

// Signal is a single-fire, multi-subscriber outcome stream. Each
// subscription sees at most one InProgress event followed by exactly one
// terminal event, after which its channel is closed. Subscribers arriving
// after resolution receive the terminal outcome immediately.
type Signal[T any] struct {
	mu       sync.Mutex
	subs     []chan Outcome[T]
	started  bool
	terminal *Outcome[T]
}

func newSignal[T any]() *Signal[T] {
	return &Signal[T]{}
}

// Subscribe registers a listener. The returned channel is buffered for the
// full event stream, so the executor never blocks on a slow consumer.
func (s *Signal[T]) Subscribe() <-chan Outcome[T] {
	ch := make(chan Outcome[T], 2)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminal != nil {
		ch <- *s.terminal
		close(ch)
		return ch
	}
	if s.started {
		ch <- Outcome[T]{State: StateInProgress}
	}
	s.subs = append(s.subs, ch)
	return ch
}

// Wait blocks until the terminal outcome or the context expires. A request
// whose 200 body fails to decode never resolves, so callers that must not
// hang pass a context with a deadline.
func (s *Signal[T]) Wait(ctx context.Context) (Outcome[T], error) {
	ch := s.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return Outcome[T]{}, ctx.Err()
		case o, ok := <-ch:
			if !ok {
				return Outcome[T]{}, context.Canceled
			}
			if o.Terminal() {
				return o, nil
			}
		}
	}
}

// emitProgress delivers the single InProgress notification. It is a no-op
// once the signal has resolved or progress was already emitted.
func (s *Signal[T]) emitProgress() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminal != nil || s.started {
		return
	}
	s.started = true
	for _, ch := range s.subs {
		ch <- Outcome[T]{State: StateInProgress}
	}
}

// resolve publishes the terminal outcome exactly once and closes all
// subscriptions. Later calls are ignored.
func (s *Signal[T]) resolve(o Outcome[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminal != nil {
		return
	}
	s.terminal = &o
	for _, ch := range s.subs {
		ch <- o
		close(ch)
	}
	s.subs = nil
}

func success[T any](parsed ParsedResponse[T]) Outcome[T] {
	return Outcome[T]{State: StateSuccess, Result: parsed}
}

func failed[T any](err *Error) Outcome[T] {
	return Outcome[T]{State: StateFailed, Err: err}
}
