package dialog

import (
	"context"
	"time"
)

// MemoryQueue is a turnQueue holding payloads in a buffered channel. It backs
// single-process deployments and tests; turns never leave the process, so
// there is no wire encoding and Delete has nothing to acknowledge.
type MemoryQueue struct {
	ch chan turnPayload
}

// NewMemoryQueue creates a MemoryQueue with the provided buffer capacity.
func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 128
	}
	return &MemoryQueue{
		ch: make(chan turnPayload, buffer),
	}
}

// SendTurn enqueues a payload, blocking until there is room or ctx is done.
func (q *MemoryQueue) SendTurn(ctx context.Context, payload turnPayload) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case q.ch <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReceiveTurns returns up to maxTurns payloads. With waitSeconds > 0 an empty
// queue is polled for that long before returning nothing; with waitSeconds 0
// the call blocks until a turn arrives or ctx is done.
func (q *MemoryQueue) ReceiveTurns(ctx context.Context, maxTurns int, waitSeconds int) ([]queuedTurn, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if maxTurns <= 0 {
		maxTurns = 1
	}

	// A nil timeout channel blocks forever, matching waitSeconds == 0.
	var timeout <-chan time.Time
	if waitSeconds > 0 {
		timer := time.NewTimer(time.Duration(waitSeconds) * time.Second)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeout:
		return nil, nil
	case payload := <-q.ch:
		turns := []queuedTurn{{Payload: payload}}
		for len(turns) < maxTurns {
			select {
			case next := <-q.ch:
				turns = append(turns, queuedTurn{Payload: next})
			default:
				return turns, nil
			}
		}
		return turns, nil
	}
}

// Delete is a no-op; in-memory turns are gone once received.
func (q *MemoryQueue) Delete(_ context.Context, _ string) error {
	return nil
}
