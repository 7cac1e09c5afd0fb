package dialog

import (
	"context"

	"github.com/google/uuid"
)

// turnPayload is one inbound turn travelling through the queue. The JSON tags
// define the SQS wire format; the in-memory queue carries the struct as is.
type turnPayload struct {
	ID    string    `json:"id"`
	Input TurnInput `json:"input"`
}

func newTurnPayload(input TurnInput) turnPayload {
	return turnPayload{ID: uuid.NewString(), Input: input}
}

// queuedTurn is a received payload plus the handle needed to acknowledge it.
// In-memory turns have no handle; acknowledging them is a no-op.
type queuedTurn struct {
	Payload       turnPayload
	ReceiptHandle string
}

// turnQueue moves turn payloads between the webhook and the worker, so
// development can run on an in-process channel and production on SQS without
// either side touching the wire encoding.
type turnQueue interface {
	SendTurn(ctx context.Context, payload turnPayload) error
	ReceiveTurns(ctx context.Context, maxTurns int, waitSeconds int) ([]queuedTurn, error)
	Delete(ctx context.Context, receiptHandle string) error
}
