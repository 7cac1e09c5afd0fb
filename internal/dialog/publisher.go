package dialog

import (
	"context"
	"fmt"

	"github.com/medprev-labs/medy-bot/pkg/logging"
)

// Publisher enqueues inbound turns for asynchronous processing.
type Publisher struct {
	queue  turnQueue
	logger *logging.Logger
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue turnQueue, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("dialog: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:  queue,
		logger: logger,
	}
}

// EnqueueTurn publishes one inbound turn. Webhook handlers call this and
// return immediately; the worker picks the turn up.
func (p *Publisher) EnqueueTurn(ctx context.Context, input TurnInput) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := input.Validate(); err != nil {
		return err
	}

	payload := newTurnPayload(input)
	if err := p.queue.SendTurn(ctx, payload); err != nil {
		return fmt.Errorf("dialog: failed to enqueue turn: %w", err)
	}

	p.logger.Debug("turn enqueued", "job_id", payload.ID, "conversation_id", input.ConversationID)
	return nil
}
