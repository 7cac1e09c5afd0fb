package dialog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/medprev-labs/medy-bot/pkg/logging"
)

// sqsAPI is the slice of the SQS client the queue consumes.
type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSQueue carries turn payloads over AWS/LocalStack SQS. Payloads are
// marshaled to JSON message bodies here, so the worker and publisher only
// ever see typed turns.
type SQSQueue struct {
	client   sqsAPI
	queueURL string
	logger   *logging.Logger
}

// NewSQSQueue creates a turn queue on top of the provided SQS client.
func NewSQSQueue(client sqsAPI, queueURL string, logger *logging.Logger) *SQSQueue {
	if client == nil {
		panic("dialog: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("dialog: SQS queueURL cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SQSQueue{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// SendTurn marshals the payload and publishes it.
func (q *SQSQueue) SendTurn(ctx context.Context, payload turnPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("dialog: failed to encode turn payload: %w", err)
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("dialog: failed to send turn: %w", err)
	}
	return nil
}

// ReceiveTurns long-polls the queue and decodes the received bodies. A body
// that does not decode is a poison message: it is deleted on the spot so it
// cannot loop back through redelivery.
func (q *SQSQueue) ReceiveTurns(ctx context.Context, maxTurns int, waitSeconds int) ([]queuedTurn, error) {
	output, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: int32(maxTurns),
		WaitTimeSeconds:     int32(waitSeconds),
	})
	if err != nil {
		return nil, fmt.Errorf("dialog: failed to receive turns: %w", err)
	}

	turns := make([]queuedTurn, 0, len(output.Messages))
	for _, msg := range output.Messages {
		var payload turnPayload
		if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &payload); err != nil {
			q.logger.Error("dropping malformed turn message",
				"error", err,
				"message_id", aws.ToString(msg.MessageId),
			)
			if err := q.Delete(ctx, aws.ToString(msg.ReceiptHandle)); err != nil {
				q.logger.Error("failed to delete malformed turn message", "error", err)
			}
			continue
		}
		turns = append(turns, queuedTurn{
			Payload:       payload,
			ReceiptHandle: aws.ToString(msg.ReceiptHandle),
		})
	}
	return turns, nil
}

// Delete acknowledges one received turn.
func (q *SQSQueue) Delete(ctx context.Context, receiptHandle string) error {
	if receiptHandle == "" {
		return nil
	}

	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("dialog: failed to delete turn: %w", err)
	}
	return nil
}
