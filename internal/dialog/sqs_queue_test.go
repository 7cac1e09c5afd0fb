package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/medprev-labs/medy-bot/pkg/logging"
)

type fakeSQSAPI struct {
	sentBodies []string
	messages   []sqstypes.Message
	receiveErr error
	deleted    []string
}

func (f *fakeSQSAPI) SendMessage(ctx context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.sentBodies = append(f.sentBodies, aws.ToString(params.MessageBody))
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQSAPI) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if f.receiveErr != nil {
		return nil, f.receiveErr
	}
	return &sqs.ReceiveMessageOutput{Messages: f.messages}, nil
}

func (f *fakeSQSAPI) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func TestSQSQueue_SendTurnMarshalsPayload(t *testing.T) {
	api := &fakeSQSAPI{}
	q := NewSQSQueue(api, "https://sqs.example/turns", logging.Default())

	payload := newTurnPayload(TurnInput{ConversationID: "conv-1", UserID: "u-1", Text: "oi"})
	if err := q.SendTurn(context.Background(), payload); err != nil {
		t.Fatalf("SendTurn: %v", err)
	}

	if len(api.sentBodies) != 1 {
		t.Fatalf("expected one sent message, got %d", len(api.sentBodies))
	}
	var got turnPayload
	if err := json.Unmarshal([]byte(api.sentBodies[0]), &got); err != nil {
		t.Fatalf("body is not a turn payload: %v", err)
	}
	if got.ID != payload.ID || got.Input.ConversationID != "conv-1" {
		t.Fatalf("payload did not survive marshaling: %+v", got)
	}
}

func TestSQSQueue_ReceiveTurnsDecodesBodies(t *testing.T) {
	body, err := json.Marshal(turnPayload{ID: "job-1", Input: TurnInput{ConversationID: "conv-1", UserID: "u-1", Text: "oi"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	api := &fakeSQSAPI{messages: []sqstypes.Message{{
		MessageId:     aws.String("m-1"),
		Body:          aws.String(string(body)),
		ReceiptHandle: aws.String("rh-1"),
	}}}
	q := NewSQSQueue(api, "https://sqs.example/turns", logging.Default())

	turns, err := q.ReceiveTurns(context.Background(), 5, 0)
	if err != nil {
		t.Fatalf("ReceiveTurns: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("expected one turn, got %d", len(turns))
	}
	if turns[0].Payload.ID != "job-1" || turns[0].ReceiptHandle != "rh-1" {
		t.Fatalf("unexpected turn: %+v", turns[0])
	}
}

func TestSQSQueue_MalformedBodyIsDroppedAndDeleted(t *testing.T) {
	body, err := json.Marshal(turnPayload{ID: "job-2", Input: TurnInput{ConversationID: "conv-2", UserID: "u-1"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	api := &fakeSQSAPI{messages: []sqstypes.Message{
		{
			MessageId:     aws.String("m-bad"),
			Body:          aws.String("{not json"),
			ReceiptHandle: aws.String("rh-bad"),
		},
		{
			MessageId:     aws.String("m-2"),
			Body:          aws.String(string(body)),
			ReceiptHandle: aws.String("rh-2"),
		},
	}}
	q := NewSQSQueue(api, "https://sqs.example/turns", logging.Default())

	turns, err := q.ReceiveTurns(context.Background(), 5, 0)
	if err != nil {
		t.Fatalf("ReceiveTurns: %v", err)
	}
	if len(turns) != 1 || turns[0].Payload.ID != "job-2" {
		t.Fatalf("expected only the decodable turn, got %+v", turns)
	}
	if len(api.deleted) != 1 || api.deleted[0] != "rh-bad" {
		t.Fatalf("poison message must be deleted, got deletes %v", api.deleted)
	}
}

func TestSQSQueue_ReceiveErrorPropagates(t *testing.T) {
	api := &fakeSQSAPI{receiveErr: errors.New("throttled")}
	q := NewSQSQueue(api, "https://sqs.example/turns", logging.Default())

	if _, err := q.ReceiveTurns(context.Background(), 5, 0); err == nil {
		t.Fatal("expected the receive error to propagate")
	}
}
