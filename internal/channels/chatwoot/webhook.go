package chatwoot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/medprev-labs/medy-bot/internal/dialog"
	"github.com/medprev-labs/medy-bot/pkg/logging"
)

// TurnPublisher enqueues a parsed inbound turn for asynchronous processing.
type TurnPublisher interface {
	EnqueueTurn(ctx context.Context, input dialog.TurnInput) error
}

// WebhookHandler receives Chatwoot message_created events and feeds them to
// the dialog queue.
type WebhookHandler struct {
	publisher   TurnPublisher
	accessToken string
	logger      *logging.Logger
}

// NewWebhookHandler creates the webhook handler. accessToken, when set, must
// match the token query parameter on inbound requests.
func NewWebhookHandler(publisher TurnPublisher, accessToken string, logger *logging.Logger) *WebhookHandler {
	if publisher == nil {
		panic("chatwoot: publisher cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		publisher:   publisher,
		accessToken: accessToken,
		logger:      logger,
	}
}

// HandleInbound handles POST webhook events from Chatwoot.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	if h.accessToken != "" && r.URL.Query().Get("token") != h.accessToken {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var event WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	input, ok, err := ParseWebhookEvent(event)
	if err != nil {
		h.logger.Warn("rejecting malformed chatwoot event", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if !ok {
		// Outgoing echoes, status changes, and open conversations are not for
		// the bot.
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.publisher.EnqueueTurn(r.Context(), input); err != nil {
		h.logger.Error("failed to enqueue turn", "error", err, "conversation_id", input.ConversationID)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ParseWebhookEvent maps a Chatwoot event to a turn input. The second return
// is false when the event is not an inbound message on a pending
// conversation.
func ParseWebhookEvent(event WebhookEvent) (dialog.TurnInput, bool, error) {
	if event.Event != "message_created" ||
		event.MessageType != "incoming" ||
		// Pending means no human agent has the conversation yet.
		event.Conversation.Status != "pending" {
		return dialog.TurnInput{}, false, nil
	}

	if len(event.Conversation.Messages) == 0 {
		return dialog.TurnInput{}, false, fmt.Errorf("chatwoot: event carries no message")
	}
	message := event.Conversation.Messages[0]

	input := dialog.TurnInput{
		ConversationID: strconv.FormatInt(event.Conversation.ID, 10),
		UserID:         strconv.FormatInt(message.Sender.ID, 10),
		UserName:       message.Sender.Name,
		Text:           message.Content,
		ActivityType:   dialog.ActivityTypeMessage,
	}
	if event.Sender != nil {
		input.PhoneNumber = event.Sender.PhoneNumber
		if input.UserName == "" {
			input.UserName = event.Sender.Name
		}
	}

	for _, att := range message.Attachments {
		if att.FileType != "image" {
			continue
		}
		input.Attachments = append(input.Attachments, dialog.Attachment{
			ContentType: "image/" + att.Extension,
			ContentURL:  att.DataURL,
		})
	}

	if err := input.Validate(); err != nil {
		return dialog.TurnInput{}, false, err
	}
	return input, true, nil
}
