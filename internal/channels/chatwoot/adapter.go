package chatwoot

import (
	"context"
	"fmt"

	"github.com/medprev-labs/medy-bot/internal/dialog"
	"github.com/medprev-labs/medy-bot/pkg/logging"
)

// Adapter delivers dialog activities over Chatwoot, reaching through to the
// WhatsApp Cloud API for the interactive types Chatwoot cannot relay.
type Adapter struct {
	client   *Client
	whatsapp *WhatsAppClient
	logger   *logging.Logger
}

var _ dialog.ChannelAdapter = (*Adapter)(nil)

// NewAdapter wires the channel adapter. whatsapp may be nil; location
// activities then degrade to plain text messages.
func NewAdapter(client *Client, whatsapp *WhatsAppClient, logger *logging.Logger) *Adapter {
	if client == nil {
		panic("chatwoot: client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Adapter{
		client:   client,
		whatsapp: whatsapp,
		logger:   logger,
	}
}

// Send delivers one activity and returns the provider message id when the
// channel reports one.
func (a *Adapter) Send(ctx context.Context, ref dialog.ConversationRef, activity dialog.OutboundActivity) (string, error) {
	switch activity.Kind {
	case dialog.ActivityText:
		return a.client.CreateTextMessage(ctx, ref.ConversationID, activity.Text)

	case dialog.ActivityChoice:
		items := make([]SelectItem, 0, len(activity.Options))
		for _, opt := range activity.Options {
			items = append(items, SelectItem{Title: opt.Title, Value: opt.Value})
		}
		return a.client.CreateSelectMessage(ctx, ref.ConversationID, activity.Text, items)

	case dialog.ActivityLocationRequest:
		if a.whatsapp == nil || ref.PhoneNumber == "" {
			// No direct WhatsApp path; the text still carries the ask.
			return a.client.CreateTextMessage(ctx, ref.ConversationID, activity.Text)
		}
		if err := a.whatsapp.SendLocationRequest(ctx, ref.PhoneNumber, activity.Text); err != nil {
			return "", err
		}
		return "", nil

	case dialog.ActivityLocation:
		if activity.Coordinates == nil {
			return "", fmt.Errorf("chatwoot: location activity without coordinates")
		}
		if a.whatsapp == nil || ref.PhoneNumber == "" {
			return "", fmt.Errorf("chatwoot: location activity requires a whatsapp recipient")
		}
		err := a.whatsapp.SendLocation(ctx, ref.PhoneNumber,
			activity.Coordinates.Latitude, activity.Coordinates.Longitude,
			activity.Name, activity.Address)
		return "", err

	case dialog.ActivityHandoff:
		// Opening the conversation hands it to the human agent queue.
		return "", a.client.ToggleStatus(ctx, ref.ConversationID, "open")

	default:
		a.logger.Warn("unsupported outbound activity", "kind", activity.Kind)
		return "", fmt.Errorf("chatwoot: unsupported activity kind %q", activity.Kind)
	}
}
