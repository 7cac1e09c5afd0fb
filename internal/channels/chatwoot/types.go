package chatwoot

// Webhook payload shapes. Chatwoot posts the full conversation object with
// every message_created event; only the fields the bot consumes are decoded.

// WebhookEvent is the inbound Chatwoot webhook body.
type WebhookEvent struct {
	Event        string              `json:"event"`
	MessageType  string              `json:"message_type"`
	Conversation WebhookConversation `json:"conversation"`
	Sender       *WebhookSender      `json:"sender"`
}

// WebhookConversation carries the conversation the event belongs to.
type WebhookConversation struct {
	ID       int64            `json:"id"`
	Channel  string           `json:"channel"`
	Status   string           `json:"status"`
	Messages []WebhookMessage `json:"messages"`
}

// WebhookMessage is one message inside the webhook conversation payload.
type WebhookMessage struct {
	ID          int64               `json:"id"`
	Content     string              `json:"content"`
	InboxID     int64               `json:"inbox_id"`
	AccountID   int64               `json:"account_id"`
	Attachments []WebhookAttachment `json:"attachments"`
	Sender      WebhookMsgSender    `json:"sender"`
}

// WebhookAttachment is a media attachment on an inbound message.
type WebhookAttachment struct {
	FileType  string `json:"file_type"`
	Extension string `json:"extension"`
	DataURL   string `json:"data_url"`
	ThumbURL  string `json:"thumb_url"`
}

// WebhookMsgSender identifies who wrote the message.
type WebhookMsgSender struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// WebhookSender is the contact the conversation belongs to.
type WebhookSender struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
}

// Outbound message shapes for the Chatwoot application API.

// SelectItem is one option on an input_select message.
type SelectItem struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

type contentAttributes struct {
	Items []SelectItem `json:"items"`
}

type createMessageRequest struct {
	Content           string             `json:"content"`
	ContentType       string             `json:"content_type,omitempty"`
	ContentAttributes *contentAttributes `json:"content_attributes,omitempty"`
}

type createMessageResponse struct {
	ID int64 `json:"id"`
}

type toggleStatusRequest struct {
	Status string `json:"status"`
}
