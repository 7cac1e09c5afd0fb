package dialog

import "strings"

// ActivityTypeMessage is the only inbound activity type the engine consumes.
const ActivityTypeMessage = "message"

// ActivityKind enumerates the outbound activity shapes the channel can deliver.
type ActivityKind string

const (
	ActivityText            ActivityKind = "text"
	ActivityChoice          ActivityKind = "choice"
	ActivityLocationRequest ActivityKind = "locationRequest"
	ActivityLocation        ActivityKind = "location"
	ActivityHandoff         ActivityKind = "handoff"
)

// ChoiceOption is one selectable item on a choice activity.
type ChoiceOption struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// Coordinates is a latitude/longitude pair on a location activity.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// OutboundActivity is one message the engine wants delivered to the user.
type OutboundActivity struct {
	Kind        ActivityKind   `json:"kind"`
	Text        string         `json:"text,omitempty"`
	Options     []ChoiceOption `json:"options,omitempty"`
	Coordinates *Coordinates   `json:"coordinates,omitempty"`
	Name        string         `json:"name,omitempty"`
	Address     string         `json:"address,omitempty"`
}

// Text builds a plain text activity.
func Text(text string) OutboundActivity {
	return OutboundActivity{Kind: ActivityText, Text: text}
}

// Attachment is an inbound media reference.
type Attachment struct {
	ContentType string `json:"content_type"`
	ContentURL  string `json:"content_url"`
}

// IsImage reports whether the attachment carries image content.
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.ContentType, "image")
}

// TurnInput is the normalized representation of one inbound message.
type TurnInput struct {
	ConversationID string       `json:"conversation_id"`
	UserID         string       `json:"user_id"`
	UserName       string       `json:"user_name,omitempty"`
	PhoneNumber    string       `json:"phone_number,omitempty"`
	Text           string       `json:"text,omitempty"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	ActivityType   string       `json:"activity_type,omitempty"`
}

// Validate checks the fields the engine cannot work without.
func (t TurnInput) Validate() error {
	if strings.TrimSpace(t.ConversationID) == "" {
		return errInvalid("conversation id is required")
	}
	if strings.TrimSpace(t.UserID) == "" {
		return errInvalid("user id is required")
	}
	return nil
}

// FirstImage returns the first image attachment, if any.
func (t TurnInput) FirstImage() (Attachment, bool) {
	for _, att := range t.Attachments {
		if att.IsImage() {
			return att, true
		}
	}
	return Attachment{}, false
}

// Ref builds the channel routing reference for replies to this turn.
func (t TurnInput) Ref() ConversationRef {
	return ConversationRef{
		ConversationID: t.ConversationID,
		PhoneNumber:    t.PhoneNumber,
		UserName:       t.UserName,
	}
}

// ConversationRef identifies the channel conversation an outbound activity targets.
type ConversationRef struct {
	ConversationID string `json:"conversation_id"`
	PhoneNumber    string `json:"phone_number,omitempty"`
	UserName       string `json:"user_name,omitempty"`
}

// StepResult is the validated value a completed prompt produced. Only the
// field matching the issuing prompt kind is meaningful.
type StepResult struct {
	Text       string      `json:"text,omitempty"`
	Confirmed  bool        `json:"confirmed,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}
