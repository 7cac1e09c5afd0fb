package chatwoot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultGraphAPIBase = "https://graph.facebook.com"

// WhatsAppClient sends the interactive message types Chatwoot cannot relay,
// straight through the WhatsApp Cloud API.
type WhatsAppClient struct {
	apiVersion    string
	accessToken   string
	phoneNumberID string
	graphAPIBase  string
	httpClient    *http.Client
}

// NewWhatsAppClient creates a Graph API client for the given business phone
// number.
func NewWhatsAppClient(apiVersion, accessToken, phoneNumberID string) *WhatsAppClient {
	if apiVersion == "" {
		apiVersion = "v18.0"
	}
	return &WhatsAppClient{
		apiVersion:    apiVersion,
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		graphAPIBase:  defaultGraphAPIBase,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SetGraphAPIBase overrides the Graph API base URL (useful for testing).
func (c *WhatsAppClient) SetGraphAPIBase(base string) {
	c.graphAPIBase = base
}

type whatsAppMessage struct {
	MessagingProduct string               `json:"messaging_product"`
	RecipientType    string               `json:"recipient_type"`
	To               string               `json:"to"`
	Type             string               `json:"type"`
	Interactive      *whatsAppInteractive `json:"interactive,omitempty"`
	Location         *whatsAppLocation    `json:"location,omitempty"`
}

type whatsAppInteractive struct {
	Type   string         `json:"type"`
	Body   whatsAppBody   `json:"body"`
	Action whatsAppAction `json:"action"`
}

type whatsAppBody struct {
	Text string `json:"text"`
}

type whatsAppAction struct {
	Name string `json:"name"`
}

type whatsAppLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

// SendLocationRequest asks the user to share their location through the
// native WhatsApp location picker.
func (c *WhatsAppClient) SendLocationRequest(ctx context.Context, to, text string) error {
	return c.send(ctx, whatsAppMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "interactive",
		Interactive: &whatsAppInteractive{
			Type:   "location_request_message",
			Body:   whatsAppBody{Text: text},
			Action: whatsAppAction{Name: "send_location"},
		},
	})
}

// SendLocation sends a location pin to the user.
func (c *WhatsAppClient) SendLocation(ctx context.Context, to string, latitude, longitude float64, name, address string) error {
	return c.send(ctx, whatsAppMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "location",
		Location: &whatsAppLocation{
			Latitude:  latitude,
			Longitude: longitude,
			Name:      name,
			Address:   address,
		},
	})
}

func (c *WhatsAppClient) send(ctx context.Context, msg whatsAppMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("chatwoot: marshal whatsapp message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.graphAPIBase, c.apiVersion, c.phoneNumberID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("chatwoot: create whatsapp request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("chatwoot: whatsapp send failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("chatwoot: read whatsapp response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("chatwoot: whatsapp API status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
