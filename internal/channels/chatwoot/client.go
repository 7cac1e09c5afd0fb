package chatwoot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

// Client talks to the Chatwoot application API as the bot agent.
type Client struct {
	host        string
	apiVersion  string
	accountID   string
	accessToken string
	httpClient  *http.Client
}

// NewClient creates a Chatwoot API client. host is the installation root
// (e.g. https://app.chatwoot.com) and accountID the bot's account.
func NewClient(host, apiVersion, accountID, accessToken string) *Client {
	if host == "" {
		panic("chatwoot: host cannot be empty")
	}
	if accountID == "" {
		panic("chatwoot: account id cannot be empty")
	}
	if apiVersion == "" {
		apiVersion = "v1"
	}
	return &Client{
		host:        host,
		apiVersion:  apiVersion,
		accountID:   accountID,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// SetHTTPClient overrides the HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// CreateTextMessage posts a plain outgoing message and returns its id.
func (c *Client) CreateTextMessage(ctx context.Context, conversationID, content string) (string, error) {
	return c.createMessage(ctx, conversationID, createMessageRequest{Content: content})
}

// CreateSelectMessage posts an input_select message with the given options.
func (c *Client) CreateSelectMessage(ctx context.Context, conversationID, content string, items []SelectItem) (string, error) {
	return c.createMessage(ctx, conversationID, createMessageRequest{
		Content:           content,
		ContentType:       "input_select",
		ContentAttributes: &contentAttributes{Items: items},
	})
}

func (c *Client) createMessage(ctx context.Context, conversationID string, req createMessageRequest) (string, error) {
	path := fmt.Sprintf("/accounts/%s/conversations/%s/messages", c.accountID, conversationID)

	var resp createMessageResponse
	if err := c.post(ctx, path, req, &resp); err != nil {
		return "", err
	}
	return strconv.FormatInt(resp.ID, 10), nil
}

// ToggleStatus changes the conversation status. Opening a pending
// conversation surfaces it to human agents.
func (c *Client) ToggleStatus(ctx context.Context, conversationID, status string) error {
	path := fmt.Sprintf("/accounts/%s/conversations/%s/toggle_status", c.accountID, conversationID)
	return c.post(ctx, path, toggleStatusRequest{Status: status}, nil)
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("chatwoot: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/%s%s", c.host, c.apiVersion, path)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("chatwoot: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api_access_token", c.accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("chatwoot: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("chatwoot: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("chatwoot: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("chatwoot: unmarshal response: %w", err)
		}
	}
	return nil
}
