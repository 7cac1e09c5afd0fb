// Package cart builds pre-filled scheduling cart links for lab exams. Exam
// names are resolved against the procedure search API, then their codes are
// encoded into the public scheduling URL.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/medprev-labs/medy-bot/pkg/logging"
)

const searchLimit = 20

// Builder resolves exam names into a cart URL.
type Builder struct {
	searchBaseURL string
	cartBaseURL   string
	city          string
	httpClient    *http.Client
	logger        *logging.Logger
}

// BuilderOption customizes the builder.
type BuilderOption func(*Builder)

// WithHTTPClient overrides the client used for procedure lookups.
func WithHTTPClient(client *http.Client) BuilderOption {
	return func(b *Builder) {
		if client != nil {
			b.httpClient = client
		}
	}
}

// NewBuilder wires a cart link builder. searchBaseURL is the procedure search
// API root, cartBaseURL the public scheduling page, and city the fixed city
// filter applied to every cart.
func NewBuilder(searchBaseURL, cartBaseURL, city string, logger *logging.Logger, opts ...BuilderOption) *Builder {
	if searchBaseURL == "" {
		panic("cart: search base url cannot be empty")
	}
	if cartBaseURL == "" {
		panic("cart: cart base url cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}

	b := &Builder{
		searchBaseURL: searchBaseURL,
		cartBaseURL:   cartBaseURL,
		city:          city,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		logger:        logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildURL looks up each exam name and returns the scheduling URL carrying the
// resolved codes in the order the names were given. Names the search cannot
// resolve, including per-item lookup failures, are logged and left out of the
// cart; an error is returned only when lookups failed and nothing resolved.
func (b *Builder) BuildURL(ctx context.Context, examNames []string) (string, error) {
	codes := make([]string, 0, len(examNames))
	var lookupErr error
	for _, name := range examNames {
		code, err := b.lookupCode(ctx, name)
		if err != nil {
			b.logger.Warn("procedure search failed, omitting exam", "exam", name, "error", err)
			lookupErr = err
			continue
		}
		if code == "" {
			b.logger.Warn("exam not found in procedure search", "exam", name)
			continue
		}
		codes = append(codes, code)
	}
	if len(codes) == 0 && lookupErr != nil {
		return "", fmt.Errorf("cart: no exams resolved: %w", lookupErr)
	}

	params := url.Values{}
	params.Set("cidade", b.city)
	for _, code := range codes {
		params.Add("exames", code)
	}
	return b.cartBaseURL + "?" + params.Encode(), nil
}

// lookupCode returns the code of the first procedure matching name, or an
// empty string when the search has no results.
func (b *Builder) lookupCode(ctx context.Context, name string) (string, error) {
	searchURL := fmt.Sprintf("%s/search/search-by-type?search=%s&limit=%d",
		b.searchBaseURL, url.QueryEscape(name), searchLimit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", fmt.Errorf("cart: invalid search url: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cart: procedure search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cart: procedure search returned status %d", resp.StatusCode)
	}

	var payload struct {
		Results []struct {
			Code string `json:"code"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("cart: failed to decode search response: %w", err)
	}

	if len(payload.Results) == 0 {
		return "", nil
	}
	return payload.Results[0].Code, nil
}
