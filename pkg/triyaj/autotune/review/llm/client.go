package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cognicore/triyaj/pkg/triyaj/autotune/synonyms"
)

// Client calls an external LLM endpoint to approve/reject synonym suggestions.
type Client struct {
	Endpoint string
	APIKey   string

	HTTPClient *http.Client
	Prompt     string
}

type requestPayload struct {
	Prompt string `json:"prompt"`
}

type responsePayload struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// Approve implements synonyms.Reviewer.
func (c *Client) Approve(ctx context.Context, sugg synonyms.Suggestion) (bool, error) {
	resp, err := c.call(ctx, c.suggestionPrompt(sugg))
	if err != nil {
		return false, err
	}
	return resp.Approve, nil
}

func (c *Client) call(ctx context.Context, prompt string) (*responsePayload, error) {
	if c.Endpoint == "" {
		return nil, fmt.Errorf("llm reviewer: endpoint required")
	}

	body, err := json.Marshal(requestPayload{Prompt: prompt})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("llm reviewer: http %d", resp.StatusCode)
	}

	var payload responsePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) suggestionPrompt(sugg synonyms.Suggestion) string {
	tpl := c.Prompt
	if tpl == "" {
		tpl = "Turkish triage sessions used the phrase '%s' %d times without matching a known symptom. The closest canonical symptom is '%s' (confidence %.2f). Approve adding this synonym? Reply with JSON {\"approve\": true|false}."
	}
	return fmt.Sprintf(tpl, sugg.Variant, sugg.Support, sugg.Canonical, sugg.Score)
}
