package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// WebAppClient appends score rows to the shared score sheet through its
// Google Apps Script web app endpoint. The sheet is a convenience mirror for
// teachers; the local store stays authoritative, so callers treat failures
// here as non-fatal.
type WebAppClient struct {
	URL    string
	Client *http.Client
}

// NewWebAppClient creates a client for the given web app URL.
func NewWebAppClient(url string) *WebAppClient {
	return &WebAppClient{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webAppPayload struct {
	Action string   `json:"action"`
	Data   []string `json:"data"`
}

// AppendScore posts one score as an appendRow action.
func (c *WebAppClient) AppendScore(ctx context.Context, score *Score) error {
	payload := webAppPayload{
		Action: "appendRow",
		Data: []string{
			score.StudentName,
			score.QuestionID,
			score.QuestionTitle,
			strconv.Itoa(score.Overall),
			strconv.Itoa(score.TimeComplexity),
			strconv.Itoa(score.SpaceComplexity),
			strconv.Itoa(score.Readability),
			strconv.Itoa(score.Stability),
			score.UpdatedAt.Format("2006-01-02 15:04:05"),
			score.Code,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("posting score: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("web app returned %d", resp.StatusCode)
	}

	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("web app rejected row: %s", result.Message)
	}
	return nil
}
