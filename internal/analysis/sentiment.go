package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SentimentClient calls an HTTP sentiment-analysis service with a
// transformers-pipeline style contract: the request carries the raw text,
// the response is a ranked list of label/score pairs.
type SentimentClient struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func NewSentimentClient(url, apiKey string, timeout time.Duration) *SentimentClient {
	return &SentimentClient{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type sentimentRequest struct {
	Inputs string `json:"inputs"`
}

type sentimentResult struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Analyze returns the top sentiment label for the given text.
func (c *SentimentClient) Analyze(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(sentimentRequest{Inputs: text})
	if err != nil {
		return "", fmt.Errorf("encode sentiment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build sentiment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sentiment request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read sentiment response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sentiment service returned %s: %s", resp.Status, body)
	}

	var results []sentimentResult
	if err := json.Unmarshal(body, &results); err != nil {
		return "", fmt.Errorf("decode sentiment response: %w", err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("sentiment service returned no labels")
	}
	return results[0].Label, nil
}
