// Package analysis holds clients for the external emotion, sentiment and
// speech-recognition services used to enrich prompts.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// EmotionClient calls an HTTP face-emotion detection service. The service
// accepts an uploaded media file and returns per-face emotion scores.
type EmotionClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewEmotionClient(baseURL, apiKey string, timeout time.Duration) *EmotionClient {
	return &EmotionClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type faceResult struct {
	Emotions map[string]float64 `json:"emotions"`
}

type imageResponse struct {
	Faces []faceResult `json:"faces"`
}

type videoResponse struct {
	Frames []struct {
		Faces []faceResult `json:"faces"`
	} `json:"frames"`
}

// AnalyzeImage returns the dominant emotion for each face detected in the
// image. An image with no faces yields an empty slice.
func (c *EmotionClient) AnalyzeImage(ctx context.Context, path string) ([]string, error) {
	body, err := c.upload(ctx, c.baseURL+"/v1/image", path)
	if err != nil {
		return nil, err
	}

	var resp imageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode emotion response: %w", err)
	}

	emotions := make([]string, 0, len(resp.Faces))
	for _, face := range resp.Faces {
		emotions = append(emotions, dominantEmotion(face.Emotions))
	}
	return emotions, nil
}

// AnalyzeVideo returns the dominant emotion for each face in each sampled
// frame. A video with no detected faces yields ["neutral"].
func (c *EmotionClient) AnalyzeVideo(ctx context.Context, path string) ([]string, error) {
	body, err := c.upload(ctx, c.baseURL+"/v1/video", path)
	if err != nil {
		return nil, err
	}

	var resp videoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode emotion response: %w", err)
	}

	var emotions []string
	for _, frame := range resp.Frames {
		for _, face := range frame.Faces {
			emotions = append(emotions, dominantEmotion(face.Emotions))
		}
	}
	if len(emotions) == 0 {
		return []string{"neutral"}, nil
	}
	return emotions, nil
}

func (c *EmotionClient) upload(ctx context.Context, url, path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open media file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy media file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("build emotion request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("emotion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read emotion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("emotion service returned %s: %s", resp.Status, body)
	}
	return body, nil
}

// dominantEmotion picks the highest-scored label, breaking ties by name so
// results are stable. Empty score maps map to "neutral".
func dominantEmotion(scores map[string]float64) string {
	if len(scores) == 0 {
		return "neutral"
	}
	labels := make([]string, 0, len(scores))
	for label := range scores {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	best := labels[0]
	for _, label := range labels[1:] {
		if scores[label] > scores[best] {
			best = label
		}
	}
	return best
}
