package analysis

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// SpeechClient transcribes voice notes through a Whisper-compatible
// transcription endpoint.
type SpeechClient struct {
	api *openai.Client
}

func NewSpeechClient(apiKey, baseURL string) *SpeechClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &SpeechClient{api: openai.NewClientWithConfig(cfg)}
}

// Transcribe converts the audio file at path into text.
func (c *SpeechClient) Transcribe(ctx context.Context, path string) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: path,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	return resp.Text, nil
}
