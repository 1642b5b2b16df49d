package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"lifecoach/internal/logging"
)

// EmotionAnalyzer tags faces in images and videos with emotion labels.
type EmotionAnalyzer interface {
	AnalyzeImage(ctx context.Context, path string) ([]string, error)
	AnalyzeVideo(ctx context.Context, path string) ([]string, error)
}

// Transcriber converts a voice note into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// SentimentAnalyzer labels the sentiment of a text.
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string) (string, error)
}

// MediaService downloads Telegram media to local disk and turns it into
// enriched prompt text. Analyzer failures degrade to placeholder labels
// instead of failing the message; only download failures are fatal.
type MediaService struct {
	dir        string
	httpClient *http.Client
	emotions   EmotionAnalyzer
	speech     Transcriber
	sentiment  SentimentAnalyzer
}

func NewMediaService(dir string, emotions EmotionAnalyzer, speech Transcriber, sentiment SentimentAnalyzer) *MediaService {
	return &MediaService{
		dir:        dir,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		emotions:   emotions,
		speech:     speech,
		sentiment:  sentiment,
	}
}

// Download fetches fileURL into the downloads dir under a unique name, so
// concurrent users never overwrite each other's media.
func (s *MediaService) Download(ctx context.Context, fileURL, ext string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create downloads dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download media: unexpected status %s", resp.Status)
	}

	path := filepath.Join(s.dir, uuid.NewString()+ext)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write media file: %w", err)
	}
	return path, nil
}

// DescribePhoto returns the enriched prompt for a downloaded photo.
func (s *MediaService) DescribePhoto(ctx context.Context, path string) string {
	emotions, err := s.emotions.AnalyzeImage(ctx, path)
	if err != nil {
		logging.WithComponent("media").WithError(err).Warn("image analysis failed")
		emotions = []string{"error"}
	}
	return fmt.Sprintf("Detected emotions in the image: %s.\nGenerate a response based on these emotions.",
		strings.Join(emotions, ", "))
}

// DescribeVoice transcribes the voice note, labels its sentiment and returns
// the enriched prompt.
func (s *MediaService) DescribeVoice(ctx context.Context, path string) string {
	text, err := s.speech.Transcribe(ctx, path)
	if err != nil {
		logging.WithComponent("media").WithError(err).Warn("transcription failed")
		text = "error"
	}

	label := "neutral"
	if text != "error" {
		label, err = s.sentiment.Analyze(ctx, text)
		if err != nil {
			logging.WithComponent("media").WithError(err).Warn("sentiment analysis failed")
			label = "neutral"
		}
	}

	return fmt.Sprintf("User's sentiment: %s.\nUser's message: %s\nResponse:", label, text)
}

// DescribeVideo returns the enriched prompt for a downloaded video.
func (s *MediaService) DescribeVideo(ctx context.Context, path string) string {
	emotions, err := s.emotions.AnalyzeVideo(ctx, path)
	if err != nil {
		logging.WithComponent("media").WithError(err).Warn("video analysis failed")
		emotions = []string{"error"}
	}
	return fmt.Sprintf("Detected emotions in the video: %s.\nGenerate a response based on these emotions.",
		strings.Join(emotions, ", "))
}
