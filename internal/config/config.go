package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config keeps runtime settings for the bot and the webhook server.
type Config struct {
	TelegramToken       string
	MongoURI            string
	StripeAPIKey        string
	StripeWebhookSecret string
	PublicBaseURL       string

	GroqAPIKey  string
	GroqBaseURL string
	GroqModel   string

	EmotionAPIURL   string
	EmotionAPIKey   string
	SentimentAPIURL string
	SentimentAPIKey string

	HTTPAddr         string
	DownloadsDir     string
	FreeMessageLimit int
	MediaRetention   time.Duration
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		TelegramToken:       strings.TrimSpace(os.Getenv("TELEGRAM_BOT_API_TOKEN")),
		MongoURI:            strings.TrimSpace(os.Getenv("MONGO_URI")),
		StripeAPIKey:        strings.TrimSpace(os.Getenv("STRIPE_API_KEY")),
		StripeWebhookSecret: strings.TrimSpace(os.Getenv("STRIPE_WEBHOOK_SECRET")),
		PublicBaseURL:       strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")), "/"),
		GroqAPIKey:          strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
		GroqBaseURL:         strings.TrimSpace(os.Getenv("GROQ_BASE_URL")),
		GroqModel:           strings.TrimSpace(os.Getenv("GROQ_MODEL")),
		EmotionAPIURL:       strings.TrimSpace(os.Getenv("EMOTION_API_URL")),
		EmotionAPIKey:       strings.TrimSpace(os.Getenv("EMOTION_API_KEY")),
		SentimentAPIURL:     strings.TrimSpace(os.Getenv("SENTIMENT_API_URL")),
		SentimentAPIKey:     strings.TrimSpace(os.Getenv("SENTIMENT_API_KEY")),
		HTTPAddr:            strings.TrimSpace(os.Getenv("HTTP_ADDR")),
		DownloadsDir:        strings.TrimSpace(os.Getenv("DOWNLOADS_DIR")),
		FreeMessageLimit:    parsePositiveInt(os.Getenv("FREE_MESSAGE_LIMIT")),
		MediaRetention:      parseHours(os.Getenv("MEDIA_RETENTION_HOURS")),
	}

	if cfg.GroqBaseURL == "" {
		cfg.GroqBaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.GroqModel == "" {
		cfg.GroqModel = "llama-3.3-70b-versatile"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.DownloadsDir == "" {
		cfg.DownloadsDir = "downloads"
	}
	if cfg.FreeMessageLimit == 0 {
		cfg.FreeMessageLimit = 10
	}
	if cfg.MediaRetention == 0 {
		cfg.MediaRetention = 24 * time.Hour
	}

	for _, required := range []struct {
		name  string
		value string
	}{
		{"TELEGRAM_BOT_API_TOKEN", cfg.TelegramToken},
		{"MONGO_URI", cfg.MongoURI},
		{"STRIPE_API_KEY", cfg.StripeAPIKey},
		{"STRIPE_WEBHOOK_SECRET", cfg.StripeWebhookSecret},
		{"PUBLIC_BASE_URL", cfg.PublicBaseURL},
		{"GROQ_API_KEY", cfg.GroqAPIKey},
	} {
		if required.value == "" {
			return cfg, fmt.Errorf("%s is required", required.name)
		}
	}

	return cfg, nil
}

func parsePositiveInt(raw string) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return 0
	}
	return value
}

func parseHours(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
