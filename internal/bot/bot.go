// Package bot runs the Telegram side: long polling, command handling and the
// paywall-gated conversation flow.
package bot

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"lifecoach/internal/logging"
	"lifecoach/internal/repository"
	"lifecoach/internal/service"
)

const welcomeMessage = "🤖 The first AI life coach available 24/7 used by thousands of people\n\n" +
	"📜 Disclaimer\n" +
	"By continuing, you agree to understand I am an AI life coach. I am not a licensed psychologist, " +
	"therapist, or healthcare professional and do not replace the care of those. I cannot take any " +
	"responsibility for the results of your actions, and any harm you suffer as a result of the use, or " +
	"non-use of the information available. Use judgment and due diligence before taking any action or plan " +
	"suggested. Do not use if you feel in danger to yourself or others, instead find a professional at findahelpline.com\n\n" +
	"✅ Reframe your negative thoughts\n" +
	"✅ Take action and get unstuck\n" +
	"✅ Get you fit which helps your mind\n" +
	"✅ Talk you through your day\n" +
	"✅ Feel better by checking up on you\n\n" +
	"You can\n" +
	"Write /reset at any moment to delete your entire convo history from our servers\n\n"

const (
	apologyGeneric = "Sorry, I couldn't process your request."
	apologyPhoto   = "Sorry, I couldn't process the image."
	apologyVoice   = "Sorry, I couldn't process the audio message."
	apologyVideo   = "Sorry, I couldn't process the video message."
)

// Bot aggregates the Telegram API with services.
type Bot struct {
	api     *tgbotapi.BotAPI
	users   *repository.UserRepository
	coach   *service.CoachService
	billing *service.BillingService
	media   *service.MediaService
	log     *logrus.Entry

	global       *rate.Limiter
	userLimiters map[int64]*rate.Limiter
	mu           sync.Mutex
}

func New(token string, users *repository.UserRepository, coach *service.CoachService, billing *service.BillingService, media *service.MediaService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log := logging.WithComponent("bot")
	log.WithField("account", api.Self.UserName).Info("bot authorized")

	return &Bot{
		api:          api,
		users:        users,
		coach:        coach,
		billing:      billing,
		media:        media,
		log:          log,
		global:       rate.NewLimiter(rate.Limit(30), 30),
		userLimiters: make(map[int64]*rate.Limiter),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
			continue
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.WithError(err).WithField("user_id", update.Message.From.ID).
				Error("handle message")
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if !b.allow(msg.From.ID) {
		b.log.WithField("user_id", msg.From.ID).Debug("rate limited, dropping update")
		return nil
	}

	if msg.IsCommand() {
		return b.handleCommand(ctx, msg)
	}

	switch {
	case len(msg.Photo) > 0:
		return b.handlePhoto(ctx, msg)
	case msg.Voice != nil:
		return b.handleVoice(ctx, msg)
	case msg.Video != nil:
		return b.handleVideo(ctx, msg)
	case msg.Text != "":
		return b.handleText(ctx, msg)
	default:
		return nil
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	b.log.WithFields(logging.Fields{"user_id": msg.From.ID, "command": msg.Command()}).
		Info("command received")

	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "reset":
		return b.handleReset(ctx, msg)
	default:
		return nil
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.users.EnsureUser(ctx, msg.From.ID); err != nil {
		b.log.WithError(err).WithField("user_id", msg.From.ID).Error("ensure user")
		return b.sendText(msg.Chat.ID, apologyGeneric)
	}
	return b.sendText(msg.Chat.ID, welcomeMessage)
}

func (b *Bot) handleReset(ctx context.Context, msg *tgbotapi.Message) error {
	if err := b.coach.Reset(ctx, msg.From.ID); err != nil {
		b.log.WithError(err).WithField("user_id", msg.From.ID).Error("reset history")
		return b.sendText(msg.Chat.ID, apologyGeneric)
	}
	return b.sendText(msg.Chat.ID, "Your conversation history has been reset.")
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) error {
	b.log.WithField("user_id", msg.From.ID).Info("text message received")
	return b.respond(ctx, msg, msg.Text, apologyGeneric)
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) error {
	// Telegram sends photo sizes in ascending order; analyze the largest.
	photo := msg.Photo[len(msg.Photo)-1]

	path, err := b.download(ctx, photo.FileID, ".jpg")
	if err != nil {
		b.log.WithError(err).WithField("user_id", msg.From.ID).Error("download photo")
		return b.sendText(msg.Chat.ID, apologyPhoto)
	}

	prompt := b.media.DescribePhoto(ctx, path)
	return b.respond(ctx, msg, prompt, apologyPhoto)
}

func (b *Bot) handleVoice(ctx context.Context, msg *tgbotapi.Message) error {
	path, err := b.download(ctx, msg.Voice.FileID, ".oga")
	if err != nil {
		b.log.WithError(err).WithField("user_id", msg.From.ID).Error("download voice")
		return b.sendText(msg.Chat.ID, apologyVoice)
	}

	prompt := b.media.DescribeVoice(ctx, path)
	return b.respond(ctx, msg, prompt, apologyVoice)
}

func (b *Bot) handleVideo(ctx context.Context, msg *tgbotapi.Message) error {
	path, err := b.download(ctx, msg.Video.FileID, ".mp4")
	if err != nil {
		b.log.WithError(err).WithField("user_id", msg.From.ID).Error("download video")
		return b.sendText(msg.Chat.ID, apologyVideo)
	}

	prompt := b.media.DescribeVideo(ctx, path)
	return b.respond(ctx, msg, prompt, apologyVideo)
}

// respond runs the paywall gate and the reply flow shared by every message
// type. Media handlers pass in the enriched prompt instead of raw text.
func (b *Bot) respond(ctx context.Context, msg *tgbotapi.Message, text, apology string) error {
	user, err := b.users.EnsureUser(ctx, msg.From.ID)
	if err != nil {
		b.log.WithError(err).WithField("user_id", msg.From.ID).Error("ensure user")
		return b.sendText(msg.Chat.ID, apology)
	}

	if !b.coach.Allowed(user) {
		url, err := b.billing.CheckoutURL(ctx, user.UserID)
		if err != nil {
			b.log.WithError(err).WithField("user_id", user.UserID).Error("create checkout session")
			return b.sendText(msg.Chat.ID, apology)
		}
		b.log.WithField("user_id", user.UserID).Info("paywall hit, sent checkout link")
		return b.sendText(msg.Chat.ID, "To continue using the service, please subscribe: "+url)
	}

	answer, err := b.coach.Respond(ctx, user, text)
	if err != nil {
		b.log.WithError(err).WithField("user_id", user.UserID).Error("generate response")
		return b.sendText(msg.Chat.ID, apology)
	}

	return b.sendText(msg.Chat.ID, answer)
}

func (b *Bot) download(ctx context.Context, fileID, ext string) (string, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("get file %s: %w", fileID, err)
	}
	return b.media.Download(ctx, file.Link(b.api.Token), ext)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	return err
}

// allow enforces a global limit plus a per-user limit so a single chat can't
// drain the LLM quota the paywall is metering.
func (b *Bot) allow(userID int64) bool {
	return b.global.Allow() && b.limiterFor(userID).Allow()
}

func (b *Bot) limiterFor(userID int64) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	limiter, ok := b.userLimiters[userID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(1), 3)
		b.userLimiters[userID] = limiter
	}
	return limiter
}
