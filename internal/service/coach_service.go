package service

import (
	"context"
	"fmt"
	"strings"

	"lifecoach/internal/logging"
	"lifecoach/internal/model"
)

// Completer produces a reply for an assembled prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// UserStore is the slice of the repository the coach needs.
type UserStore interface {
	EnsureUser(ctx context.Context, userID int64) (*model.User, error)
	RecordExchange(ctx context.Context, userID int64, userMsg, botMsg string) error
	ResetHistory(ctx context.Context, userID int64) error
}

// CoachService owns the paywall gate and reply generation.
type CoachService struct {
	users         UserStore
	llm           Completer
	freeLimit     int
	historyWindow int
}

// Replaying the entire append-only history would grow prompts without bound;
// only the most recent exchanges are included.
const defaultHistoryWindow = 50

func NewCoachService(users UserStore, llm Completer, freeLimit int) *CoachService {
	return &CoachService{
		users:         users,
		llm:           llm,
		freeLimit:     freeLimit,
		historyWindow: defaultHistoryWindow,
	}
}

// Allowed reports whether the user may have a message processed: subscribers
// always pass, everyone else is metered against the free limit.
func (s *CoachService) Allowed(user *model.User) bool {
	return user.Subscribed || user.MessageCount < s.freeLimit
}

// Respond generates a reply for message in the context of the user's
// conversation history and records the exchange.
func (s *CoachService) Respond(ctx context.Context, user *model.User, message string) (string, error) {
	prompt := BuildPrompt(user.ConversationHistory, message, s.historyWindow)

	answer, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate response: %w", err)
	}

	if err := s.users.RecordExchange(ctx, user.UserID, message, answer); err != nil {
		// The reply is already generated; losing one counter tick beats
		// apologizing for a message the user will still receive.
		logging.WithComponent("coach").WithError(err).WithField("user_id", user.UserID).
			Warn("failed to record exchange")
	}

	return answer, nil
}

// Reset clears the user's conversation history.
func (s *CoachService) Reset(ctx context.Context, userID int64) error {
	return s.users.ResetHistory(ctx, userID)
}

// BuildPrompt joins the most recent window exchanges as "User: …\nBot: …"
// pairs and appends the latest message.
func BuildPrompt(history []model.Exchange, message string, window int) string {
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}

	lines := make([]string, 0, len(history))
	for _, exchange := range history {
		lines = append(lines, fmt.Sprintf("User: %s\nBot: %s", exchange.User, exchange.Bot))
	}

	return strings.Join(lines, "\n") + "\nUser: " + message
}
