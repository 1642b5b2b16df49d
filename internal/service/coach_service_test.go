package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifecoach/internal/model"
)

type fakeUserStore struct {
	users      map[int64]*model.User
	recordErr  error
	recorded   []model.Exchange
	resetCalls []int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]*model.User)}
}

func (f *fakeUserStore) EnsureUser(_ context.Context, userID int64) (*model.User, error) {
	if user, ok := f.users[userID]; ok {
		return user, nil
	}
	user := &model.User{UserID: userID, ConversationHistory: []model.Exchange{}}
	f.users[userID] = user
	return user, nil
}

func (f *fakeUserStore) RecordExchange(_ context.Context, userID int64, userMsg, botMsg string) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded = append(f.recorded, model.Exchange{User: userMsg, Bot: botMsg})
	return nil
}

func (f *fakeUserStore) ResetHistory(_ context.Context, userID int64) error {
	f.resetCalls = append(f.resetCalls, userID)
	return nil
}

type fakeCompleter struct {
	reply string
	err   error
	got   string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.got = prompt
	return f.reply, f.err
}

func TestAllowed(t *testing.T) {
	svc := NewCoachService(newFakeUserStore(), &fakeCompleter{}, 10)

	tests := []struct {
		name string
		user model.User
		want bool
	}{
		{"new user", model.User{MessageCount: 0}, true},
		{"under limit", model.User{MessageCount: 9}, true},
		{"at limit", model.User{MessageCount: 10}, false},
		{"over limit", model.User{MessageCount: 42}, false},
		{"subscribed over limit", model.User{MessageCount: 42, Subscribed: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.Allowed(&tt.user))
		})
	}
}

func TestRespondRecordsExchange(t *testing.T) {
	store := newFakeUserStore()
	completer := &fakeCompleter{reply: "you've got this"}
	svc := NewCoachService(store, completer, 10)

	user := &model.User{
		UserID: 7,
		ConversationHistory: []model.Exchange{
			{User: "hi", Bot: "hello!"},
		},
	}

	answer, err := svc.Respond(context.Background(), user, "I feel stuck")
	require.NoError(t, err)

	assert.Equal(t, "you've got this", answer)
	assert.Equal(t, "User: hi\nBot: hello!\nUser: I feel stuck", completer.got)
	require.Len(t, store.recorded, 1)
	assert.Equal(t, model.Exchange{User: "I feel stuck", Bot: "you've got this"}, store.recorded[0])
}

func TestRespondCompleterError(t *testing.T) {
	store := newFakeUserStore()
	svc := NewCoachService(store, &fakeCompleter{err: errors.New("overloaded")}, 10)

	_, err := svc.Respond(context.Background(), &model.User{UserID: 7}, "hello")
	require.Error(t, err)
	assert.Empty(t, store.recorded)
}

func TestRespondSurvivesRecordFailure(t *testing.T) {
	store := newFakeUserStore()
	store.recordErr = errors.New("mongo down")
	svc := NewCoachService(store, &fakeCompleter{reply: "ok"}, 10)

	answer, err := svc.Respond(context.Background(), &model.User{UserID: 7}, "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
}

func TestBuildPromptEmptyHistory(t *testing.T) {
	assert.Equal(t, "\nUser: hello", BuildPrompt(nil, "hello", defaultHistoryWindow))
}

func TestBuildPromptCapsWindow(t *testing.T) {
	history := make([]model.Exchange, 60)
	for i := range history {
		history[i] = model.Exchange{
			User: fmt.Sprintf("q%d", i),
			Bot:  fmt.Sprintf("a%d", i),
		}
	}

	prompt := BuildPrompt(history, "latest", 50)

	assert.NotContains(t, prompt, "q9\n")
	assert.Contains(t, prompt, "User: q10\nBot: a10")
	assert.Contains(t, prompt, "User: q59\nBot: a59")
	assert.Contains(t, prompt, "\nUser: latest")
}

func TestReset(t *testing.T) {
	store := newFakeUserStore()
	svc := NewCoachService(store, &fakeCompleter{}, 10)

	require.NoError(t, svc.Reset(context.Background(), 42))
	assert.Equal(t, []int64{42}, store.resetCalls)
}
