package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"lifecoach/internal/model"
)

// ErrNotFound is returned when no document matches the given user id.
var ErrNotFound = errors.New("user not found")

// UserRepository handles the users collection. All methods are safe for
// concurrent use.
type UserRepository struct {
	users *mongo.Collection
}

func NewUserRepository(client *mongo.Client) *UserRepository {
	return &UserRepository{
		users: client.Database(databaseName).Collection(usersCollection),
	}
}

// EnsureUser returns the user document, inserting a fresh one on first contact.
func (r *UserRepository) EnsureUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := r.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, ErrNotFound):
		fresh := model.User{
			UserID:              userID,
			MessageCount:        0,
			Subscribed:          false,
			ConversationHistory: []model.Exchange{},
		}
		if _, err := r.users.InsertOne(ctx, fresh); err != nil {
			return nil, fmt.Errorf("create user %d: %w", userID, err)
		}
		return &fresh, nil
	default:
		return nil, err
	}
}

func (r *UserRepository) FindByUserID(ctx context.Context, userID int64) (*model.User, error) {
	var user model.User
	err := r.users.FindOne(ctx, bson.M{"user_id": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", userID, err)
	}
	return &user, nil
}

// RecordExchange bumps the usage counter and appends the prompt/response pair
// to the conversation history in a single document update.
func (r *UserRepository) RecordExchange(ctx context.Context, userID int64, userMsg, botMsg string) error {
	update := bson.M{
		"$inc":  bson.M{"message_count": 1},
		"$push": bson.M{"conversation_history": model.Exchange{User: userMsg, Bot: botMsg}},
	}
	result, err := r.users.UpdateOne(ctx, bson.M{"user_id": userID}, update)
	if err != nil {
		return fmt.Errorf("record exchange for user %d: %w", userID, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSubscribed flips the subscription flag. Only webhook handlers call this.
func (r *UserRepository) SetSubscribed(ctx context.Context, userID int64, subscribed bool) error {
	result, err := r.users.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"subscribed": subscribed}},
	)
	if err != nil {
		return fmt.Errorf("set subscribed=%t for user %d: %w", subscribed, userID, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetHistory clears the conversation history, keeping the usage counter.
func (r *UserRepository) ResetHistory(ctx context.Context, userID int64) error {
	result, err := r.users.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"conversation_history": []model.Exchange{}}},
	)
	if err != nil {
		return fmt.Errorf("reset history for user %d: %w", userID, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
