package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// Exchange is one prompt/response pair in a user's conversation history.
type Exchange struct {
	User string `bson:"user"`
	Bot  string `bson:"bot"`
}

// User is the per-user document in the users collection. A record exists for
// every user who has sent /start or any message.
type User struct {
	MongoID             primitive.ObjectID `bson:"_id,omitempty"`
	UserID              int64              `bson:"user_id"`
	MessageCount        int                `bson:"message_count"`
	Subscribed          bool               `bson:"subscribed"`
	ConversationHistory []Exchange         `bson:"conversation_history"`
}
