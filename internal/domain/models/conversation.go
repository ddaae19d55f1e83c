// internal/domain/models/conversation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation is a two-party message thread. The _id is derived from the
// participant pair, so opening a thread for the same pair always lands on
// the same document.
type Conversation struct {
	ID                string               `bson:"_id" json:"id"`
	Participants      []primitive.ObjectID `bson:"participants" json:"participants"`
	ParticipantNames  map[string]string    `bson:"participant_names,omitempty" json:"participant_names,omitempty"`   // keyed by hex id
	ParticipantPhotos map[string]string    `bson:"participant_photos,omitempty" json:"participant_photos,omitempty"` // keyed by hex id
	LastMessage       string               `bson:"last_message,omitempty" json:"last_message,omitempty"`
	LastMessageAt     *time.Time           `bson:"last_message_at,omitempty" json:"last_message_at,omitempty"`
	CreatedAt         time.Time            `bson:"created_at" json:"created_at"`
}

// HasParticipant reports whether id is one of the two participants.
func (c Conversation) HasParticipant(id primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// Other returns the participant that is not id. With a malformed
// participant list it returns NilObjectID.
func (c Conversation) Other(id primitive.ObjectID) primitive.ObjectID {
	for _, p := range c.Participants {
		if p != id {
			return p
		}
	}
	return primitive.NilObjectID
}

// Message is one immutable entry in a conversation. Either Text is set, or
// exactly one of ImageURL/VideoURL is set and Text is empty.
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID string             `bson:"conversation_id" json:"conversation_id"`
	SenderID       primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	Text           string             `bson:"text" json:"text"`
	ImageURL       *string            `bson:"image_url,omitempty" json:"image_url,omitempty"`
	VideoURL       *string            `bson:"video_url,omitempty" json:"video_url,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"` // server-assigned
}
