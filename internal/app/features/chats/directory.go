// internal/app/features/chats/directory.go
package chats

import (
	"time"

	"github.com/clanforge/clanhub/internal/app/system/recency"
	"github.com/clanforge/clanhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Placeholders for a participant whose name was never copied onto the
// conversation.
const (
	UnnamedUser      = "User"         // ordinary view
	UnnamedUserAdmin = "Unknown User" // administrative view
)

// DirectoryItem is one row of the conversation directory.
type DirectoryItem struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	PhotoURL      string     `json:"photo_url,omitempty"`
	OtherUserID   string     `json:"other_user_id,omitempty"` // ordinary view only
	LastMessage   string     `json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	Recency       string     `json:"recency"`
}

// BuildDirectory labels conversations for viewer. Order is kept as given.
// An ordinary viewer sees the other participant; an administrative viewer
// sees both as "A & B".
func BuildDirectory(convs []models.Conversation, viewer primitive.ObjectID, admin bool, now time.Time) []DirectoryItem {
	out := make([]DirectoryItem, 0, len(convs))
	for _, c := range convs {
		item := DirectoryItem{
			ID:            c.ID,
			LastMessage:   c.LastMessage,
			LastMessageAt: c.LastMessageAt,
			Recency:       recency.Label(c.LastMessageAt, now),
		}

		if admin {
			names := make([]string, 0, 2)
			for _, p := range c.Participants {
				names = append(names, nameOr(c, p, UnnamedUserAdmin))
			}
			for len(names) < 2 {
				names = append(names, UnnamedUserAdmin)
			}
			item.Title = names[0] + " & " + names[1]
		} else {
			other := c.Other(viewer)
			item.Title = nameOr(c, other, UnnamedUser)
			item.PhotoURL = c.ParticipantPhotos[other.Hex()]
			if !other.IsZero() {
				item.OtherUserID = other.Hex()
			}
		}
		out = append(out, item)
	}
	return out
}

func nameOr(c models.Conversation, id primitive.ObjectID, placeholder string) string {
	if n := c.ParticipantNames[id.Hex()]; n != "" {
		return n
	}
	return placeholder
}
