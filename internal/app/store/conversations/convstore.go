// Package convstore stores two-party conversations and their messages.
package convstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/clanforge/clanhub/internal/app/system/live"
	"github.com/clanforge/clanhub/internal/app/system/mediaurl"
	"github.com/clanforge/clanhub/internal/app/system/normalize"
	"github.com/clanforge/clanhub/internal/app/system/txn"
	"github.com/clanforge/clanhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	// ErrSelfConversation is returned when both participants are the same user.
	ErrSelfConversation = errors.New("cannot open a conversation with yourself")
	// ErrEmptyMessage is returned for blank message text.
	ErrEmptyMessage = errors.New("message is empty")
)

// PairID is the conversation id for a pair of users. It does not depend on
// argument order.
func PairID(a, b primitive.ObjectID) string {
	ha, hb := a.Hex(), b.Hex()
	if hb < ha {
		ha, hb = hb, ha
	}
	return ha + "_" + hb
}

// Participant is the denormalized view of a user kept on the conversation.
type Participant struct {
	ID       primitive.ObjectID
	Username string
	PhotoURL string
}

// Store owns the conversations and messages collections.
type Store struct {
	convs  *mongo.Collection
	msgs   *mongo.Collection
	client *mongo.Client
	log    *zap.Logger

	previewFails prometheus.Counter
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{
		convs:  db.Collection("conversations"),
		msgs:   db.Collection("messages"),
		client: db.Client(),
		log:    log,
	}
}

// CountPreviewFailures makes the store count messages whose preview update
// failed outside a transaction.
func (s *Store) CountPreviewFailures(c prometheus.Counter) *Store {
	s.previewFails = c
	return s
}

// Open returns the conversation between a and b, creating it if needed.
// Creation is an upsert on the pair id so racing opens converge on one
// document. Participant names and photos are refreshed on every open.
func (s *Store) Open(ctx context.Context, a, b Participant) (models.Conversation, error) {
	if a.ID == b.ID {
		return models.Conversation{}, ErrSelfConversation
	}
	id := PairID(a.ID, b.ID)
	first, second := a.ID, b.ID
	if second.Hex() < first.Hex() {
		first, second = second, first
	}

	update := bson.M{
		"$setOnInsert": bson.M{
			"participants": []primitive.ObjectID{first, second},
			"created_at":   time.Now().UTC(),
		},
		"$set": bson.M{
			"participant_names." + a.ID.Hex():  a.Username,
			"participant_names." + b.ID.Hex():  b.Username,
			"participant_photos." + a.ID.Hex(): a.PhotoURL,
			"participant_photos." + b.ID.Hex(): b.PhotoURL,
		},
	}
	after := options.After
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(after)

	var c models.Conversation
	err := s.convs.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&c)
	if wafflemongo.IsDup(err) {
		// Lost the insert race; the winner's document is there now.
		err = s.convs.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&c)
	}
	if err != nil {
		return models.Conversation{}, err
	}
	return c, nil
}

// Get loads a conversation. Returns mongo.ErrNoDocuments if missing.
func (s *Store) Get(ctx context.Context, id string) (*models.Conversation, error) {
	var c models.Conversation
	if err := s.convs.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func directoryFilter(viewer primitive.ObjectID, admin bool) bson.M {
	if admin {
		return bson.M{}
	}
	return bson.M{"participants": viewer}
}

// ListForViewer returns the viewer's conversations (or every conversation
// for an administrative viewer), most recent activity first.
func (s *Store) ListForViewer(ctx context.Context, viewer primitive.ObjectID, admin bool) ([]models.Conversation, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "last_message_at", Value: -1},
		{Key: "_id", Value: 1},
	})
	cur, err := s.convs.Find(ctx, directoryFilter(viewer, admin), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Conversation{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListMessages returns a conversation's messages oldest first.
func (s *Store) ListMessages(ctx context.Context, convID string) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	cur, err := s.msgs.Find(ctx, bson.M{"conversation_id": convID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AppendMessage stores a message from sender and updates the conversation
// preview. raw is classified: a link to an image or video becomes a media
// message with empty text, anything else is stored verbatim as text.
//
// Both writes share a transaction. Without transaction support the message
// is written first; if the preview update then fails the message stands,
// the failure is logged and counted, and the next message corrects the
// preview.
func (s *Store) AppendMessage(ctx context.Context, convID string, sender primitive.ObjectID, raw string) (models.Message, mediaurl.Kind, error) {
	if normalize.Blank(raw) {
		return models.Message{}, mediaurl.Text, ErrEmptyMessage
	}

	link := strings.TrimSpace(raw)
	kind := mediaurl.Classify(link)
	msg := models.Message{
		ID:             primitive.NewObjectID(),
		ConversationID: convID,
		SenderID:       sender,
		Text:           raw,
	}
	switch kind {
	case mediaurl.Image:
		msg.Text, msg.ImageURL = "", &link
	case mediaurl.Video:
		msg.Text, msg.VideoURL = "", &link
	}
	preview := mediaurl.Preview(kind, raw)

	var stored models.Message
	err := txn.Run(ctx, s.client, s.log, func(ctx context.Context) error {
		n, err := s.convs.CountDocuments(ctx, bson.M{"_id": convID}, options.Count().SetLimit(1))
		if err != nil {
			return err
		}
		if n == 0 {
			return mongo.ErrNoDocuments
		}

		fields := bson.M{
			"conversation_id": msg.ConversationID,
			"sender_id":       msg.SenderID,
			"text":            msg.Text,
		}
		if msg.ImageURL != nil {
			fields["image_url"] = *msg.ImageURL
		}
		if msg.VideoURL != nil {
			fields["video_url"] = *msg.VideoURL
		}
		// Upsert so created_at is the server's clock.
		if _, err := s.msgs.UpdateOne(ctx,
			bson.M{"_id": msg.ID},
			bson.M{"$setOnInsert": fields, "$currentDate": bson.M{"created_at": true}},
			options.Update().SetUpsert(true),
		); err != nil {
			return err
		}

		_, err = s.convs.UpdateOne(ctx,
			bson.M{"_id": convID},
			bson.M{"$set": bson.M{"last_message": preview}, "$currentDate": bson.M{"last_message_at": true}},
		)
		if err != nil {
			if mongo.SessionFromContext(ctx) != nil {
				return err
			}
			s.log.Warn("conversation preview not updated",
				zap.String("conversation_id", convID),
				zap.String("message_id", msg.ID.Hex()),
				zap.Error(err))
			if s.previewFails != nil {
				s.previewFails.Inc()
			}
		}

		return s.msgs.FindOne(ctx, bson.M{"_id": msg.ID}).Decode(&stored)
	})
	if err != nil {
		return models.Message{}, kind, err
	}
	return stored, kind, nil
}

// RenameParticipant refreshes the denormalized name and photo of a user on
// every conversation they take part in.
func (s *Store) RenameParticipant(ctx context.Context, p Participant) error {
	_, err := s.convs.UpdateMany(ctx,
		bson.M{"participants": p.ID},
		bson.M{"$set": bson.M{
			"participant_names." + p.ID.Hex():  p.Username,
			"participant_photos." + p.ID.Hex(): p.PhotoURL,
		}},
	)
	return err
}

/* ------------------------------ live feeds ------------------------------- */

// WatchConversation reports changes to one conversation document.
func (s *Store) WatchConversation(id string) live.Opener {
	return live.Watch(s.convs, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"documentKey._id": id}}},
	})
}

// WatchMessages reports new messages in one conversation.
func (s *Store) WatchMessages(convID string) live.Opener {
	return live.Watch(s.msgs, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"fullDocument.conversation_id": convID}}},
	})
}

// WatchDirectory reports changes to any conversation in the viewer's
// directory.
func (s *Store) WatchDirectory(viewer primitive.ObjectID, admin bool) live.Opener {
	if admin {
		return live.Watch(s.convs, nil)
	}
	return live.Watch(s.convs, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"fullDocument.participants": viewer}}},
	})
}
