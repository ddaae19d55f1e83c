// internal/app/features/engagement/ledger.go
package engagement

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	contentstore "github.com/clanforge/clanhub/internal/app/store/content"
	"github.com/clanforge/clanhub/internal/app/system/authz"
	"github.com/clanforge/clanhub/internal/app/system/htmlsanitize"
	"github.com/clanforge/clanhub/internal/app/system/metrics"
	"github.com/clanforge/clanhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrUnauthenticated is returned before any write when there is no
	// signed-in viewer.
	ErrUnauthenticated = errors.New("engagement: not signed in")
	ErrEmptyComment    = errors.New("engagement: empty comment")
	ErrCommentTooLong  = errors.New("engagement: comment too long")
)

// SignInMessage is shown to a visitor who tries to like or comment.
const SignInMessage = "Please sign in to like or comment."

// MaxCommentLen is in characters, after markup is stripped.
const MaxCommentLen = 2000

// Ledger records likes and comments on shorts and posts.
type Ledger struct {
	Content *contentstore.Store
	Metrics *metrics.Metrics
}

// ToggleLike flips viewer's like on the item. viewer is nil for a visitor.
func (l *Ledger) ToggleLike(ctx context.Context, viewer *authz.Viewer, kind string, item primitive.ObjectID) (contentstore.LikeState, error) {
	if viewer == nil {
		return contentstore.LikeState{}, ErrUnauthenticated
	}
	st, err := l.Content.ToggleLike(ctx, kind, item, viewer.ID)
	if err != nil {
		return contentstore.LikeState{}, err
	}
	if l.Metrics != nil {
		l.Metrics.LikeToggles.WithLabelValues(kind).Inc()
	}
	return st, nil
}

// AddComment appends a plain-text comment to the item.
func (l *Ledger) AddComment(ctx context.Context, viewer *authz.Viewer, kind string, item primitive.ObjectID, content string) (models.Comment, error) {
	if viewer == nil {
		return models.Comment{}, ErrUnauthenticated
	}
	text := htmlsanitize.PlainText(content)
	if strings.TrimSpace(text) == "" {
		return models.Comment{}, ErrEmptyComment
	}
	if utf8.RuneCountInString(text) > MaxCommentLen {
		return models.Comment{}, ErrCommentTooLong
	}

	c, err := l.Content.AddComment(ctx, models.Comment{
		ItemKind:   kind,
		ItemID:     item,
		AuthorID:   viewer.ID,
		AuthorName: viewer.Username,
		Content:    text,
	})
	if err != nil {
		return models.Comment{}, err
	}
	if l.Metrics != nil {
		l.Metrics.CommentsAdded.WithLabelValues(kind).Inc()
	}
	return c, nil
}
