// internal/app/features/engagement/handler.go
package engagement

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/clanforge/clanhub/internal/app/features/errors"
	contentstore "github.com/clanforge/clanhub/internal/app/store/content"
	"github.com/clanforge/clanhub/internal/app/system/authz"
	"github.com/clanforge/clanhub/internal/app/system/metrics"
	"github.com/clanforge/clanhub/internal/app/system/paging"
	"github.com/clanforge/clanhub/internal/app/system/timeouts"
	"github.com/clanforge/clanhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Ledger *Ledger
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		Ledger: &Ledger{Content: contentstore.New(db), Metrics: m},
		ErrLog: errLog,
		Log:    logger,
	}
}

type commentInput struct {
	Content string `json:"content"`
}

// item reads {kind} and {id}. It writes a 400 and returns ok=false when
// either is malformed.
func item(w http.ResponseWriter, r *http.Request) (kind string, id primitive.ObjectID, ok bool) {
	kind = chi.URLParam(r, "kind")
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "Invalid item id.")
		return "", id, false
	}
	return kind, id, true
}

func viewerOrNil(r *http.Request) *authz.Viewer {
	v, ok := authz.ViewerFrom(r)
	if !ok {
		return nil
	}
	return &v
}

// HandleLike handles POST /content/{kind}/{id}/like.
func (h *Handler) HandleLike(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := item(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	st, err := h.Ledger.ToggleLike(ctx, viewerOrNil(r), kind, id)
	if err != nil {
		h.writeErr(w, r, "like toggle failed", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, st)
}

// HandleComment handles POST /content/{kind}/{id}/comments.
func (h *Handler) HandleComment(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := item(w, r)
	if !ok {
		return
	}
	viewer := viewerOrNil(r)
	if viewer == nil {
		uierrors.Unauthorized(w, SignInMessage)
		return
	}
	var in commentInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		uierrors.BadRequest(w, "Invalid request body.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Ledger.AddComment(ctx, viewer, kind, id, in.Content)
	if err != nil {
		h.writeErr(w, r, "add comment failed", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, c)
}

type commentPage struct {
	Items []models.Comment `json:"items"`
	Next  string           `json:"next,omitempty"`
}

// ServeComments handles GET /content/{kind}/{id}/comments.
func (h *Handler) ServeComments(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := item(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rows, next, err := h.Ledger.Content.ListComments(ctx, kind, id, paging.Parse(r))
	if err != nil {
		h.writeErr(w, r, "list comments failed", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, commentPage{Items: rows, Next: next})
}

func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		uierrors.Unauthorized(w, SignInMessage)
	case errors.Is(err, ErrEmptyComment):
		uierrors.BadRequest(w, "Comment cannot be empty.")
	case errors.Is(err, ErrCommentTooLong):
		uierrors.BadRequest(w, "Comment is too long.")
	case errors.Is(err, contentstore.ErrUnknownKind):
		uierrors.NotFound(w, "Unknown content type.")
	case errors.Is(err, mongo.ErrNoDocuments):
		uierrors.NotFound(w, "Item not found.")
	default:
		h.ErrLog.LogServerError(w, r, msg, err, "A database error occurred.")
	}
}
