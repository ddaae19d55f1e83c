// internal/app/features/shorts/handler.go
package shorts

import (
	"context"
	"errors"
	"net/http"
	"slices"

	uierrors "github.com/clanforge/clanhub/internal/app/features/errors"
	contentstore "github.com/clanforge/clanhub/internal/app/store/content"
	"github.com/clanforge/clanhub/internal/app/system/authz"
	"github.com/clanforge/clanhub/internal/app/system/htmlsanitize"
	"github.com/clanforge/clanhub/internal/app/system/inputval"
	"github.com/clanforge/clanhub/internal/app/system/paging"
	"github.com/clanforge/clanhub/internal/app/system/timeouts"
	"github.com/clanforge/clanhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Content *contentstore.Store
	ErrLog  *uierrors.ErrorLogger
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Content: contentstore.New(db),
		ErrLog:  errLog,
		Log:     logger,
	}
}

type createInput struct {
	VideoURL string `json:"video_url" validate:"required,videourl" label:"Video URL"`
	Caption  string `json:"caption" validate:"max=300" label:"Caption"`
}

// shortView adds the like summary for the current viewer.
type shortView struct {
	models.Short
	Likes int  `json:"likes"`
	Liked bool `json:"liked"`
}

type pageResponse struct {
	Items []shortView `json:"items"`
	Next  string      `json:"next,omitempty"`
}

func view(s models.Short, viewer *primitive.ObjectID) shortView {
	v := shortView{Short: s, Likes: len(s.LikedBy)}
	if viewer != nil {
		v.Liked = slices.Contains(s.LikedBy, *viewer)
	}
	return v
}

func viewerID(r *http.Request) *primitive.ObjectID {
	v, ok := authz.ViewerFrom(r)
	if !ok {
		return nil
	}
	return &v.ID
}

// ServeList handles GET /shorts, newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	page := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rows, next, err := h.Content.ListShorts(ctx, page)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list shorts failed", err, "A database error occurred.")
		return
	}
	me := viewerID(r)
	out := pageResponse{Items: make([]shortView, 0, len(rows)), Next: next}
	for _, s := range rows {
		out.Items = append(out.Items, view(s, me))
	}
	uierrors.WriteJSON(w, http.StatusOK, out)
}

// ServeShort handles GET /shorts/{id}.
func (h *Handler) ServeShort(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.NotFound(w, "Short not found.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	s, err := h.Content.GetShort(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.NotFound(w, "Short not found.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load short failed", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, view(*s, viewerID(r)))
}

// HandleCreate handles POST /shorts.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	viewer, ok := authz.ViewerFrom(r)
	if !ok {
		uierrors.Unauthorized(w, "")
		return
	}
	var in createInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		uierrors.BadRequest(w, "Invalid request body.")
		return
	}
	in.Caption = htmlsanitize.PlainText(in.Caption)
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.BadRequest(w, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	s, err := h.Content.CreateShort(ctx, models.Short{
		AuthorID:   viewer.ID,
		AuthorName: viewer.Username,
		VideoURL:   in.VideoURL,
		Caption:    in.Caption,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create short failed", err, "Unable to publish the short.")
		return
	}
	h.Log.Info("short published", zap.String("short_id", s.ID.Hex()), zap.String("user_id", viewer.ID.Hex()))
	uierrors.WriteJSON(w, http.StatusCreated, view(s, &viewer.ID))
}
