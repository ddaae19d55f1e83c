// internal/app/features/posts/handler.go
package posts

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	uierrors "github.com/clanforge/clanhub/internal/app/features/errors"
	contentstore "github.com/clanforge/clanhub/internal/app/store/content"
	"github.com/clanforge/clanhub/internal/app/system/auditlog"
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

// Handler serves the clan blog. Only Creators and Clan Owners publish.
type Handler struct {
	Content  *contentstore.Store
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Content:  contentstore.New(db),
		ErrLog:   errLog,
		AuditLog: audit,
		Log:      logger,
	}
}

type createInput struct {
	Title    string `json:"title" validate:"required,notblank,max=150" label:"Title"`
	Body     string `json:"body" validate:"required,notblank,max=50000" label:"Body"`
	ImageURL string `json:"image_url,omitempty" validate:"omitempty,httpurl" label:"Image URL"`
}

type postView struct {
	models.Post
	Likes int  `json:"likes"`
	Liked bool `json:"liked"`
}

type pageResponse struct {
	Items []postView `json:"items"`
	Next  string     `json:"next,omitempty"`
}

func view(p models.Post, r *http.Request) postView {
	v := postView{Post: p, Likes: len(p.LikedBy)}
	if me, ok := authz.ViewerFrom(r); ok {
		v.Liked = slices.Contains(p.LikedBy, me.ID)
	}
	return v
}

// ServeList handles GET /posts, newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	page := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rows, next, err := h.Content.ListPosts(ctx, page)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list posts failed", err, "A database error occurred.")
		return
	}
	out := pageResponse{Items: make([]postView, 0, len(rows)), Next: next}
	for _, p := range rows {
		out.Items = append(out.Items, view(p, r))
	}
	uierrors.WriteJSON(w, http.StatusOK, out)
}

// ServePost handles GET /posts/{id}.
func (h *Handler) ServePost(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.NotFound(w, "Post not found.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Content.GetPost(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.NotFound(w, "Post not found.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load post failed", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, view(*p, r))
}

// HandleCreate handles POST /posts. The body is sanitized before it is
// validated, so markup that sanitizes to nothing counts as empty.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	viewer, ok := authz.ViewerFrom(r)
	if !ok {
		uierrors.Unauthorized(w, "")
		return
	}
	if !viewer.Admin {
		uierrors.Forbidden(w, "Only clan leaders can publish posts.")
		return
	}

	var in createInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		uierrors.BadRequest(w, "Invalid request body.")
		return
	}
	in.Title = htmlsanitize.PlainText(in.Title)
	in.Body = htmlsanitize.Sanitize(in.Body)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.BadRequest(w, res.First())
		return
	}

	post := models.Post{
		AuthorID:   viewer.ID,
		AuthorName: viewer.Username,
		Title:      in.Title,
		Body:       in.Body,
	}
	if in.ImageURL != "" {
		post.ImageURL = &in.ImageURL
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	post, err := h.Content.CreatePost(ctx, post)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create post failed", err, "Unable to publish the post.")
		return
	}
	if h.AuditLog != nil {
		h.AuditLog.PostPublished(ctx, r, viewer.ID, post.ID, post.Title)
	}
	uierrors.WriteJSON(w, http.StatusCreated, view(post, r))
}
