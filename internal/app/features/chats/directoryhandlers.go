// internal/app/features/chats/directoryhandlers.go
package chats

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/clanforge/clanhub/internal/app/features/errors"
	convstore "github.com/clanforge/clanhub/internal/app/store/conversations"
	"github.com/clanforge/clanhub/internal/app/system/authz"
	"github.com/clanforge/clanhub/internal/app/system/inputval"
	"github.com/clanforge/clanhub/internal/app/system/live"
	"github.com/clanforge/clanhub/internal/app/system/livews"
	"github.com/clanforge/clanhub/internal/app/system/timeouts"
	"github.com/clanforge/clanhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type openInput struct {
	UserID string `json:"user_id" validate:"required,objectid" label:"User"`
}

// ServeDirectory handles GET /chats.
func (h *Handler) ServeDirectory(w http.ResponseWriter, r *http.Request) {
	viewer, ok := authz.ViewerFrom(r)
	if !ok {
		uierrors.Unauthorized(w, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	convs, err := h.Convs.ListForViewer(ctx, viewer.ID, viewer.Admin)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list conversations failed", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, BuildDirectory(convs, viewer.ID, viewer.Admin, h.now()))
}

// HandleOpen handles POST /chats: get or create the conversation with
// another user.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	viewer, ok := authz.ViewerFrom(r)
	if !ok {
		uierrors.Unauthorized(w, "")
		return
	}

	var in openInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		uierrors.BadRequest(w, "Invalid request body.")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.BadRequest(w, res.First())
		return
	}
	otherID, err := primitive.ObjectIDFromHex(in.UserID)
	if err != nil {
		uierrors.BadRequest(w, "Invalid user id.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	other, err := h.Users.GetByID(ctx, otherID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.NotFound(w, "User not found.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user failed", err, "A database error occurred.")
		return
	}

	conv, err := h.Convs.Open(ctx,
		convstore.Participant{ID: viewer.ID, Username: viewer.Username, PhotoURL: viewer.PhotoURL},
		convstore.Participant{ID: other.ID, Username: other.Username, PhotoURL: other.Photo()},
	)
	if errors.Is(err, convstore.ErrSelfConversation) {
		uierrors.BadRequest(w, "You cannot message yourself.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "open conversation failed", err, "Unable to open the conversation.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, conv)
}

// ServeDirectoryLive handles GET /chats/live. The full ordered directory is
// sent on connect and again after every change to a matching conversation.
func (h *Handler) ServeDirectoryLive(w http.ResponseWriter, r *http.Request) {
	viewer, ok := authz.ViewerFrom(r)
	if !ok {
		uierrors.Unauthorized(w, "")
		return
	}

	conn, err := livews.Upgrade(w, r, h.WS, h.Log)
	if err != nil {
		h.Log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	go h.runDirectory(conn, viewer)
	conn.Serve(nil)
}

func (h *Handler) runDirectory(conn *livews.Conn, viewer authz.Viewer) {
	ctx := conn.Context()
	sub, err := live.Run(ctx, h.Convs.WatchDirectory(viewer.ID, viewer.Admin),
		func(ctx context.Context) ([]models.Conversation, error) {
			return h.Convs.ListForViewer(ctx, viewer.ID, viewer.Admin)
		}, h.liveGauge())
	if err != nil {
		h.Log.Error("directory subscription failed", zap.String("user_id", viewer.ID.Hex()), zap.Error(err))
		_ = conn.Finish(Frame{Type: FrameError, Error: "Live updates are unavailable."})
		return
	}
	defer sub.Close()

	for snap := range sub.Updates() {
		if snap.Err != nil {
			h.Log.Error("directory subscription ended", zap.String("user_id", viewer.ID.Hex()), zap.Error(snap.Err))
			_ = conn.Finish(Frame{Type: FrameError, Error: "Live updates stopped."})
			return
		}
		items := BuildDirectory(snap.Value, viewer.ID, viewer.Admin, h.now())
		if err := conn.Send(Frame{Type: FrameDirectory, Items: &items}); err != nil {
			return
		}
	}
}
