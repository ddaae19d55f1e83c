// internal/app/features/social/live.go
package social

import (
	"context"
	"net/http"

	"github.com/clanforge/clanhub/internal/app/system/live"
	"github.com/clanforge/clanhub/internal/app/system/livews"
	"github.com/clanforge/clanhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type countsFrame struct {
	Type   string              `json:"type"` // "counts" or "error"
	Counts models.FollowCounts `json:"counts"`
	Error  string              `json:"error,omitempty"`
}

// ServeCountsLive handles GET /users/{user}/follow-counts/live. Counts are
// recomputed from the records on connect and after every change to a
// record the user owns.
func (h *Handler) ServeCountsLive(w http.ResponseWriter, r *http.Request) {
	target := h.targetUser(w, r)
	if target == nil {
		return
	}

	conn, err := livews.Upgrade(w, r, h.WS, h.Log)
	if err != nil {
		h.Log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	go h.runCounts(conn, target.ID)
	conn.Serve(nil)
}

func (h *Handler) runCounts(conn *livews.Conn, user primitive.ObjectID) {
	sub, err := live.Run(conn.Context(), h.Follows.WatchCounts(user),
		func(ctx context.Context) (models.FollowCounts, error) {
			return h.Follows.Counts(ctx, user)
		}, h.liveGauge())
	if err != nil {
		h.Log.Error("follow count subscription failed", zap.String("user_id", user.Hex()), zap.Error(err))
		_ = conn.Finish(countsFrame{Type: "error", Error: "Live updates are unavailable."})
		return
	}
	defer sub.Close()

	for snap := range sub.Updates() {
		if snap.Err != nil {
			h.Log.Error("follow count subscription ended", zap.String("user_id", user.Hex()), zap.Error(snap.Err))
			_ = conn.Finish(countsFrame{Type: "error", Error: "Live updates stopped."})
			return
		}
		if err := conn.Send(countsFrame{Type: "counts", Counts: snap.Value}); err != nil {
			return
		}
	}
}
