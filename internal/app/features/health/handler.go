package health

import (
	"context"
	"net/http"

	uierrors "github.com/clanforge/clanhub/internal/app/features/errors"
	"github.com/clanforge/clanhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client  *mongo.Client
	Storage string // "local" or "s3"
	GenAI   bool   // constitution builder configured
	Log     *zap.Logger
}

// NewHandler constructs a health Handler with the Mongo client and logger.
func NewHandler(client *mongo.Client, storage string, genai bool, logger *zap.Logger) *Handler {
	return &Handler{
		Client:  client,
		Storage: storage,
		GenAI:   genai,
		Log:     logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status       string `json:"status"`
	Database     string `json:"database"`
	Storage      string `json:"storage,omitempty"`
	Constitution string `json:"constitution"` // "enabled" or "disabled"
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "storage":"local", "constitution":"disabled" }
//
// On DB failure: 503 and
//
//	{ "status":"error", "database":"disconnected", "message":"Database unavailable", "error":"…"}
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	resp := healthResponse{
		Status:       "ok",
		Database:     "connected",
		Storage:      h.Storage,
		Constitution: "disabled",
	}
	if h.GenAI {
		resp.Constitution = "enabled"
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		uierrors.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	uierrors.WriteJSON(w, http.StatusOK, resp)
}
