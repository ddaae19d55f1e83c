// internal/app/features/chats/channelhandlers.go
package chats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	uierrors "github.com/clanforge/clanhub/internal/app/features/errors"
	convstore "github.com/clanforge/clanhub/internal/app/store/conversations"
	"github.com/clanforge/clanhub/internal/app/system/authz"
	"github.com/clanforge/clanhub/internal/app/system/live"
	"github.com/clanforge/clanhub/internal/app/system/livews"
	"github.com/clanforge/clanhub/internal/app/system/timeouts"
	"github.com/clanforge/clanhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const notAllowed = "You are not part of this conversation."

type conversationResponse struct {
	Conversation *models.Conversation `json:"conversation"`
	Messages     []models.Message     `json:"messages"`
}

type sendInput struct {
	Type string `json:"type,omitempty"` // "send" on websocket frames
	Text string `json:"text"`
}

// allowed is the read/write rule for a conversation.
func allowed(v authz.Viewer, c *models.Conversation) bool {
	return v.Admin || c.HasParticipant(v.ID)
}

// ServeConversation handles GET /chats/{id}. Messages are loaded only after
// the conversation has been checked.
func (h *Handler) ServeConversation(w http.ResponseWriter, r *http.Request) {
	viewer, ok := authz.ViewerFrom(r)
	if !ok {
		uierrors.Unauthorized(w, "")
		return
	}
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	conv, err := h.Convs.Get(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.NotFound(w, "Conversation not found.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load conversation failed", err, "A database error occurred.")
		return
	}
	if !allowed(viewer, conv) {
		uierrors.Forbidden(w, notAllowed)
		return
	}

	msgs, err := h.Convs.ListMessages(ctx, id)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list messages failed", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, conversationResponse{Conversation: conv, Messages: msgs})
}

// HandleSend handles POST /chats/{id}/messages.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	viewer, ok := authz.ViewerFrom(r)
	if !ok {
		uierrors.Unauthorized(w, "")
		return
	}
	var in sendInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		uierrors.BadRequest(w, "Invalid request body.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	msg, status, userMsg, err := h.send(ctx, viewer, chi.URLParam(r, "id"), in.Text)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "send message failed", err, userMsg)
		return
	}
	if status != http.StatusCreated {
		uierrors.Write(w, status, userMsg)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, msg)
}

// send checks access and stores one message. A non-nil error is a backend
// failure; otherwise status and userMsg describe the outcome.
func (h *Handler) send(ctx context.Context, viewer authz.Viewer, convID, text string) (models.Message, int, string, error) {
	conv, err := h.Convs.Get(ctx, convID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Message{}, http.StatusNotFound, "Conversation not found.", nil
	}
	if err != nil {
		return models.Message{}, 0, "A database error occurred.", err
	}
	if !allowed(viewer, conv) {
		return models.Message{}, http.StatusForbidden, notAllowed, nil
	}

	msg, kind, err := h.Convs.AppendMessage(ctx, convID, viewer.ID, text)
	switch {
	case errors.Is(err, convstore.ErrEmptyMessage):
		return models.Message{}, http.StatusBadRequest, "Message cannot be empty.", nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.Message{}, http.StatusNotFound, "Conversation not found.", nil
	case err != nil:
		return models.Message{}, 0, "Unable to send the message.", err
	}
	h.countSent(kind)
	return msg, http.StatusCreated, "", nil
}

// ServeConversationLive handles GET /chats/{id}/live.
func (h *Handler) ServeConversationLive(w http.ResponseWriter, r *http.Request) {
	// Identity is resolved before the upgrade; a visitor never gets a socket.
	viewer, ok := authz.ViewerFrom(r)
	if !ok {
		uierrors.Unauthorized(w, "")
		return
	}
	ch := NewChannel(chi.URLParam(r, "id"))

	conn, err := livews.Upgrade(w, r, h.WS, h.Log)
	if err != nil {
		h.Log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	inbound := make(chan []byte, 8)
	go h.runChannel(conn, ch, viewer, inbound)
	conn.Serve(func(msg []byte) {
		select {
		case inbound <- msg:
		case <-conn.Context().Done():
		}
	})
}

// runChannel owns ch for the lifetime of the connection. Both
// subscriptions and every inbound frame are handled on this goroutine.
func (h *Handler) runChannel(conn *livews.Conn, ch *Channel, viewer authz.Viewer, inbound <-chan []byte) {
	ctx := conn.Context()
	log := h.Log.With(zap.String("conversation_id", ch.ConversationID()), zap.String("user_id", viewer.ID.Hex()))

	emit := func(frames []Frame) bool {
		for _, f := range frames {
			if f.Type == FrameRedirect {
				_ = conn.Finish(f)
				return false
			}
			if err := conn.Send(f); err != nil {
				return false
			}
		}
		return true
	}

	if !emit(ch.Identify(&viewer.ID, viewer.Admin)) {
		return
	}

	convSub, err := live.Run(ctx, h.Convs.WatchConversation(ch.ConversationID()),
		func(ctx context.Context) (*models.Conversation, error) {
			c, err := h.Convs.Get(ctx, ch.ConversationID())
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, nil
			}
			return c, err
		}, h.liveGauge())
	if err != nil {
		log.Error("conversation subscription failed", zap.Error(err))
		emit(ch.ConversationDelivered(nil, err))
		return
	}
	defer convSub.Close()

	msgSub, err := live.Run(ctx, h.Convs.WatchMessages(ch.ConversationID()),
		func(ctx context.Context) ([]models.Message, error) {
			return h.Convs.ListMessages(ctx, ch.ConversationID())
		}, h.liveGauge())
	if err != nil {
		log.Error("message subscription failed", zap.Error(err))
		_ = conn.Finish(Frame{Type: FrameError, Error: "Live updates are unavailable."})
		return
	}
	defer msgSub.Close()

	convUpdates, msgUpdates := convSub.Updates(), msgSub.Updates()
	for {
		select {
		case <-ctx.Done():
			return

		case snap, ok := <-convUpdates:
			if !ok {
				return
			}
			if snap.Err != nil {
				log.Error("conversation subscription ended", zap.Error(snap.Err))
			}
			if !emit(ch.ConversationDelivered(snap.Value, snap.Err)) {
				return
			}

		case snap, ok := <-msgUpdates:
			if !ok {
				msgUpdates = nil
				continue
			}
			if snap.Err != nil {
				// The view keeps the last sequence it had.
				log.Error("message subscription ended", zap.Error(snap.Err))
				msgUpdates = nil
				continue
			}
			if !emit(ch.MessagesDelivered(snap.Value)) {
				return
			}

		case raw := <-inbound:
			if !h.handleInbound(ctx, conn, ch, viewer, raw, log) {
				return
			}
		}
	}
}

func (h *Handler) handleInbound(ctx context.Context, conn *livews.Conn, ch *Channel, viewer authz.Viewer, raw []byte, log *zap.Logger) bool {
	var in sendInput
	if err := json.Unmarshal(raw, &in); err != nil || in.Type != "send" {
		return conn.Send(Frame{Type: FrameError, Error: "Unknown request."}) == nil
	}
	if !ch.Authorized() {
		return conn.Send(Frame{Type: FrameError, Error: "The conversation is still loading."}) == nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	msg, status, userMsg, err := h.send(sendCtx, viewer, ch.ConversationID(), in.Text)
	if err != nil {
		log.Error("send message failed", zap.Error(err))
		return conn.Send(Frame{Type: FrameError, Error: userMsg}) == nil
	}
	if status != http.StatusCreated {
		return conn.Send(Frame{Type: FrameError, Error: userMsg}) == nil
	}
	return conn.Send(Frame{Type: FrameSent, Message: &msg}) == nil
}
