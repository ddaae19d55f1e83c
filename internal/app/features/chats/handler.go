// internal/app/features/chats/handler.go
package chats

import (
	"time"

	uierrors "github.com/clanforge/clanhub/internal/app/features/errors"
	convstore "github.com/clanforge/clanhub/internal/app/store/conversations"
	userstore "github.com/clanforge/clanhub/internal/app/store/users"
	"github.com/clanforge/clanhub/internal/app/system/livews"
	"github.com/clanforge/clanhub/internal/app/system/mediaurl"
	"github.com/clanforge/clanhub/internal/app/system/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the conversation directory and conversation channels,
// both as one-shot JSON and as live websockets.
type Handler struct {
	Convs   *convstore.Store
	Users   *userstore.Store
	ErrLog  *uierrors.ErrorLogger
	Metrics *metrics.Metrics
	WS      livews.Config
	Log     *zap.Logger

	now func() time.Time
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, m *metrics.Metrics, ws livews.Config, logger *zap.Logger) *Handler {
	convs := convstore.New(db, logger)
	if m != nil {
		convs.CountPreviewFailures(m.PreviewUpdateFails)
	}
	return &Handler{
		Convs:   convs,
		Users:   userstore.New(db, logger),
		ErrLog:  errLog,
		Metrics: m,
		WS:      ws,
		Log:     logger,
		now:     time.Now,
	}
}

func (h *Handler) liveGauge() prometheus.Gauge {
	if h.Metrics == nil {
		return nil
	}
	return h.Metrics.LiveSubscriptions
}

func (h *Handler) countSent(k mediaurl.Kind) {
	if h.Metrics != nil {
		h.Metrics.MessagesSent.WithLabelValues(k.String()).Inc()
	}
}
