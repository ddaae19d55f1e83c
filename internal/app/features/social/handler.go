// internal/app/features/social/handler.go
package social

import (
	uierrors "github.com/clanforge/clanhub/internal/app/features/errors"
	followstore "github.com/clanforge/clanhub/internal/app/store/follows"
	userstore "github.com/clanforge/clanhub/internal/app/store/users"
	"github.com/clanforge/clanhub/internal/app/system/livews"
	"github.com/clanforge/clanhub/internal/app/system/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Handler serves follow toggles, follow lists and follow counts.
type Handler struct {
	Follows *followstore.Store
	Users   *userstore.Store
	ErrLog  *uierrors.ErrorLogger
	Metrics *metrics.Metrics
	WS      livews.Config
	Log     *zap.Logger

	// toggles collapses concurrent toggles of the same edge in this
	// process. Key is "<viewer hex>:<target hex>".
	toggles singleflight.Group
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, m *metrics.Metrics, ws livews.Config, logger *zap.Logger) *Handler {
	return &Handler{
		Follows: followstore.New(db, logger),
		Users:   userstore.New(db, logger),
		ErrLog:  errLog,
		Metrics: m,
		WS:      ws,
		Log:     logger,
	}
}

func (h *Handler) countToggle(following bool) {
	if h.Metrics == nil {
		return
	}
	action := "unfollow"
	if following {
		action = "follow"
	}
	h.Metrics.FollowToggles.WithLabelValues(action).Inc()
}

func (h *Handler) liveGauge() prometheus.Gauge {
	if h.Metrics == nil {
		return nil
	}
	return h.Metrics.LiveSubscriptions
}
