// internal/app/features/accounts/handler.go
package accounts

import (
	"fmt"
	"time"

	uierrors "github.com/clanforge/clanhub/internal/app/features/errors"
	userstore "github.com/clanforge/clanhub/internal/app/store/users"
	"github.com/clanforge/clanhub/internal/app/system/auditlog"
	"github.com/clanforge/clanhub/internal/app/system/auth"
	"github.com/clanforge/clanhub/internal/app/system/mailer"
	"github.com/clanforge/clanhub/internal/app/system/ratelimit"
	"github.com/clanforge/clanhub/internal/app/system/resettoken"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves sign-up, sign-in, sign-out, password reset and the
// current-identity lookup.
type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	Mailer     *mailer.Mailer
	Resets     *resettoken.Issuer
	Limiter    *ratelimit.SignInLimiter
	AuditLog   *auditlog.Logger
	Log        *zap.Logger

	BaseURL  string // prefix for reset links, e.g. "https://clan.gg"
	SiteName string
	ResetTTL time.Duration
}

func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	errLog *uierrors.ErrorLogger,
	mail *mailer.Mailer,
	resets *resettoken.Issuer,
	limiter *ratelimit.SignInLimiter,
	audit *auditlog.Logger,
	baseURL, siteName string,
	resetTTL time.Duration,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:      userstore.New(db, logger),
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		Mailer:     mail,
		Resets:     resets,
		Limiter:    limiter,
		AuditLog:   audit,
		Log:        logger,
		BaseURL:    baseURL,
		SiteName:   siteName,
		ResetTTL:   resetTTL,
	}
}

// formatExpiry renders a duration as "30 minutes" or "2 hours".
func formatExpiry(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes < 60 {
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
