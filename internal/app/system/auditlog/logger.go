// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/clanforge/clanhub/internal/app/store/audit"
	"github.com/clanforge/clanhub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for signup, sign-in, sign-out, password reset and
	// username changes.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for Creator/Clan Owner actions (role and
	// verification changes, published posts). Same values as Auth.
	Admin string
}

// Logger writes audit events to MongoDB (via audit.Store) and zap.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so tests can pass nil.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func authEvent(r *http.Request, eventType string, userID *primitive.ObjectID, success bool) audit.Event {
	return audit.Event{
		Category:  audit.CategoryAuth,
		EventType: eventType,
		UserID:    userID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
	}
}

// --- Authentication Events ---

// Signup logs a new account.
func (l *Logger) Signup(ctx context.Context, r *http.Request, userID primitive.ObjectID, username string) {
	e := authEvent(r, audit.EventSignup, &userID, true)
	e.Details = map[string]string{"username": username}
	l.Log(ctx, e)
}

// SigninSuccess logs a successful sign-in.
func (l *Logger) SigninSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(r, audit.EventSigninSuccess, &userID, true))
}

// SigninFailedNoAccount logs a sign-in for an unknown email.
func (l *Logger) SigninFailedNoAccount(ctx context.Context, r *http.Request, email string) {
	e := authEvent(r, audit.EventSigninFailedNoAccount, nil, false)
	e.FailureReason = "no account"
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// SigninFailedBadPassword logs a wrong password.
func (l *Logger) SigninFailedBadPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	e := authEvent(r, audit.EventSigninFailedBadPassword, &userID, false)
	e.FailureReason = "wrong password"
	l.Log(ctx, e)
}

// SigninFailedRateLimit logs a throttled sign-in.
func (l *Logger) SigninFailedRateLimit(ctx context.Context, r *http.Request, email, limitType string) {
	e := authEvent(r, audit.EventSigninFailedRateLimit, nil, false)
	e.FailureReason = "rate limited"
	e.Details = map[string]string{"email": email, "limit": limitType}
	l.Log(ctx, e)
}

// Signout logs a sign-out. userIDHex may be empty or malformed; the event is
// still written.
func (l *Logger) Signout(ctx context.Context, r *http.Request, userIDHex string) {
	var uid *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userIDHex); err == nil {
		uid = &oid
	}
	l.Log(ctx, authEvent(r, audit.EventSignout, uid, true))
}

// PasswordResetRequested logs a reset email being sent.
func (l *Logger) PasswordResetRequested(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(r, audit.EventPasswordResetRequested, &userID, true))
}

// PasswordReset logs a completed reset.
func (l *Logger) PasswordReset(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(r, audit.EventPasswordReset, &userID, true))
}

// UsernameChanged logs a username change.
func (l *Logger) UsernameChanged(ctx context.Context, r *http.Request, userID primitive.ObjectID, from, to string) {
	e := authEvent(r, audit.EventUsernameChanged, &userID, true)
	e.Details = map[string]string{"from": from, "to": to}
	l.Log(ctx, e)
}

// --- Admin Events ---

func (l *Logger) admin(ctx context.Context, r *http.Request, eventType string, actorID primitive.ObjectID, target *primitive.ObjectID, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		UserID:    target,
		ActorID:   &actorID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   details,
	})
}

// RoleChanged logs a Creator changing someone's role.
func (l *Logger) RoleChanged(ctx context.Context, r *http.Request, actorID, targetID primitive.ObjectID, role string) {
	l.admin(ctx, r, audit.EventRoleChanged, actorID, &targetID, map[string]string{"role": role})
}

// VerificationChanged logs a Creator changing someone's verification tier.
func (l *Logger) VerificationChanged(ctx context.Context, r *http.Request, actorID, targetID primitive.ObjectID, tier string) {
	l.admin(ctx, r, audit.EventVerificationChanged, actorID, &targetID, map[string]string{"verification": tier})
}

// PostPublished logs a new blog post.
func (l *Logger) PostPublished(ctx context.Context, r *http.Request, actorID, postID primitive.ObjectID, title string) {
	l.admin(ctx, r, audit.EventPostPublished, actorID, nil, map[string]string{"post_id": postID.Hex(), "title": title})
}
