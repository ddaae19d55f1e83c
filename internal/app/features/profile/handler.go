// internal/app/features/profile/handler.go
package profile

import (
	"context"

	uierrors "github.com/clanforge/clanhub/internal/app/features/errors"
	convstore "github.com/clanforge/clanhub/internal/app/store/conversations"
	followstore "github.com/clanforge/clanhub/internal/app/store/follows"
	userstore "github.com/clanforge/clanhub/internal/app/store/users"
	"github.com/clanforge/clanhub/internal/app/system/auditlog"
	"github.com/clanforge/clanhub/internal/app/system/filestore"
	"github.com/clanforge/clanhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns profile reads and edits, user lookup, and the Creator's
// role and verification controls.
type Handler struct {
	Users    *userstore.Store
	Convs    *convstore.Store
	Follows  *followstore.Store
	Files    filestore.Store
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, files filestore.Store, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    userstore.New(db, logger),
		Convs:    convstore.New(db, logger),
		Follows:  followstore.New(db, logger),
		Files:    files,
		ErrLog:   errLog,
		AuditLog: audit,
		Log:      logger,
	}
}

// propagate copies the current username and photo onto conversations and
// follow records that show them. Failures are logged; the profile itself is
// already saved and the copies catch up on the next change.
func (h *Handler) propagate(ctx context.Context, u models.User) {
	if err := h.Convs.RenameParticipant(ctx, convstore.Participant{ID: u.ID, Username: u.Username, PhotoURL: u.Photo()}); err != nil {
		h.Log.Warn("conversation names not updated", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
	if err := h.Follows.RenameParty(ctx, followstore.Party{ID: u.ID, Username: u.Username, PhotoURL: u.Photo()}); err != nil {
		h.Log.Warn("follow records not updated", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
}
