// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	userstore "github.com/clanforge/clanhub/internal/app/store/users"
	"github.com/clanforge/clanhub/internal/app/system/authutil"
	"github.com/clanforge/clanhub/internal/app/system/normalize"
	"github.com/clanforge/clanhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.CreatorEmail != "" {
		if err := ensureCreator(ctx, deps, appCfg.CreatorEmail, appCfg.CreatorPassword, logger); err != nil {
			logger.Error("creator bootstrap failed", zap.Error(err))
			return err
		}
	}
	return nil
}

// ensureCreator makes sure the account for email exists and has the
// Creator role. An existing account keeps its password and profile. A new
// account gets password (when given) and a default profile derived from
// the email.
func ensureCreator(ctx context.Context, deps DBDeps, email, password string, logger *zap.Logger) error {
	users := userstore.New(deps.MongoDatabase, logger)
	email = normalize.Email(email)

	u, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.Role == models.RoleCreator {
			logger.Info("creator already configured", zap.String("user_id", u.ID.Hex()))
			return nil
		}
		if err := users.SetRole(ctx, u.ID, models.RoleCreator); err != nil {
			return fmt.Errorf("promote creator: %w", err)
		}
		logger.Info("promoted existing user to creator",
			zap.String("user_id", u.ID.Hex()),
			zap.String("previous_role", u.Role))
		return nil

	case !errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("look up creator: %w", err)
	}

	var hash string
	if password != "" {
		if err := authutil.ValidatePassword(password); err != nil {
			return fmt.Errorf("creator_password: %w", err)
		}
		if hash, err = authutil.HashPassword(password); err != nil {
			return err
		}
	} else {
		logger.Warn("creator created without a password; use password reset to sign in")
	}

	created, err := users.Create(ctx, userstore.NewAccount{
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleCreator,
	})
	if err != nil {
		return fmt.Errorf("create creator: %w", err)
	}
	created, err = users.EnsureProfile(ctx, created)
	if err != nil {
		return fmt.Errorf("creator profile: %w", err)
	}
	logger.Info("created creator account",
		zap.String("user_id", created.ID.Hex()),
		zap.String("username", created.Username))
	return nil
}
