// internal/app/bootstrap/services.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/clanforge/clanhub/internal/app/store/audit"
	userstore "github.com/clanforge/clanhub/internal/app/store/users"
	"github.com/clanforge/clanhub/internal/app/system/auditlog"
	"github.com/clanforge/clanhub/internal/app/system/auth"
	"github.com/clanforge/clanhub/internal/app/system/filestore"
	"github.com/clanforge/clanhub/internal/app/system/genai"
	"github.com/clanforge/clanhub/internal/app/system/livews"
	"github.com/clanforge/clanhub/internal/app/system/mailer"
	"github.com/clanforge/clanhub/internal/app/system/metrics"
	"github.com/clanforge/clanhub/internal/app/system/ratelimit"
	"github.com/clanforge/clanhub/internal/app/system/resettoken"
	"github.com/clanforge/clanhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// services are the backend handles built once and handed to features.
type services struct {
	sessions *auth.SessionManager
	files    filestore.Store
	mail     *mailer.Mailer
	resets   *resettoken.Issuer
	limiter  *ratelimit.SignInLimiter
	audit    *auditlog.Logger
	metrics  *metrics.Metrics
	genai    *genai.Client // nil when not configured
	ws       livews.Config
}

func buildServices(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (*services, error) {
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}
	// Fresh user data on each request: role and username changes take
	// effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase))

	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Long())
	defer cancel()

	files, err := buildFileStore(ctx, appCfg)
	if err != nil {
		return nil, err
	}

	var gen *genai.Client
	if appCfg.GenAIProject != "" {
		gen, err = genai.New(ctx, genai.Config{
			Project:  appCfg.GenAIProject,
			Location: appCfg.GenAILocation,
			Model:    appCfg.GenAIModel,
		}, logger)
		if err != nil {
			// The rest of the site works without it.
			logger.Warn("constitution builder disabled", zap.Error(err))
			gen = nil
		}
	}

	secret := appCfg.ResetTokenSecret
	if secret == "" {
		secret = appCfg.SessionKey
	}

	ws := livews.DefaultConfig()
	ws.AllowedOrigins = appCfg.CORSAllowedOrigins

	return &services{
		sessions: sessionMgr,
		files:    files,
		mail: mailer.New(mailer.Config{
			Host:     appCfg.MailSMTPHost,
			Port:     appCfg.MailSMTPPort,
			User:     appCfg.MailSMTPUser,
			Pass:     appCfg.MailSMTPPass,
			From:     appCfg.MailFrom,
			FromName: appCfg.MailFromName,
		}, logger),
		resets:  resettoken.NewIssuer(secret, appCfg.ResetTokenTTL),
		limiter: ratelimit.NewSignInLimiter(appCfg.SigninRatePerMinute),
		audit: auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
			Auth:  appCfg.AuditLogAuth,
			Admin: appCfg.AuditLogAdmin,
		}),
		metrics: metrics.New(),
		genai:   gen,
		ws:      ws,
	}, nil
}

func buildFileStore(ctx context.Context, appCfg AppConfig) (filestore.Store, error) {
	switch appCfg.StorageType {
	case "local":
		return filestore.NewLocal(appCfg.StorageLocalPath, appCfg.StorageLocalURL)
	case "s3":
		return filestore.NewS3(ctx, filestore.S3Config{
			Region:    appCfg.StorageS3Region,
			Bucket:    appCfg.StorageS3Bucket,
			Prefix:    appCfg.StorageS3Prefix,
			Endpoint:  appCfg.StorageS3Endpoint,
			PublicURL: appCfg.StorageS3PublicURL,
		})
	}
	return nil, errors.New("unknown storage_type " + appCfg.StorageType)
}
