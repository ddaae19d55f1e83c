// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	accountsfeature "github.com/clanforge/clanhub/internal/app/features/accounts"
	chatsfeature "github.com/clanforge/clanhub/internal/app/features/chats"
	constitutionfeature "github.com/clanforge/clanhub/internal/app/features/constitution"
	engagementfeature "github.com/clanforge/clanhub/internal/app/features/engagement"
	errorsfeature "github.com/clanforge/clanhub/internal/app/features/errors"
	healthfeature "github.com/clanforge/clanhub/internal/app/features/health"
	postsfeature "github.com/clanforge/clanhub/internal/app/features/posts"
	profilefeature "github.com/clanforge/clanhub/internal/app/features/profile"
	shortsfeature "github.com/clanforge/clanhub/internal/app/features/shorts"
	socialfeature "github.com/clanforge/clanhub/internal/app/features/social"
	uploadsfeature "github.com/clanforge/clanhub/internal/app/features/uploads"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. Every backend handle is built here once and passed
// to the feature handlers that need it.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	svc, err := buildServices(coreCfg, appCfg, deps, logger)
	if err != nil {
		logger.Error("service init failed", zap.Error(err))
		return nil, err
	}
	return newRouter(appCfg, deps, svc, logger), nil
}

func newRouter(appCfg AppConfig, deps DBDeps, svc *services, logger *zap.Logger) chi.Router {
	db := deps.MongoDatabase
	sm := svc.sessions
	errLog := errorsfeature.NewErrorLogger(logger)
	errorsHandler := errorsfeature.NewHandler()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Global auth middleware: loads SessionUser into context if signed in.
	r.Use(sm.LoadSessionUser)

	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, appCfg.StorageType, svc.genai != nil, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", svc.metrics.Handler())

	// Uploaded media when stored on local disk
	if appCfg.StorageType == "local" {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
	}

	// Identity
	accountsHandler := accountsfeature.NewHandler(db, sm, errLog, svc.mail, svc.resets, svc.limiter, svc.audit,
		appCfg.BaseURL, appCfg.SiteName, appCfg.ResetTokenTTL, logger)
	r.Mount("/auth", accountsfeature.Routes(accountsHandler))

	// Profiles and the social graph share /users/{user}
	profileHandler := profilefeature.NewHandler(db, svc.files, errLog, svc.audit, logger)
	socialHandler := socialfeature.NewHandler(db, errLog, svc.metrics, svc.ws, logger)
	r.Mount("/profile", profilefeature.Routes(profileHandler, sm))
	r.Route("/users", func(r chi.Router) {
		profilefeature.MountUsers(r, profileHandler, sm)
		socialfeature.MountUsers(r, socialHandler)
	})

	// Messaging
	chatsHandler := chatsfeature.NewHandler(db, errLog, svc.metrics, svc.ws, logger)
	r.Mount("/chats", chatsfeature.Routes(chatsHandler, sm))

	// Content and engagement
	shortsHandler := shortsfeature.NewHandler(db, errLog, logger)
	r.Mount("/shorts", shortsfeature.Routes(shortsHandler, sm))

	postsHandler := postsfeature.NewHandler(db, errLog, svc.audit, logger)
	r.Mount("/posts", postsfeature.Routes(postsHandler, sm))

	engagementHandler := engagementfeature.NewHandler(db, errLog, svc.metrics, logger)
	r.Mount("/content", engagementfeature.Routes(engagementHandler))

	uploadsHandler := uploadsfeature.NewHandler(svc.files, errLog, logger)
	r.Mount("/uploads", uploadsfeature.Routes(uploadsHandler, sm))

	// Constitution builder; answers 503 when no model is configured
	var drafter constitutionfeature.Drafter
	if svc.genai != nil {
		drafter = svc.genai
	}
	constitutionHandler := constitutionfeature.NewHandler(drafter, errLog, logger)
	r.Mount("/constitution", constitutionfeature.Routes(constitutionHandler, sm))

	return r
}
