// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	auditlogfeature "github.com/sparktrack/sparktrack/internal/app/features/auditlog"
	dashboardfeature "github.com/sparktrack/sparktrack/internal/app/features/dashboard"
	formationfeature "github.com/sparktrack/sparktrack/internal/app/features/groupformation"
	groupsfeature "github.com/sparktrack/sparktrack/internal/app/features/groups"
	healthfeature "github.com/sparktrack/sparktrack/internal/app/features/health"
	studentsfeature "github.com/sparktrack/sparktrack/internal/app/features/students"
	"github.com/sparktrack/sparktrack/internal/app/formation"
	"github.com/sparktrack/sparktrack/internal/app/store/audit"
	draftstore "github.com/sparktrack/sparktrack/internal/app/store/drafts"
	finalgroupstore "github.com/sparktrack/sparktrack/internal/app/store/finalgroups"
	invitationstore "github.com/sparktrack/sparktrack/internal/app/store/invitations"
	studentstore "github.com/sparktrack/sparktrack/internal/app/store/students"
	"github.com/sparktrack/sparktrack/internal/app/system/auditlog"
	"github.com/sparktrack/sparktrack/internal/app/system/auth"
	"github.com/sparktrack/sparktrack/internal/app/system/ratelimit"
	"github.com/sparktrack/sparktrack/internal/app/system/txn"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: the MongoDB client and database plus shared metrics
//   - logger: the fully configured zap.Logger for this app
//
// SparkTrack resolves the caller from a bearer token, then mounts the
// formation API, the student directory, finalized groups, the dashboard
// and the admin audit listing under /api.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	verifier, err := auth.NewVerifier(appCfg.JWTSecret, appCfg.JWTIssuer, logger)
	if err != nil {
		logger.Error("token verifier init failed", zap.Error(err))
		return nil, err
	}

	db := deps.MongoDatabase

	auditStore := audit.New(db)
	auditLog := auditlog.New(auditStore, logger, auditlog.Config{
		Formation: appCfg.AuditLogFormation,
		Directory: appCfg.AuditLogDirectory,
	})

	directory := studentstore.New(db)
	svc := formation.New(formation.Deps{
		Drafts:      draftstore.New(db),
		Invitations: invitationstore.New(db),
		Directory:   directory,
		FinalGroups: finalgroupstore.New(db),
		Tx:          txn.New(deps.MongoClient, logger),
		Audit:       auditLog,
		Metrics:     deps.Metrics,
		Log:         logger,
	}, formation.Config{
		MaxTeamSize:       appCfg.MaxTeamSize,
		AllocationRetries: appCfg.AllocationRetries,
	})

	var limiter *ratelimit.Limiter
	if appCfg.RateLimitRequests > 0 {
		limiter = ratelimit.New(appCfg.RateLimitRequests, appCfg.RateLimitWindow)
		deps.bg.setLimiter(limiter)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		if len(appCfg.CORSAllowedOrigins) > 0 {
			api.Use(cors.Handler(cors.Options{
				AllowedOrigins:   appCfg.CORSAllowedOrigins,
				AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
				AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
				ExposedHeaders:   []string{"Retry-After"},
				AllowCredentials: false,
				MaxAge:           300,
			}))
		}

		// Resolves the bearer token into an identity; anonymous otherwise.
		api.Use(verifier.LoadIdentity)
		api.Use(auditlog.Middleware)

		formationHandler := formationfeature.NewHandler(svc, logger)
		api.Mount("/formation", formationfeature.Routes(formationHandler, limiter))

		studentsHandler := studentsfeature.NewHandler(directory, auditLog, logger)
		api.Mount("/students", studentsfeature.Routes(studentsHandler))

		groupsHandler := groupsfeature.NewHandler(svc, logger)
		api.Mount("/groups", groupsfeature.Routes(groupsHandler))

		dashboardHandler := dashboardfeature.NewHandler(db, logger)
		api.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler))

		auditHandler := auditlogfeature.NewHandler(auditStore, logger)
		api.Mount("/audit", auditlogfeature.Routes(auditHandler))
	})

	return r, nil
}
