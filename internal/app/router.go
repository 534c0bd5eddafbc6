package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	openapimiddleware "github.com/oapi-codegen/nethttp-middleware"

	"github.com/samuelozorio/nextpage-mvp-sub000/api"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/audit"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/config"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/handlers"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/httpx"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/middleware"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/points"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/store"
)

// uploadEnvelopeBytes covers the multipart framing around the file itself.
const uploadEnvelopeBytes = 1 << 20

// NewImporter wires the points importer to Postgres.
func NewImporter(cfg config.ImportConfig, pool *pgxpool.Pool, logger *slog.Logger) (*points.Importer, *store.PointsStore) {
	ps := store.NewPointsStore(pool)
	importer := points.NewImporter(ps, ps, points.ImporterConfig{
		MaxFileBytes: cfg.MaxFileBytes,
		MaxRecords:   cfg.MaxRecords,
		Synonyms: points.Synonyms{
			Document: cfg.DocumentHeaders,
			Points:   cfg.PointsHeaders,
			Name:     cfg.NameHeaders,
			Email:    cfg.EmailHeaders,
		},
		ReportSkippedRows:    cfg.ReportSkippedRows,
		RejectDuplicateFiles: cfg.RejectDuplicateFiles,
		Processor: points.ProcessorConfig{
			BatchSize:         cfg.BatchSize,
			VerifyCheckDigits: cfg.VerifyCheckDigits,
		},
	}, logger)
	return importer, ps
}

func NewRouter(cfg config.Config, pool *pgxpool.Pool, logger *slog.Logger) (http.Handler, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(api.Spec)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(cfg.Env))
	r.Use(middleware.Logging(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.LimitBodyBytesWithOverrides(cfg.APIMaxBodyBytes, []middleware.BodyLimitOverride{
		{Method: http.MethodPost, Pattern: "/organizations/*/imports", MaxBytes: cfg.Import.MaxFileBytes + uploadEnvelopeBytes},
	}))

	apiRouter := chi.NewRouter()
	apiRouter.Use(openapimiddleware.OapiRequestValidatorWithOptions(doc, &openapimiddleware.Options{
		SilenceServersWarning: true,
		Options: openapi3filter.Options{
			// Uploads are read once by the handler.
			ExcludeRequestBody: true,
		},
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			httpx.WriteJSON(w, statusCode, httpx.ErrorEnvelope{
				Error:     httpx.ErrorBody{Code: "validation_error", Message: message},
				RequestID: w.Header().Get("X-Request-Id"),
			})
		},
	}))

	q := store.New(pool)
	importer, ps := NewImporter(cfg.Import, pool, logger)
	h := handlers.NewServer(cfg, q, audit.NewLogger(q), importer, ps, logger)

	authMW := middleware.AuthMiddleware{Sessions: q, CookieName: cfg.SessionCookieName}
	loginLimiter := middleware.NewIPRateLimiterWithMaxEntries(cfg.LoginRateLimit, time.Minute, cfg.RateLimitMaxIPs)
	csrf := middleware.EnforceCSRF(cfg.CSRFEnforce)

	apiRouter.Group(func(public chi.Router) {
		public.With(loginLimiter.Middleware("Too many login attempts")).Post("/auth/login", h.PostAuthLogin)
		public.Get("/health", h.GetHealth)
	})

	apiRouter.Group(func(protected chi.Router) {
		protected.Use(authMW.RequireAuth)
		protected.Get("/auth/me", h.GetAuthMe)
		protected.Get("/auth/csrf", h.GetAuthCsrf)
		protected.With(csrf).Post("/auth/logout", h.PostAuthLogout)
		protected.Get("/imports/template.csv", h.GetImportTemplateCsv)

		protected.Route("/organizations/{organizationId}/imports", func(imports chi.Router) {
			imports.Use(middleware.RequireRole(points.RoleAdmin))
			imports.With(csrf).Post("/", h.PostOrganizationImports)
			imports.Get("/", h.GetOrganizationImports)
			imports.Get("/{importJobId}", h.GetOrganizationImport)
			imports.Get("/{importJobId}/errors.csv", h.GetOrganizationImportErrorsCsv)
		})
	})

	r.Mount("/api", apiRouter)
	return r, nil
}
