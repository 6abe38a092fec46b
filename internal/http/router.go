// Package httpapi wires the HTTP transport (Gin) to the lead service,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, authentication, idempotency, and rate limiting.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-leads-backend/internal/auth"
	"github.com/tbourn/go-leads-backend/internal/config"
	"github.com/tbourn/go-leads-backend/internal/domain"
	"github.com/tbourn/go-leads-backend/internal/http/errcode"
	"github.com/tbourn/go-leads-backend/internal/http/handlers"
	"github.com/tbourn/go-leads-backend/internal/http/middleware"
	"github.com/tbourn/go-leads-backend/internal/repo"
	"github.com/tbourn/go-leads-backend/internal/services"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// leadRepoShim adapts the repository free functions to the services.LeadRepo
// interface expected by the LeadService.
type leadRepoShim struct{}

// CreateLead proxies repo.CreateLead.
func (leadRepoShim) CreateLead(ctx context.Context, db *gorm.DB, l *domain.Lead) error {
	return repo.CreateLead(ctx, db, l)
}

// ListLeads proxies repo.ListLeads.
func (leadRepoShim) ListLeads(ctx context.Context, db *gorm.DB) ([]domain.Lead, error) {
	return repo.ListLeads(ctx, db)
}

// GetLead proxies repo.GetLead.
func (leadRepoShim) GetLead(ctx context.Context, db *gorm.DB, id uint) (*domain.Lead, error) {
	return repo.GetLead(ctx, db, id)
}

// UpdateLeadState proxies repo.UpdateLeadState.
func (leadRepoShim) UpdateLeadState(ctx context.Context, db *gorm.DB, id uint, state domain.LeadState, at time.Time) error {
	return repo.UpdateLeadState(ctx, db, id, state, at)
}

// idempotencyShim stores idempotent create results in the idempotency table.
type idempotencyShim struct {
	db  *gorm.DB
	ttl time.Duration
}

// Find returns the result recorded for an unexpired (scope, key).
func (s idempotencyShim) Find(ctx context.Context, scope, key string, now time.Time) (handlers.StoredResult, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return handlers.StoredResult{}, false, nil
	}
	if err != nil {
		return handlers.StoredResult{}, false, err
	}
	return handlers.StoredResult{LeadID: rec.LeadID, Fingerprint: rec.Fingerprint}, true, nil
}

// Save records leadID for (scope, key). A concurrent writer that won the
// race leaves its own record in place.
func (s idempotencyShim) Save(ctx context.Context, scope, key, fingerprint string, leadID uint, status int) error {
	_, err := repo.CreateIdempotency(ctx, s.db, scope, key, fingerprint, leadID, status, s.ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. notifier may be nil, in which case no notifications are scheduled.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Compression
//  8. CORS and Security headers
//
// Per route: POST /leads validates the Idempotency-Key format and is limited
// per client IP, replays included; protected routes authenticate first so
// the limiter keys on the username.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, authn auth.Authenticator, notifier handlers.Notifier, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"Authorization", "Cookie"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	r.Use(limitBody(maxBodyBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Response compression
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 8) CORS posture and security headers
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, errcode.NotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, errcode.MethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: service ← repo/db
	leadSvc := services.NewLeadService(db, leadRepoShim{})
	idem := idempotencyShim{db: db, ttl: cfg.IdempotencyTTL}

	opts := []handlers.Option{
		handlers.WithIdempotency(idem),
		handlers.WithListVersion(func(ctx context.Context) (int64, *time.Time, error) {
			return repo.LeadsStats(ctx, db)
		}),
	}
	if notifier != nil {
		opts = append(opts, handlers.WithNotifier(notifier))
	}
	h := handlers.New(leadSvc, opts...)

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Public intake
		api.POST("/leads",
			middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}),
			rl.Handler(),
			h.CreateLead,
		)

		// Operator endpoints
		protected := api.Group("", middleware.BasicAuth(authn), rl.Handler(), middleware.PrivateCache())
		protected.GET("/leads", h.ListLeads)
		protected.GET("/leads/:id", h.GetLead)
		protected.PUT("/leads/:id", h.UpdateLeadState)
	}
}

// corsMiddleware returns the CORS chain. With no allowlist every origin is
// accepted without credentials; otherwise allowed origins are echoed back.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey, "If-None-Match"}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", handlers.HeaderReplayed, "Retry-After"}
	methods := []string{"GET", "POST", "PUT", "OPTIONS"}

	if len(origins) == 0 {
		return []gin.HandlerFunc{
			// Force ACAO: * even for requests without an Origin header.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins:  true,
				AllowMethods:     methods,
				AllowHeaders:     allowHeaders,
				ExposeHeaders:    exposeHeaders,
				AllowCredentials: false, // must remain false with AllowAllOrigins
				MaxAge:           12 * time.Hour,
			}),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     methods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}),
	}
}

// limitBody caps the request body size using http.MaxBytesReader. Requests
// exceeding the cap cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
