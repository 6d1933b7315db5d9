// Package httpapi wires the HTTP transport (Gin) to the receipt workflow,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, idempotency, and rate limiting.
//
// @title       Receipt Service API
// @version     1.0
// @description Appointment receipts rendered to PDF, stored and emailed.
// @BasePath    /api/v1
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

	"github.com/tbourn/go-receipt-service/internal/config"
	"github.com/tbourn/go-receipt-service/internal/http/docs"
	"github.com/tbourn/go-receipt-service/internal/http/handlers"
	"github.com/tbourn/go-receipt-service/internal/http/middleware"
	"github.com/tbourn/go-receipt-service/internal/repo"
	"github.com/tbourn/go-receipt-service/internal/storage"
)

// Services are the collaborators the router hands to the handlers. DB backs
// idempotency records and may be nil, in which case Idempotency-Key headers
// are validated but never replayed.
type Services struct {
	DB           *gorm.DB
	Receipts     handlers.ReceiptService
	Files        storage.Store
	Appointments handlers.AppointmentService
	HTTPClient   *http.Client
}

// idemStore adapts the repository free functions to handlers.IdempotencyStore.
type idemStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// Lookup proxies repo.GetIdempotency; a missing or expired row is not an error.
func (s idemStore) Lookup(ctx context.Context, clientID, scope, key string, now time.Time) (string, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, clientID, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.ReceiptID, true, nil
}

// Save proxies repo.CreateIdempotency; a concurrent duplicate keeps the first row.
func (s idemStore) Save(ctx context.Context, clientID, scope, key, receiptID string, status int) error {
	_, err := repo.CreateIdempotency(ctx, s.db, clientID, scope, key, receiptID, status, s.ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Gzip (stored PDFs, metrics and Swagger excluded)
//  8. CORS and Security headers
//
// Idempotency validation and rate limiting are attached per route, on the
// endpoints that do expensive work.
func RegisterRoutes(r *gin.Engine, svc Services, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-Goog-Api-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Compression for JSON and front-end assets
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedExtensions([]string{".pdf", ".png", ".jpg", ".jpeg", ".gif", ".webp"}),
		gzip.WithExcludedPaths([]string{"/metrics", "/swagger/", cfg.Storage.PublicPath + "/"}),
	))

	// 8) CORS posture (safe defaults: allow all if none configured)
	r.Use(corsMiddleware(cfg.CORS)...)

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks: front-end assets, then the JSON 404
	r.NoRoute(handlers.Static(cfg.StaticDir))
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	var idem handlers.IdempotencyStore
	var lookup middleware.IdempotencyLookup
	if svc.DB != nil {
		store := idemStore{db: svc.DB, ttl: cfg.IdempotencyTTL}
		idem = store
		lookup = func(ctx context.Context, clientID, scope, key string, now time.Time) (bool, error) {
			_, found, err := store.Lookup(ctx, clientID, scope, key, now)
			return found, err
		}
	}

	h := handlers.New(handlers.Deps{
		Receipts:     svc.Receipts,
		Files:        svc.Files,
		Appointments: svc.Appointments,
		Idempotency:  idem,
		Integrations: handlers.Integrations{
			MapsAPIKey:   cfg.Integrations.MapsAPIKey,
			GeminiAPIKey: cfg.Integrations.GeminiAPIKey,
			GeminiURL:    cfg.Integrations.GeminiURL,
		},
		HTTPClient: svc.HTTPClient,
	})

	// Idempotency validation runs before the limiter so replays bypass it.
	idemCheck := middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, lookup)
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())

	// Liveness/health and front-end integrations
	r.GET("/health", h.Health)
	r.GET("/maps-key", h.MapsKey)
	r.POST("/gemini-proxy", rl.Handler(), h.GeminiProxy)
	r.POST("/webhooks/appointments", h.AppointmentWebhook)

	// Legacy form endpoint kept for existing front-ends
	r.POST("/generate-receipt", idemCheck, rl.Handler(), h.CreateReceipt)

	// Stored receipts, read-only by file name
	r.GET(cfg.Storage.PublicPath+"/:filename", h.ServeReceiptFile)
	r.HEAD(cfg.Storage.PublicPath+"/:filename", h.ServeReceiptFile)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/receipts", idemCheck, rl.Handler(), h.CreateReceipt)
		api.GET("/receipts/:id", h.GetReceipt)
	}

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}

// corsMiddleware returns the CORS chain. With no allowlist every origin is
// accepted and ACAO is forced to "*" even without an Origin header; otherwise
// allowed origins are echoed back.
func corsMiddleware(cc config.CORSConfig) []gin.HandlerFunc {
	methods := []string{"GET", "HEAD", "POST", "OPTIONS"}
	headers := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey}
	expose := []string{"X-Request-ID", "Content-Length", "Content-Disposition", "Idempotency-Replayed"}

	if len(cc.AllowedOrigins) == 0 {
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins:  true,
				AllowMethods:     methods,
				AllowHeaders:     headers,
				ExposeHeaders:    expose,
				AllowCredentials: false, // must remain false with AllowAllOrigins
				MaxAge:           12 * time.Hour,
			}),
		}
	}

	allowed := make(map[string]struct{}, len(cc.AllowedOrigins))
	for _, o := range cc.AllowedOrigins {
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
			AllowOrigins:     cc.AllowedOrigins,
			AllowMethods:     methods,
			AllowHeaders:     headers,
			ExposeHeaders:    expose,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}),
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
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
