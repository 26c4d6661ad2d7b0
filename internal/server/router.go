// Package server wires middleware, routes and CORS into an http.Handler.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	dochandler "github.com/FACorreiaa/statement-tracker/internal/domain/document/handler"
	txhandler "github.com/FACorreiaa/statement-tracker/internal/domain/transaction/handler"
	"github.com/FACorreiaa/statement-tracker/internal/server/middleware"
	"github.com/FACorreiaa/statement-tracker/internal/server/respond"
	"github.com/FACorreiaa/statement-tracker/pkg/config"
)

// Options carries everything the router needs.
type Options struct {
	Config      *config.Config
	Logger      *slog.Logger
	Documents   *dochandler.Handler
	Txs         *txhandler.Handler
	HealthCheck func() error
}

// NewRouter constructs the engine with middleware and routes registered and
// wraps it in the CORS handler.
func NewRouter(opts Options) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.MaxMultipartMemory = opts.Config.Server.MaxUploadBytes

	r.Use(
		middleware.RequestID(),
		middleware.Logging(opts.Logger),
		middleware.Recovery(opts.Logger),
		middleware.RateLimit(float64(opts.Config.Server.RateLimitPerSecond), opts.Config.Server.RateLimitBurst),
	)

	r.GET("/healthz", func(c *gin.Context) {
		if opts.HealthCheck != nil {
			if err := opts.HealthCheck(); err != nil {
				respond.JSON(c, http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		respond.OK(c, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	opts.Documents.Register(api)
	opts.Txs.Register(api)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{opts.Config.Server.CORSAllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
	})

	return corsHandler.Handler(r)
}
