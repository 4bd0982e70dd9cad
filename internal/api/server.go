// Package api exposes the request lifecycle over HTTP.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/switchboard/internal/scheduler"
	"github.com/zulandar/switchboard/internal/ticket"
	"gorm.io/gorm"
)

// Ticker runs a scheduler sweep on demand.
type Ticker interface {
	Tick(ctx context.Context) (scheduler.TickResult, error)
}

// Opts holds the dependencies of the HTTP API.
type Opts struct {
	DB          *gorm.DB
	Tickets     *ticket.Service
	Scheduler   Ticker              // optional; enables POST /api/v1/scheduler/tick
	Gatherer    prometheus.Gatherer // optional; enables GET /metrics
	CORSOrigins []string
	Logger      logrus.FieldLogger
}

// StartOpts holds configuration for the API server.
type StartOpts struct {
	Opts
	Port int
	Out  io.Writer
}

// NewHandler builds the HTTP handler: the gin router wrapped in CORS.
func NewHandler(opts Opts) (http.Handler, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("api: db is required")
	}
	if opts.Tickets == nil {
		return nil, fmt.Errorf("api: tickets is required")
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), accessLog(opts.Logger))
	registerRoutes(router, opts)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	}).Handler(router), nil
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	handler, err := NewHandler(opts.Opts)
	if err != nil {
		return err
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "API listening on http://localhost:%d/api/v1\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
