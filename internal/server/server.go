// Package server is the HTTP front door: job submission, status and log
// polling, a live log stream and the generated artifacts.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/zulandar/takehome/internal/archive"
	"github.com/zulandar/takehome/internal/jobs"
	"github.com/zulandar/takehome/internal/models"
	"github.com/zulandar/takehome/internal/pipeline"
)

// Submitter starts jobs and describes the stage list.
type Submitter interface {
	Submit(ctx context.Context, req models.JobRequest) (string, error)
	Descriptors() []pipeline.Descriptor
}

// History lists finished jobs.
type History interface {
	Recent(ctx context.Context, f archive.Filter) ([]models.JobArchive, error)
}

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	Runner     Submitter
	Tracker    *jobs.Tracker
	History    History // optional
	OutputRoot string
	Logger     zerolog.Logger

	// JobContext is the parent context of submitted jobs. Jobs outlive the
	// request that started them.
	JobContext context.Context

	// PollInterval is how often the event stream checks for new log lines.
	PollInterval time.Duration
}

// StartOpts holds configuration for the HTTP server.
type StartOpts struct {
	Deps
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Out             io.Writer
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) (*gin.Engine, error) {
	if d.Runner == nil || d.Tracker == nil {
		return nil, fmt.Errorf("server: runner and tracker are required")
	}
	if d.OutputRoot == "" {
		d.OutputRoot = "output"
	}
	if d.JobContext == nil {
		d.JobContext = context.Background()
	}
	if d.PollInterval <= 0 {
		d.PollInterval = 500 * time.Millisecond
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), accessLog(d.Logger))

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	registerRoutes(router, d)
	return router, nil
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Port <= 0 {
		opts.Port = 8080
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	router, err := NewRouter(opts.Deps)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      router,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout, // the event stream clears its own deadline
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(sctx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Take-home generator running at http://localhost:%d\n", opts.Port)
	}
	opts.Logger.Info().Int("port", opts.Port).Msg("http server listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// parseTemplates loads the embedded HTML templates.
func parseTemplates() (*template.Template, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}
