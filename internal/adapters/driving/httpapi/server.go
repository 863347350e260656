// Package httpapi exposes the assistant over HTTP with fiber.
package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
)

// ErrMissingCorpusService is returned when the corpus service is not provided.
var ErrMissingCorpusService = errors.New("httpapi: corpus service is required")

// DefaultBodyLimit leaves room for multipart framing above the upload ceiling.
const DefaultBodyLimit = 11 * 1024 * 1024

// Ports aggregates the driving ports served over HTTP.
// Query, Generation and Document are optional; their routes answer 503 when nil.
type Ports struct {
	Corpus     driving.CorpusService
	Query      driving.QueryService
	Generation driving.GenerationService
	Document   driving.DocumentService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Corpus == nil {
		return ErrMissingCorpusService
	}
	return nil
}

// Config tunes the HTTP server.
type Config struct {
	// BodyLimit caps request bodies. Zero uses DefaultBodyLimit.
	BodyLimit int

	// RequestLog enables the access log middleware.
	RequestLog bool
}

// Server is the HTTP API.
type Server struct {
	ports *Ports
	app   *fiber.App
}

// NewServer builds the fiber app and registers every route.
func NewServer(ports *Ports, cfg Config) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		AppName:      "codeassist",
		BodyLimit:    cfg.BodyLimit,
		ReadTimeout:  30 * time.Second,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	if cfg.RequestLog {
		app.Use(fiberlogger.New())
	}
	app.Use(cors.New())

	s := &Server{ports: ports, app: app}
	s.register()
	return s, nil
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.app.ShutdownWithContext(shutdownCtx)
	}
}

func (s *Server) register() {
	s.app.Get("/health", s.health)
	s.app.Post("/index", s.index)

	s.app.Post("/upload", s.upload)
	s.app.Post("/query", s.query)
	s.app.Get("/documents", s.listDocuments)
	s.app.Get("/documents/:id", s.getDocument)
	s.app.Delete("/documents/:id", s.deleteDocument)

	s.app.Post("/assistant/query", s.generate)
}
