// Package server exposes the coach over HTTP with fiber.
package server

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/coach"
	"github.com/park285/chess-coach/internal/domain"
)

// CoachService is the part of coach.Service the handlers use.
type CoachService interface {
	BestMove(ctx context.Context, fen string) (coach.BestMoveResult, error)
	Coach(ctx context.Context, fen, playerColor string) (coach.CoachResult, error)
	Analyze(ctx context.Context, fen string) (coach.AnalyzeResult, error)
	Chat(ctx context.Context, message, fen string) (string, error)
	LoadPGN(ctx context.Context, text string) (coach.PGNResult, error)
	Describe(fen string) (string, error)
	BoardImage(ctx context.Context, fen, lastMove string) ([]byte, error)
	History(ctx context.Context, limit int) ([]*domain.Analysis, error)
	Analysis(ctx context.Context, id string) (*domain.Analysis, error)
}

type Options struct {
	AllowedOrigins []string
	// BodyLimit caps request bodies; PGN uploads are the largest.
	BodyLimit int
	Logger    *zap.Logger
}

type Server struct {
	app    *fiber.App
	svc    CoachService
	logger *zap.Logger
}

func New(svc CoachService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bodyLimit := opts.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 1 << 20
	}
	s := &Server{svc: svc, logger: logger}
	s.app = fiber.New(fiber.Config{
		AppName:               "chess-coach",
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	s.app.Use(corsMiddleware(opts.AllowedOrigins))
	s.app.Use(s.requestLogger())

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.app.Post("/best-move", s.bestMove)
	s.app.Post("/coach", s.coach)
	s.app.Post("/analyze", s.analyze)
	s.app.Post("/chat", s.chat)
	s.app.Post("/load-pgn", s.loadPGN)
	s.app.Post("/describe", s.describe)
	s.app.Get("/board.png", s.boardImage)
	s.app.Get("/history", s.history)
	s.app.Get("/history/:id", s.analysis)
	return s
}

func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.logger.Info("http_listen", zap.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// corsMiddleware allows credentials only for explicit origins; fiber refuses
// credentials with a wildcard.
func corsMiddleware(origins []string) fiber.Handler {
	cfg := cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}
	cleaned := make([]string, 0, len(origins))
	wildcard := len(origins) == 0
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			wildcard = true
		}
		if o != "" {
			cleaned = append(cleaned, o)
		}
	}
	if !wildcard && len(cleaned) > 0 {
		cfg.AllowOrigins = strings.Join(cleaned, ", ")
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

const requestIDHeader = "X-Request-ID"

func (s *Server) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		rid := strings.TrimSpace(c.Get(requestIDHeader))
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDHeader, rid)
		c.Locals("request_id", rid)

		err := c.Next()
		if err != nil {
			// Let the error handler write the status before logging it.
			if herr := s.handleError(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		s.logger.Info("http_request",
			zap.String("request_id", rid),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("took", time.Since(start)),
		)
		return nil
	}
}
