package server

import (
	"context"
	"log/slog"
	"time"

	"runcoach/app/config"
	"runcoach/app/service/conversation"
	"runcoach/app/service/index"
	"runcoach/app/service/session"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
)

// Conversation is the query pipeline as seen by the transport layer.
type Conversation interface {
	Answer(ctx context.Context, sessionID, message string) (conversation.Reply, error)
	SearchArchive(ctx context.Context, query string, k int) ([]index.Result, error)
}

type Server struct {
	cfg      *config.Config
	app      *fiber.App
	conv     Conversation
	sessions *session.Store
	indexSvc *index.Service
	validate *validator.Validate
}

func New(di *do.Injector) (*Server, error) {
	return NewServer(
		do.MustInvoke[*config.Config](di),
		do.MustInvoke[*conversation.Service](di),
		do.MustInvoke[*session.Store](di),
		do.MustInvoke[*index.Service](di),
	), nil
}

func NewServer(
	cfg *config.Config,
	conv Conversation,
	sessions *session.Store,
	indexSvc *index.Service,
) *Server {
	s := &Server{
		cfg:      cfg,
		conv:     conv,
		sessions: sessions,
		indexSvc: indexSvc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "runcoach",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * time.Minute,
	})

	s.app.Post("/chat", s.handleChat)
	s.app.Post("/reset", s.handleReset)
	s.app.Get("/health", s.handleHealth)

	return s
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		if err := s.app.ShutdownWithTimeout(10 * time.Second); err != nil {
			slog.Error("Failed to shut down http server", "error", err)
		}
	}()

	slog.Info("HTTP server listening", "addr", s.cfg.Server.Addr)

	return s.app.Listen(s.cfg.Server.Addr)
}
