package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-catalog/utils/logger"
	"github.com/sahilchouksey/course-catalog/utils/response"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
	log           *logger.Logger
}

// NewAPIServer creates the fiber app; bodyLimit caps request bodies in bytes
func NewAPIServer(listenAddress string, bodyLimit int, log *logger.Logger) *APIServer {
	if log == nil {
		log = logger.Nop()
	}
	app := fiber.New(fiber.Config{
		AppName:      "course-catalog",
		BodyLimit:    bodyLimit,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return response.Error(c, fe.Code, fe.Message, "ERROR")
			}
			log.Error("unhandled error", "path", c.Path(), "error", err)
			return response.InternalServerError(c, "")
		},
	})
	return &APIServer{
		app:           app,
		listenAddress: listenAddress,
		log:           log,
	}
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

func (s *APIServer) Run() error {
	s.log.Info("starting API server", "address", s.listenAddress)
	return s.app.Listen(s.listenAddress)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *APIServer) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
