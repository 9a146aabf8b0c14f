package server

import (
	"context"
	"io"
	"net"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/mrsingh-rishi/voice-assistant/call"
	"github.com/mrsingh-rishi/voice-assistant/metrics"
	"github.com/mrsingh-rishi/voice-assistant/output"
	"github.com/pkg/errors"
)

type Config struct {
	MaxUploadBytes   int
	CORSAllowOrigins string // "*" when empty
}

// Server exposes a Pipeline over HTTP and WebSocket.
type Server struct {
	app      *fiber.App
	pipeline *call.Pipeline
	metrics  *metrics.Metrics
	cfg      Config

	// ctx ends open WebSocket sessions on shutdown.
	ctx    context.Context
	cancel context.CancelFunc
}

func New(pipeline *call.Pipeline, m *metrics.Metrics, cfg Config) *Server {
	if cfg.CORSAllowOrigins == "" {
		cfg.CORSAllowOrigins = "*"
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		pipeline: pipeline,
		metrics:  m,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "voice-assistant",
		BodyLimit:             cfg.MaxUploadBytes,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(logger.New(logger.Config{
		Format: "${time} ${respHeader:X-Request-ID} ${status} - ${latency} ${method} ${path}\n",
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:  s.cfg.CORSAllowOrigins,
		ExposeHeaders: fiber.HeaderContentDisposition + "," + output.HeaderSessionID + "," + fiber.HeaderXRequestID,
	}))

	s.app.Get("/healthz", s.health)
	s.app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))

	// Strict routing is off, so this also serves /process_audio/.
	s.app.Post("/process_audio", s.processAudio)
	s.app.Delete("/conversation", s.resetConversation)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws/process_audio", websocket.New(s.serveSocket))
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	log.Infow("listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown stops accepting connections, ends WebSocket sessions and waits
// for in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"sessions": s.pipeline.Sessions().Len(),
	})
}

func sessionID(c *fiber.Ctx) string {
	if id := c.Get(output.HeaderSessionID); id != "" {
		return id
	}
	return c.FormValue("session_id")
}

func (s *Server) processAudio(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, `multipart field "file" is required`)
	}
	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not open upload")
	}
	defer f.Close()

	upload, err := io.ReadAll(f)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not read upload")
	}

	res, err := s.pipeline.Process(c.UserContext(), call.Request{
		SessionID: sessionID(c),
		Audio:     upload,
		Language:  c.FormValue("language"),
	})
	if err != nil {
		return err
	}
	return output.SendAudio(c, res.Audio, res.SessionID)
}

func (s *Server) resetConversation(c *fiber.Ctx) error {
	id := sessionID(c)
	s.pipeline.Sessions().Reset(id)
	log.Infow("conversation reset", "session", id)
	if id != "" {
		c.Set(output.HeaderSessionID, id)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) serveSocket(conn *websocket.Conn) {
	if s.cfg.MaxUploadBytes > 0 {
		conn.SetReadLimit(int64(s.cfg.MaxUploadBytes))
	}
	id := conn.Query("session_id")
	if id == "" {
		id = conn.Headers(output.HeaderSessionID)
	}
	call.NewSession(conn, s.pipeline, id).Serve(s.ctx)
}

func errorHandler(c *fiber.Ctx, err error) error {
	requestID := c.GetRespHeader(fiber.HeaderXRequestID)
	status, body := output.NewErrorBody(err, requestID)

	var fe *fiber.Error
	switch {
	case status >= fiber.StatusInternalServerError:
		log.Errorw("request failed", "request_id", requestID, "path", c.Path(), "status", status, "error", err)
	case !errors.As(err, &fe):
		log.Warnw("request rejected", "request_id", requestID, "path", c.Path(), "status", status, "error", err)
	}
	return c.Status(status).JSON(body)
}
