package call

import (
	"context"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/mrsingh-rishi/voice-assistant/output"
)

// Conn is the part of a WebSocket connection a Session uses.
type Conn interface {
	output.MessageWriter
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// controlEvent is a JSON text frame from the client. Binary frames carry
// uploads.
type controlEvent struct {
	Event     string `json:"event"` // "start", "reset", "stop"
	SessionID string `json:"session_id,omitempty"`
	Language  string `json:"language,omitempty"`
}

// Session serves one WebSocket connection: every binary message is a spoken
// turn answered with one binary mp3 message.
type Session struct {
	id       string
	language string
	conn     Conn
	pipeline *Pipeline
	out      *output.WebSocketOutput
}

// NewSession starts a session bound to sessionID, or to a fresh id when it is
// empty.
func NewSession(conn Conn, pipeline *Pipeline, sessionID string) *Session {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &Session{
		id:       sessionID,
		conn:     conn,
		pipeline: pipeline,
		out:      output.NewWebSocketOutput(conn),
	}
}

func (s *Session) ID() string { return s.id }

// Serve handles frames until the client closes the connection, sends a stop
// event or ctx ends.
func (s *Session) Serve(ctx context.Context) {
	defer s.conn.Close()
	s.out.Start()
	defer s.out.Stop()

	// The connection may be pooled and reused once Serve returns, so wait for
	// a close that has already started.
	closed := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(closed)
		s.conn.Close()
	})
	defer func() {
		if !stop() {
			<-closed
		}
	}()

	log.Infow("websocket session started", "session", s.id)
	s.out.Send(output.JSONFrame(controlEvent{Event: "start", SessionID: s.id}))

	for {
		mt, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || ctx.Err() != nil {
				log.Infow("websocket session closed", "session", s.id)
			} else {
				log.Warnw("websocket read error", "session", s.id, "error", err)
			}
			return
		}

		switch mt {
		case websocket.BinaryMessage:
			s.turn(ctx, msg)
		case websocket.TextMessage:
			if !s.control(msg) {
				return
			}
		}
	}
}

func (s *Session) turn(ctx context.Context, upload []byte) {
	requestID := uuid.NewString()
	res, err := s.pipeline.Process(ctx, Request{SessionID: s.id, Audio: upload, Language: s.language})
	if err != nil {
		log.Errorw("websocket turn failed", "session", s.id, "request_id", requestID, "error", err)
		s.out.Send(output.ErrorFrame(err, requestID))
		return
	}
	s.out.Send(output.AudioFrame(res.Audio))
}

// control applies a control event and reports whether to keep serving.
func (s *Session) control(msg []byte) bool {
	var ev controlEvent
	if err := sonic.Unmarshal(msg, &ev); err != nil {
		log.Warnw("bad control frame", "session", s.id, "error", err)
		return true
	}

	switch strings.ToLower(ev.Event) {
	case "start":
		if ev.SessionID != "" {
			s.id = ev.SessionID
		}
		s.language = ev.Language
		log.Infow("websocket session configured", "session", s.id, "language", s.language)
		s.out.Send(output.JSONFrame(controlEvent{Event: "start", SessionID: s.id, Language: s.language}))
	case "reset":
		s.pipeline.Sessions().Reset(s.id)
		s.out.Send(output.JSONFrame(controlEvent{Event: "reset", SessionID: s.id}))
	case "stop":
		log.Infow("websocket session stopped by client", "session", s.id)
		return false
	default:
		log.Warnw("unknown control event", "session", s.id, "event", ev.Event)
	}
	return true
}
