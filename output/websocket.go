package output

import (
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/websocket/v2"
)

// MessageWriter is the write half of a WebSocket connection.
type MessageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

type Frame struct {
	Type int
	Data []byte
}

func AudioFrame(audio []byte) Frame {
	return Frame{Type: websocket.BinaryMessage, Data: audio}
}

func ErrorFrame(err error, requestID string) Frame {
	_, body := NewErrorBody(err, requestID)
	return JSONFrame(body)
}

func JSONFrame(v interface{}) Frame {
	data, err := sonic.Marshal(v)
	if err != nil {
		log.Errorw("encode websocket frame", "error", err)
		data = []byte(`{"error":{"kind":"internal_error","message":"Internal Server Error"}}`)
	}
	return Frame{Type: websocket.TextMessage, Data: data}
}

// WebSocketOutput serializes writes to a connection through one writer
// goroutine.
type WebSocketOutput struct {
	w      MessageWriter
	frames chan Frame
	quit   chan struct{}
	done   chan struct{}

	mu      sync.Mutex
	sending sync.WaitGroup
	started bool
	stopped bool
}

func NewWebSocketOutput(w MessageWriter) *WebSocketOutput {
	return &WebSocketOutput{
		w:      w,
		frames: make(chan Frame, 8),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (o *WebSocketOutput) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started || o.stopped {
		return
	}
	o.started = true
	go func() {
		defer close(o.done)
		for f := range o.frames {
			if err := o.w.WriteMessage(f.Type, f.Data); err != nil {
				log.Warnw("websocket write failed", "error", err)
			}
		}
	}()
}

// Send queues a frame. It blocks while the queue is full and reports false
// once the output is stopped.
func (o *WebSocketOutput) Send(f Frame) bool {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return false
	}
	o.sending.Add(1)
	o.mu.Unlock()
	defer o.sending.Done()

	select {
	case o.frames <- f:
		return true
	case <-o.quit:
		return false
	}
}

// Stop releases blocked senders, flushes queued frames and waits for the
// writer to exit.
func (o *WebSocketOutput) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	started := o.started
	o.mu.Unlock()

	close(o.quit)
	o.sending.Wait()
	close(o.frames)
	if started {
		<-o.done
	}
}
