package conversation

import (
	"sync"

	"github.com/gofiber/fiber/v2/log"
)

// DefaultSessionID is used by callers that do not identify a conversation.
// All of them share one history.
const DefaultSessionID = ""

// Config is applied to every Buffer a Store creates.
type Config struct {
	SystemPrompt string
	ResetPrompt  string
	MaxTokens    int
	// OnEvict, if set, receives the number of messages each trim removed.
	OnEvict func(n int)
}

// Store maps session ids to their own Buffer.
type Store struct {
	cfg     Config
	mu      sync.Mutex
	buffers map[string]*Buffer
}

func NewStore(cfg Config) *Store {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.ResetPrompt == "" {
		cfg.ResetPrompt = DefaultResetPrompt
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &Store{
		cfg:     cfg,
		buffers: make(map[string]*Buffer),
	}
}

// Get returns the buffer for id, creating it on first use.
func (s *Store) Get(id string) *Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buffers[id]
	if !ok {
		opts := []Option{WithResetPrompt(s.cfg.ResetPrompt)}
		if s.cfg.OnEvict != nil {
			opts = append(opts, WithEvictHook(s.cfg.OnEvict))
		}
		b = NewBuffer(s.cfg.SystemPrompt, s.cfg.MaxTokens, opts...)
		s.buffers[id] = b
		log.Debugw("conversation created", "session", id)
	}
	return b
}

// Reset resets the history of id.
func (s *Store) Reset(id string) {
	s.Get(id).Reset()
}

// Delete forgets id entirely; the next Get starts from the initial prompt.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buffers, id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffers)
}
