package conversation

import (
	"sync"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2/log"
	"github.com/mrsingh-rishi/voice-assistant/model"
	"github.com/mrsingh-rishi/voice-assistant/queue"
)

const (
	DefaultSystemPrompt = "You are a helpful AI assistant and your name is rebecca. Maintain context of our ongoing conversation."
	DefaultResetPrompt  = "You are a helpful AI assistant. Maintain context of our ongoing conversation."
	DefaultMaxTokens    = 4096
)

// EstimateTokens approximates the token count of msgs as a quarter of the
// character count of each message, rounded down per message.
func EstimateTokens(msgs []model.Message) int {
	total := 0
	for _, m := range msgs {
		total += estimate(m.Content)
	}
	return total
}

func estimate(content string) int {
	return utf8.RuneCountInString(content) / 4
}

// Buffer is a token-bounded chat history. The first message is always the
// system prompt; when the estimate exceeds the budget the oldest messages
// after it are evicted first. A Buffer is safe for concurrent use.
type Buffer struct {
	mu          sync.Mutex
	system      model.Message
	history     *queue.Queue[model.Message]
	tokens      int
	maxTokens   int
	resetPrompt string
	onEvict     func(n int)
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithResetPrompt sets the system prompt installed by Reset. It defaults to
// DefaultResetPrompt.
func WithResetPrompt(prompt string) Option {
	return func(b *Buffer) { b.resetPrompt = prompt }
}

// WithEvictHook registers fn to be told how many messages each trim removed.
// fn runs with the buffer locked and must not call back into it.
func WithEvictHook(fn func(n int)) Option {
	return func(b *Buffer) { b.onEvict = fn }
}

// NewBuffer returns a Buffer holding only the system prompt. A non-positive
// maxTokens selects DefaultMaxTokens.
func NewBuffer(systemPrompt string, maxTokens int, opts ...Option) *Buffer {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	b := &Buffer{
		history:     queue.New[model.Message](),
		maxTokens:   maxTokens,
		resetPrompt: DefaultResetPrompt,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.setSystem(systemPrompt)
	return b
}

// AddMessage appends a message and trims the history back under budget.
// Messages with an unknown role are dropped.
func (b *Buffer) AddMessage(role model.Role, content string) {
	if !role.Valid() {
		log.Warnw("dropping message with unknown role", "role", role)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.history.Enqueue(model.Message{Role: role, Content: content})
	b.tokens += estimate(content)
	b.trim()
}

// trim must be called with mu held.
func (b *Buffer) trim() {
	evicted := 0
	for b.tokens > b.maxTokens && !b.history.IsEmpty() {
		m, _ := b.history.Dequeue()
		b.tokens -= estimate(m.Content)
		evicted++
	}
	if evicted > 0 && b.onEvict != nil {
		b.onEvict(evicted)
	}
}

// Messages returns a snapshot of the history. The slice is a copy and is not
// affected by later mutations.
func (b *Buffer) Messages() []model.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]model.Message, 0, 1+b.history.Len())
	out = append(out, b.system)
	return b.history.AppendTo(out)
}

// Tokens returns the current estimate for the whole history.
func (b *Buffer) Tokens() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}

// Len returns the number of messages, system prompt included.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return 1 + b.history.Len()
}

// MaxTokens returns the configured budget.
func (b *Buffer) MaxTokens() int {
	return b.maxTokens
}

// Reset drops every message and installs the reset system prompt.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.history.Clear()
	b.setSystem(b.resetPrompt)
}

func (b *Buffer) setSystem(prompt string) {
	b.system = model.Message{Role: model.RoleSystem, Content: prompt}
	b.tokens = estimate(prompt)
}
