package llm

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/mrsingh-rishi/voice-assistant/model"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

const (
	DefaultModel       = openai.GPT3Dot5Turbo
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4096
)

//go:generate mockgen -destination=mock_chat_test.go -package=llm . ChatClient

// ChatClient is the part of *openai.Client used to generate replies.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Config struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Responder produces the assistant's next reply for a conversation.
type Responder struct {
	client ChatClient
	cfg    Config
}

func NewResponder(client ChatClient, cfg Config) *Responder {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &Responder{client: client, cfg: cfg}
}

// Respond asks the chat model for a single completion of history and returns
// its trimmed text.
func (r *Responder) Respond(ctx context.Context, history []model.Message) (string, error) {
	const op = "generate response"

	messages := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	log.Debugw("sending conversation to chat model", "model", r.cfg.Model, "messages", len(messages))
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.cfg.Model,
		Messages:    messages,
		Temperature: r.cfg.Temperature,
		MaxTokens:   r.cfg.MaxTokens,
		N:           1,
	})
	if err != nil {
		return "", model.E(model.KindUpstream, op, errors.Wrap(err, "chat completion"))
	}
	if len(resp.Choices) == 0 {
		return "", model.Ef(model.KindUpstream, op, "chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
