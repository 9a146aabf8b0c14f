package stt

import (
	"bytes"
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// AudioClient is the part of *openai.Client used for transcription.
type AudioClient interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// OpenAIEngine transcribes segments with the OpenAI audio API.
type OpenAIEngine struct {
	client AudioClient
	model  string
}

// NewOpenAIEngine returns an engine using model, or whisper-1 when empty.
func NewOpenAIEngine(client AudioClient, model string) *OpenAIEngine {
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAIEngine{client: client, model: model}
}

func (e *OpenAIEngine) Transcribe(ctx context.Context, wav []byte, language string) (string, error) {
	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    e.model,
		FilePath: "segment.wav",
		Reader:   bytes.NewReader(wav),
		Language: language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", errors.Wrap(err, "openai transcription")
	}
	return strings.TrimSpace(resp.Text), nil
}
