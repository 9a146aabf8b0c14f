package tts

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// SpeechClient is the part of *openai.Client used for synthesis.
type SpeechClient interface {
	CreateSpeech(ctx context.Context, request openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// OpenAIEngine synthesizes mp3 speech with the OpenAI speech API.
type OpenAIEngine struct {
	client SpeechClient
	model  openai.SpeechModel
	voice  openai.SpeechVoice
}

// NewOpenAIEngine defaults to tts-1 with the alloy voice.
func NewOpenAIEngine(client SpeechClient, model, voice string) *OpenAIEngine {
	e := &OpenAIEngine{client: client, model: openai.TTSModel1, voice: openai.VoiceAlloy}
	if model != "" {
		e.model = openai.SpeechModel(model)
	}
	if voice != "" {
		e.voice = openai.SpeechVoice(voice)
	}
	return e
}

// OpenAILoader returns a Loader for an OpenAIEngine. The API needs no warm-up.
func OpenAILoader(client SpeechClient, model, voice string) Loader {
	return func(context.Context) (Engine, error) {
		return NewOpenAIEngine(client, model, voice), nil
	}
}

func (e *OpenAIEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := e.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          e.model,
		Input:          text,
		Voice:          e.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, errors.Wrap(err, "openai speech")
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, errors.Wrap(err, "read openai speech")
	}
	return audio, nil
}
