package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

const (
	DefaultElevenLabsURL   = "https://api.elevenlabs.io"
	DefaultElevenLabsModel = "eleven_multilingual_v2"
)

type ElevenLabsConfig struct {
	APIKey  string
	VoiceID string
	ModelID string
	BaseURL string
	Client  *http.Client
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type speechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// ElevenLabsEngine synthesizes mp3 speech with the ElevenLabs REST API.
type ElevenLabsEngine struct {
	cfg ElevenLabsConfig
}

func NewElevenLabsEngine(cfg ElevenLabsConfig) *ElevenLabsEngine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultElevenLabsURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultElevenLabsModel
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	return &ElevenLabsEngine{cfg: cfg}
}

// ElevenLabsLoader returns a Loader that checks the configured voice exists
// before handing out the engine.
func ElevenLabsLoader(cfg ElevenLabsConfig) Loader {
	return func(ctx context.Context) (Engine, error) {
		e := NewElevenLabsEngine(cfg)
		if err := e.verifyVoice(ctx); err != nil {
			return nil, err
		}
		return e, nil
	}
}

func (e *ElevenLabsEngine) endpoint(path string) string {
	return e.cfg.BaseURL + path + url.PathEscape(e.cfg.VoiceID)
}

func (e *ElevenLabsEngine) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("xi-api-key", e.cfg.APIKey)
	resp, err := e.cfg.Client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "elevenlabs request")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, errors.Errorf("elevenlabs: bad status %s: %s", resp.Status, bytes.TrimSpace(body))
	}
	return resp, nil
}

func (e *ElevenLabsEngine) verifyVoice(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint("/v1/voices/"), nil)
	if err != nil {
		return errors.Wrap(err, "build voice request")
	}
	resp, err := e.do(req)
	if err != nil {
		return errors.Wrapf(err, "verify voice %s", e.cfg.VoiceID)
	}
	resp.Body.Close()
	return nil
}

func (e *ElevenLabsEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	payload, err := sonic.Marshal(speechRequest{
		Text:          text,
		ModelID:       e.cfg.ModelID,
		VoiceSettings: voiceSettings{Stability: 0.75, SimilarityBoost: 0.7},
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal payload")
	}

	u := fmt.Sprintf("%s?output_format=mp3_44100_128", e.endpoint("/v1/text-to-speech/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build speech request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read speech")
	}
	return audio, nil
}
