package tts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeElevenLabs(t *testing.T, voice string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/voices/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "xi-key", r.Header.Get("xi-api-key"))
		if r.URL.Path != "/v1/voices/"+voice {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `{"voice_id":"`+voice+`"}`)
	})
	mux.HandleFunc("/v1/text-to-speech/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/text-to-speech/"+voice, r.URL.Path)
		assert.Equal(t, "mp3_44100_128", r.URL.Query().Get("output_format"))
		assert.Equal(t, "xi-key", r.Header.Get("xi-api-key"))

		var req speechRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultElevenLabsModel, req.ModelID)
		_, _ = io.WriteString(w, "mp3:"+req.Text)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestElevenLabsLoaderAndSynthesize(t *testing.T) {
	srv := fakeElevenLabs(t, "rachel")

	engine, err := ElevenLabsLoader(ElevenLabsConfig{APIKey: "xi-key", VoiceID: "rachel", BaseURL: srv.URL + "/"})(context.Background())
	require.NoError(t, err)

	audio, err := engine.Synthesize(context.Background(), "good morning")
	require.NoError(t, err)
	assert.Equal(t, "mp3:good morning", string(audio))
}

func TestElevenLabsLoaderUnknownVoice(t *testing.T) {
	srv := fakeElevenLabs(t, "rachel")

	_, err := ElevenLabsLoader(ElevenLabsConfig{APIKey: "xi-key", VoiceID: "nobody", BaseURL: srv.URL})(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
