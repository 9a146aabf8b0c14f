package stt

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2/log"
	gws "github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const DefaultDeepgramURL = "wss://api.deepgram.com/v1/listen"

// closeStream asks Deepgram to flush final results and close the socket.
var closeStream = []byte(`{"type":"CloseStream"}`)

// TranscriptionMessage is the subset of a Deepgram streaming message we read.
type TranscriptionMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// DeepgramEngine transcribes each segment over its own Deepgram streaming
// connection: the segment is sent as one binary frame followed by
// CloseStream, and the final transcripts are collected until the server
// closes the connection.
type DeepgramEngine struct {
	APIKey   string
	Endpoint string
	Model    string
	Dialer   *gws.Dialer
}

func NewDeepgramEngine(apiKey, endpoint, model string) *DeepgramEngine {
	if endpoint == "" {
		endpoint = DefaultDeepgramURL
	}
	if model == "" {
		model = "nova-2"
	}
	return &DeepgramEngine{
		APIKey:   apiKey,
		Endpoint: endpoint,
		Model:    model,
		Dialer:   &gws.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

func (dg *DeepgramEngine) listenURL(language string) (string, error) {
	u, err := url.Parse(dg.Endpoint)
	if err != nil {
		return "", errors.Wrap(err, "parse deepgram endpoint")
	}
	q := u.Query()
	q.Set("model", dg.Model)
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	if language != "" {
		q.Set("language", language)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (dg *DeepgramEngine) Transcribe(ctx context.Context, wav []byte, language string) (string, error) {
	endpoint, err := dg.listenURL(language)
	if err != nil {
		return "", err
	}

	header := http.Header{"Authorization": {fmt.Sprintf("Token %s", dg.APIKey)}}
	conn, resp, err := dg.Dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return "", errors.Wrapf(err, "deepgram dial: %s", resp.Status)
		}
		return "", errors.Wrap(err, "deepgram dial")
	}
	defer conn.Close()

	// Unblock ReadMessage when the caller gives up.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.WriteMessage(gws.BinaryMessage, wav); err != nil {
		return "", errors.Wrap(err, "deepgram write audio")
	}
	if err := conn.WriteMessage(gws.TextMessage, closeStream); err != nil {
		return "", errors.Wrap(err, "deepgram close stream")
	}

	var parts []string
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if gws.IsCloseError(err, gws.CloseNormalClosure) {
				break
			}
			if ctx.Err() != nil {
				return "", errors.WithStack(ctx.Err())
			}
			return "", errors.Wrap(err, "deepgram read")
		}

		var msg TranscriptionMessage
		if err := sonic.Unmarshal(message, &msg); err != nil {
			log.Warnw("unparseable deepgram message", "error", err)
			continue
		}
		if msg.Type == "Metadata" {
			break
		}
		if !msg.IsFinal || len(msg.Channel.Alternatives) == 0 {
			continue
		}
		if text := strings.TrimSpace(msg.Channel.Alternatives[0].Transcript); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
