package call

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/mrsingh-rishi/voice-assistant/audio"
	"github.com/mrsingh-rishi/voice-assistant/conversation"
	"github.com/mrsingh-rishi/voice-assistant/metrics"
	"github.com/mrsingh-rishi/voice-assistant/model"
)

//go:generate mockgen -destination=mock_call_test.go -package=call . Transcriber,Responder,Synthesizer

type Transcriber interface {
	Transcribe(ctx context.Context, data []byte, language string) string
}

type Responder interface {
	Respond(ctx context.Context, history []model.Message) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Request is one spoken turn from a caller.
type Request struct {
	SessionID string
	Audio     []byte
	Language  string // Config.Language when empty
}

// Result is the outcome of a turn.
type Result struct {
	SessionID  string
	Transcript string
	Reply      string
	Audio      []byte // mp3
	Duration   time.Duration
	Timings    map[string]time.Duration
}

type Config struct {
	TempDir  string
	Language string
	Timeout  time.Duration // whole request; no limit when zero
}

// Pipeline runs one conversational turn: transcribe the upload, extend the
// session history, generate a reply and synthesize it.
type Pipeline struct {
	transcriber Transcriber
	responder   Responder
	synthesizer Synthesizer
	sessions    *conversation.Store
	cfg         Config
	metrics     *metrics.Metrics
}

func NewPipeline(t Transcriber, r Responder, s Synthesizer, sessions *conversation.Store, cfg Config, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		transcriber: t,
		responder:   r,
		synthesizer: s,
		sessions:    sessions,
		cfg:         cfg,
		metrics:     m,
	}
}

// Sessions returns the conversation store the pipeline writes to.
func (p *Pipeline) Sessions() *conversation.Store {
	return p.sessions
}

type stageClock struct {
	metrics *metrics.Metrics
	timings map[string]time.Duration
	last    time.Time
}

func (sc *stageClock) lap(stage string) {
	now := time.Now()
	d := now.Sub(sc.last)
	sc.last = now
	sc.timings[stage] = d
	sc.metrics.ObserveStage(stage, d)
}

func (p *Pipeline) Process(ctx context.Context, req Request) (res *Result, err error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	finish := p.metrics.RequestStarted()
	clock := &stageClock{metrics: p.metrics, timings: map[string]time.Duration{}, last: start}
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(model.KindOf(err))
		}
		finish(outcome)
		p.metrics.ObserveStage(metrics.StageTotal, time.Since(start))
	}()

	path, err := audio.Stage(p.cfg.TempDir, req.Audio)
	if err != nil {
		return nil, model.E(model.KindInternal, "stage upload", err)
	}
	defer func() {
		if err := audio.Remove(path); err != nil {
			log.Warnw("could not remove staged upload", "path", path, "error", err)
		}
	}()

	// Containers we cannot parse still go to the transcriber, which
	// degrades them to an empty transcript.
	length, err := audio.Duration(path)
	if err != nil {
		log.Warnw("unreadable upload container", "session", req.SessionID, "error", err)
		length = 0
	}
	data, err := audio.ReadAll(path)
	if err != nil {
		return nil, model.E(model.KindInternal, "read upload", err)
	}
	clock.lap(metrics.StageRead)

	language := req.Language
	if language == "" {
		language = p.cfg.Language
	}
	transcript := p.transcriber.Transcribe(ctx, data, language)
	clock.lap(metrics.StageTranscription)

	history := p.sessions.Get(req.SessionID)
	history.AddMessage(model.RoleUser, transcript)
	reply, err := p.responder.Respond(ctx, history.Messages())
	if err != nil {
		return nil, err
	}
	history.AddMessage(model.RoleAssistant, reply)
	clock.lap(metrics.StageResponse)

	speech, err := p.synthesizer.Synthesize(ctx, reply)
	if err != nil {
		return nil, err
	}
	clock.lap(metrics.StageSynthesis)

	log.Infow("turn complete",
		"session", req.SessionID,
		"audio", length,
		"read", clock.timings[metrics.StageRead],
		"transcription", clock.timings[metrics.StageTranscription],
		"response", clock.timings[metrics.StageResponse],
		"synthesis", clock.timings[metrics.StageSynthesis],
		"total", time.Since(start),
	)

	return &Result{
		SessionID:  req.SessionID,
		Transcript: transcript,
		Reply:      reply,
		Audio:      speech,
		Duration:   length,
		Timings:    clock.timings,
	}, nil
}
