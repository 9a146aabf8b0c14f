package tts

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2/log"
	"github.com/mrsingh-rishi/voice-assistant/metrics"
	"github.com/mrsingh-rishi/voice-assistant/model"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

//go:generate mockgen -destination=mock_engine_test.go -package=tts . Engine

// Engine turns text into encoded speech audio.
type Engine interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Loader prepares an Engine. It may be slow.
type Loader func(ctx context.Context) (Engine, error)

// Synthesizer defers loading its engine until the first request and shares a
// single load between concurrent first requests. A failed load is retried by
// the next request.
type Synthesizer struct {
	load    Loader
	metrics *metrics.Metrics
	group   singleflight.Group

	mu     sync.RWMutex
	engine Engine
}

func NewSynthesizer(load Loader, m *metrics.Metrics) *Synthesizer {
	return &Synthesizer{load: load, metrics: m}
}

func (s *Synthesizer) loaded() Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Engine returns the loaded engine, loading it if needed.
func (s *Synthesizer) Engine(ctx context.Context) (Engine, error) {
	if e := s.loaded(); e != nil {
		return e, nil
	}

	ch := s.group.DoChan("engine", func() (interface{}, error) {
		if e := s.loaded(); e != nil {
			return e, nil
		}
		// Shared by every waiting caller, so one caller giving up must not
		// abort the load for the rest.
		e, err := s.load(context.WithoutCancel(ctx))
		s.metrics.EngineLoaded(err)
		if err != nil {
			log.Errorw("speech engine load failed", "error", err)
			return nil, err
		}
		log.Infow("speech engine loaded")

		s.mu.Lock()
		s.engine = e
		s.mu.Unlock()
		return e, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Engine), nil
	case <-ctx.Done():
		return nil, errors.WithStack(ctx.Err())
	}
}

type synthesis struct {
	audio []byte
	err   error
}

// Synthesize renders text with the engine. The engine call runs on its own
// goroutine; Synthesize returns early if ctx ends first.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	const op = "synthesize speech"

	engine, err := s.Engine(ctx)
	if err != nil {
		return nil, model.E(model.KindSynthesis, op, errors.Wrap(err, "load engine"))
	}

	done := make(chan synthesis, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- synthesis{err: errors.Errorf("panic: %v", r)}
			}
		}()
		audio, err := engine.Synthesize(ctx, text)
		done <- synthesis{audio: audio, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, model.E(model.KindSynthesis, op, res.err)
		}
		return res.audio, nil
	case <-ctx.Done():
		return nil, model.E(model.KindSynthesis, op, ctx.Err())
	}
}
