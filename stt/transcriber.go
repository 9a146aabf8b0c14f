package stt

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/mrsingh-rishi/voice-assistant/audio"
	"github.com/mrsingh-rishi/voice-assistant/metrics"
	"github.com/mrsingh-rishi/voice-assistant/model"
	"github.com/mrsingh-rishi/voice-assistant/workers"
	"github.com/pkg/errors"
)

// Order selects how segment transcripts are joined.
type Order int

const (
	// OrderChronological joins segments by their position in the audio.
	OrderChronological Order = iota
	// OrderCompletion joins segments in the order their transcription
	// finished, which may differ from the audio order.
	OrderCompletion
)

func (o Order) String() string {
	switch o {
	case OrderChronological:
		return "chronological"
	case OrderCompletion:
		return "completion"
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

// ParseOrder parses the names returned by Order.String.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "chronological":
		return OrderChronological, nil
	case "completion":
		return OrderCompletion, nil
	}
	return 0, errors.Errorf("unknown segment order %q", s)
}

// Config tunes a Transcriber.
type Config struct {
	SegmentDuration time.Duration // audio.DefaultSegmentDuration when zero
	Workers         int           // workers.DefaultSize when zero
	Order           Order
}

// Transcriber splits audio into fixed windows and transcribes them in
// parallel with an Engine.
type Transcriber struct {
	engine  Engine
	cfg     Config
	pool    *workers.Pool[model.SegmentResult]
	metrics *metrics.Metrics
}

func NewTranscriber(engine Engine, cfg Config, m *metrics.Metrics) *Transcriber {
	if cfg.SegmentDuration <= 0 {
		cfg.SegmentDuration = audio.DefaultSegmentDuration
	}
	return &Transcriber{
		engine:  engine,
		cfg:     cfg,
		pool:    workers.NewPool[model.SegmentResult](cfg.Workers),
		metrics: m,
	}
}

// Transcribe returns the text spoken in a WAV file. It never fails: audio
// that cannot be decoded, or that is too short to hold a segment, yields ""
// and a segment whose transcription fails contributes nothing.
func (t *Transcriber) Transcribe(ctx context.Context, data []byte, language string) string {
	w, err := audio.Decode(data)
	if err != nil {
		log.Errorw("transcription failed", "error", err)
		return ""
	}

	segments := audio.Split(w, t.cfg.SegmentDuration)
	if len(segments) == 0 {
		return ""
	}

	jobs := make([]workers.Job[model.SegmentResult], len(segments))
	for i, seg := range segments {
		jobs[i] = func(ctx context.Context) model.SegmentResult {
			return t.transcribeSegment(ctx, seg, language)
		}
	}
	results := t.pool.Run(ctx, jobs)
	if len(results) < len(segments) {
		log.Warnw("transcription cut short", "segments", len(segments), "done", len(results), "error", ctx.Err())
	}
	return Join(results, t.cfg.Order)
}

func (t *Transcriber) transcribeSegment(ctx context.Context, seg model.AudioSegment, language string) (res model.SegmentResult) {
	res = model.SegmentResult{Index: seg.Index, Start: seg.Start}
	defer func() {
		if r := recover(); r != nil {
			res.Text, res.Err = "", errors.Errorf("panic: %v", r)
		}
		if res.Err != nil {
			res.Err = model.E(model.KindTranscription, "transcribe segment", res.Err)
			log.Warnw("segment transcription failed", "segment", seg.Index, "start", seg.Start, "error", res.Err)
		}
		t.metrics.SegmentDone(res.Err)
	}()

	text, err := t.engine.Transcribe(ctx, seg.WAV, language)
	if err != nil {
		res.Err = err
		return res
	}
	res.Text = model.TranscribedText(strings.TrimSpace(text))
	return res
}

// Join concatenates the non-empty texts of results with single spaces. With
// OrderChronological results are first sorted by segment index; with
// OrderCompletion they are joined as given.
func Join(results []model.SegmentResult, order Order) string {
	if order == OrderChronological {
		results = append([]model.SegmentResult(nil), results...)
		sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	}

	parts := make([]string, 0, len(results))
	for _, r := range results {
		if r.Text != "" {
			parts = append(parts, string(r.Text))
		}
	}
	return strings.Join(parts, " ")
}
