package stt

import "context"

//go:generate mockgen -destination=mock_engine_test.go -package=stt . Engine

// Engine transcribes one self-contained WAV segment. Implementations must not
// carry context from one call to the next.
type Engine interface {
	Transcribe(ctx context.Context, wav []byte, language string) (string, error)
}
