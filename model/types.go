package model

import "time"

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TranscribedText represents text produced by a transcription service.
type TranscribedText string

// AudioSegment is a fixed-duration slice of an input stream, encoded as a
// standalone WAV file.
type AudioSegment struct {
	Index    int
	Start    time.Duration
	Duration time.Duration
	WAV      []byte
}

// SegmentResult is the transcription outcome of one AudioSegment.
type SegmentResult struct {
	Index int
	Start time.Duration
	Text  TranscribedText
	Err   error
}
