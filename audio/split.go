package audio

import (
	"time"

	"github.com/mrsingh-rishi/voice-assistant/model"
)

// DefaultSegmentDuration is the window used by Split when none is given.
const DefaultSegmentDuration = 10 * time.Second

// Split cuts w into consecutive, non-overlapping windows. Windows start at
// 0, window, 2*window, ... while the start lies before the audio length
// truncated to whole seconds; the last window is cut short at the end of the
// data. Audio shorter than one second therefore yields no segments.
func Split(w *WAV, window time.Duration) []model.AudioSegment {
	if window <= 0 {
		window = DefaultSegmentDuration
	}

	whole := w.Duration().Truncate(time.Second)
	frames := w.Frames()
	align := w.Format.BlockAlign()

	var segments []model.AudioSegment
	for i, start := 0, time.Duration(0); start < whole; i, start = i+1, start+window {
		first := durationToFrames(start, w.Format.SampleRate)
		last := min(durationToFrames(start+window, w.Format.SampleRate), frames)
		if first >= last {
			break
		}
		segments = append(segments, model.AudioSegment{
			Index:    i,
			Start:    start,
			Duration: framesToDuration(last-first, w.Format.SampleRate),
			WAV:      Encode(w.Format, w.Data[first*align:last*align]),
		})
	}
	return segments
}

func durationToFrames(d time.Duration, sampleRate uint32) int {
	return int(int64(d) * int64(sampleRate) / int64(time.Second))
}
