package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func splitSilence(t *testing.T, length, window time.Duration) []time.Duration {
	t.Helper()
	w, err := Decode(silence(mono16k, length))
	require.NoError(t, err)

	var durations []time.Duration
	for i, seg := range Split(w, window) {
		assert.Equal(t, i, seg.Index)
		assert.Equal(t, time.Duration(i)*window, seg.Start)

		decoded, err := Decode(seg.WAV)
		require.NoError(t, err)
		assert.Equal(t, seg.Duration, decoded.Duration())
		durations = append(durations, seg.Duration)
	}
	return durations
}

func TestSplitTwentyFiveSeconds(t *testing.T) {
	got := splitSilence(t, 25*time.Second, 10*time.Second)
	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second, 5 * time.Second}, got)
}

func TestSplitTwelveSeconds(t *testing.T) {
	got := splitSilence(t, 12*time.Second, 10*time.Second)
	assert.Equal(t, []time.Duration{10 * time.Second, 2 * time.Second}, got)
}

func TestSplitExactMultiple(t *testing.T) {
	got := splitSilence(t, 20*time.Second, 10*time.Second)
	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second}, got)
}

func TestSplitShorterThanWindow(t *testing.T) {
	got := splitSilence(t, 4500*time.Millisecond, 10*time.Second)
	assert.Equal(t, []time.Duration{4500 * time.Millisecond}, got)
}

func TestSplitFractionalTail(t *testing.T) {
	// 10.5s floors to 10s, so no window starts at 10s and the half second
	// past it is never transcribed.
	got := splitSilence(t, 10500*time.Millisecond, 10*time.Second)
	assert.Equal(t, []time.Duration{10 * time.Second}, got)
}

func TestSplitYieldsNothingBelowOneSecond(t *testing.T) {
	assert.Empty(t, splitSilence(t, 0, 10*time.Second))
	assert.Empty(t, splitSilence(t, 900*time.Millisecond, 10*time.Second))
}

func TestSplitDefaultWindow(t *testing.T) {
	w, err := Decode(silence(mono16k, 15*time.Second))
	require.NoError(t, err)
	assert.Len(t, Split(w, 0), 2)
}
