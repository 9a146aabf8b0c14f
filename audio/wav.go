package audio

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"github.com/mrsingh-rishi/voice-assistant/model"
	"github.com/pkg/errors"
	"github.com/zaf/g711"
)

// WAVE format tags.
const (
	FormatPCM        uint16 = 1
	FormatFloat      uint16 = 3
	FormatALaw       uint16 = 6
	FormatMuLaw      uint16 = 7
	FormatExtensible uint16 = 0xFFFE
)

const opDecode = "decode wav"

// Format describes the sample layout of a WAV data chunk.
type Format struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// BlockAlign is the size in bytes of one frame (one sample per channel).
func (f Format) BlockAlign() int {
	return int(f.Channels) * int(f.BitsPerSample) / 8
}

// Header is the parsed container header of a WAV file.
type Header struct {
	Format   Format
	DataSize uint32
}

// Frames returns the number of whole frames announced by the data chunk.
func (h Header) Frames() int {
	return int(h.DataSize) / h.Format.BlockAlign()
}

// Duration is frames / sample rate.
func (h Header) Duration() time.Duration {
	return framesToDuration(h.Frames(), h.Format.SampleRate)
}

// WAV is a decoded container: its format and the raw frames of its data chunk.
type WAV struct {
	Format Format
	Data   []byte
}

func (w *WAV) Frames() int {
	return len(w.Data) / w.Format.BlockAlign()
}

func (w *WAV) Duration() time.Duration {
	return framesToDuration(w.Frames(), w.Format.SampleRate)
}

func framesToDuration(frames int, sampleRate uint32) time.Duration {
	if sampleRate == 0 {
		return 0
	}
	return time.Duration(int64(frames) * int64(time.Second) / int64(sampleRate))
}

// canonicalHeader is the 44-byte header written by Encode.
type canonicalHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

// Encode wraps frames in a canonical WAV container.
func Encode(f Format, data []byte) []byte {
	header := canonicalHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + len(data)),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   f.AudioFormat,
		NumChannels:   f.Channels,
		SampleRate:    f.SampleRate,
		ByteRate:      f.SampleRate * uint32(f.BlockAlign()),
		BlockAlign:    uint16(f.BlockAlign()),
		BitsPerSample: f.BitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(len(data)),
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(data)))
	// Writes to a bytes.Buffer cannot fail.
	_ = binary.Write(buf, binary.LittleEndian, header)
	buf.Write(data)
	return buf.Bytes()
}

// maxFmtSize bounds the fmt chunk; WAVEFORMATEXTENSIBLE needs 40 bytes.
const maxFmtSize = 64

// ReadHeader parses the RIFF/WAVE header from r, stopping at the start of the
// data chunk. Chunks other than "fmt " and "data" are skipped.
func ReadHeader(r io.Reader) (Header, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Header{}, model.E(model.KindFormat, opDecode, errors.Wrap(err, "read RIFF header"))
	}
	if string(riff[0:4]) != "RIFF" {
		return Header{}, model.Ef(model.KindFormat, opDecode, "missing RIFF header")
	}
	if string(riff[8:12]) != "WAVE" {
		return Header{}, model.Ef(model.KindFormat, opDecode, "missing WAVE format")
	}

	var (
		h       Header
		haveFmt bool
	)
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return Header{}, model.E(model.KindFormat, opDecode, errors.Wrap(err, "missing data chunk"))
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			if size > maxFmtSize {
				return Header{}, model.Ef(model.KindFormat, opDecode, "fmt chunk too large: %d bytes", size)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return Header{}, model.E(model.KindFormat, opDecode, errors.Wrap(err, "read fmt chunk"))
			}
			f, err := parseFmt(body)
			if err != nil {
				return Header{}, err
			}
			h.Format = f
			haveFmt = true
			if size%2 == 1 {
				if err := skip(r, 1); err != nil {
					return Header{}, err
				}
			}
		case "data":
			if !haveFmt {
				return Header{}, model.Ef(model.KindFormat, opDecode, "data chunk before fmt chunk")
			}
			h.DataSize = size
			return h, nil
		default:
			if err := skip(r, int64(size)+int64(size%2)); err != nil {
				return Header{}, err
			}
		}
	}
}

func skip(r io.Reader, n int64) error {
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return model.E(model.KindFormat, opDecode, errors.Wrap(err, "truncated chunk"))
	}
	return nil
}

func parseFmt(body []byte) (Format, error) {
	if len(body) < 16 {
		return Format{}, model.Ef(model.KindFormat, opDecode, "fmt chunk too short: %d bytes", len(body))
	}
	f := Format{
		AudioFormat:   binary.LittleEndian.Uint16(body[0:2]),
		Channels:      binary.LittleEndian.Uint16(body[2:4]),
		SampleRate:    binary.LittleEndian.Uint32(body[4:8]),
		BitsPerSample: binary.LittleEndian.Uint16(body[14:16]),
	}
	if f.AudioFormat == FormatExtensible {
		// WAVEFORMATEXTENSIBLE carries the real tag in the first two bytes
		// of the SubFormat GUID.
		if len(body) < 26 {
			return Format{}, model.Ef(model.KindFormat, opDecode, "extensible fmt chunk too short")
		}
		f.AudioFormat = binary.LittleEndian.Uint16(body[24:26])
	}

	switch f.AudioFormat {
	case FormatPCM, FormatFloat, FormatALaw, FormatMuLaw:
	default:
		return Format{}, model.Ef(model.KindFormat, opDecode, "unsupported audio format: %d", f.AudioFormat)
	}
	if f.Channels == 0 {
		return Format{}, model.Ef(model.KindFormat, opDecode, "invalid channel count: 0")
	}
	if f.SampleRate == 0 {
		return Format{}, model.Ef(model.KindFormat, opDecode, "invalid sample rate: 0")
	}
	if f.BitsPerSample == 0 || f.BitsPerSample%8 != 0 {
		return Format{}, model.Ef(model.KindFormat, opDecode, "unsupported bit depth: %d", f.BitsPerSample)
	}
	return f, nil
}

// Decode parses a complete WAV file. A-law and µ-law data is expanded to
// 16-bit linear PCM. A data chunk that announces more bytes than are present
// is truncated to what is available.
func Decode(data []byte) (*WAV, error) {
	r := bytes.NewReader(data)
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	size := int(h.DataSize)
	if size > r.Len() {
		size = r.Len()
	}
	offset := len(data) - r.Len()
	frames := data[offset : offset+size]

	f := h.Format
	switch f.AudioFormat {
	case FormatALaw:
		frames = g711.DecodeAlaw(frames)
		f.AudioFormat, f.BitsPerSample = FormatPCM, 16
	case FormatMuLaw:
		frames = g711.DecodeUlaw(frames)
		f.AudioFormat, f.BitsPerSample = FormatPCM, 16
	}

	align := f.BlockAlign()
	frames = frames[:len(frames)-len(frames)%align]
	return &WAV{Format: f, Data: frames}, nil
}
