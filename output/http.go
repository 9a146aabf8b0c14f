package output

import (
	"bytes"

	"github.com/gofiber/fiber/v2"
)

const (
	HeaderSessionID = "X-Session-ID"
	AudioMIME       = "audio/mpeg"
	AudioFilename   = "output.mp3"
)

// SendAudio streams an mp3 reply as a file download and echoes the session
// id when there is one.
func SendAudio(c *fiber.Ctx, audio []byte, sessionID string) error {
	c.Set(fiber.HeaderContentType, AudioMIME)
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+AudioFilename)
	if sessionID != "" {
		c.Set(HeaderSessionID, sessionID)
	}
	return c.Status(fiber.StatusOK).SendStream(bytes.NewReader(audio), len(audio))
}
