package output

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/mrsingh-rishi/voice-assistant/model"
	"github.com/pkg/errors"
)

type ErrorDetail struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorBody is the JSON payload of every failed request.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// Classify maps an error to its HTTP status and the kind reported to the
// client.
func Classify(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "timeout"
	case errors.As(err, &fe):
		if fe.Code >= fiber.StatusInternalServerError {
			return fe.Code, string(model.KindInternal)
		}
		return fe.Code, strings.ReplaceAll(strings.ToLower(utils.StatusMessage(fe.Code)), " ", "_")
	}

	switch kind := model.KindOf(err); kind {
	case model.KindFormat:
		return fiber.StatusUnsupportedMediaType, string(kind)
	case model.KindUpstream, model.KindSynthesis:
		return fiber.StatusBadGateway, string(kind)
	default:
		return fiber.StatusInternalServerError, string(model.KindInternal)
	}
}

// NewErrorBody builds the payload for err. Internal failures are reported
// without detail.
func NewErrorBody(err error, requestID string) (int, ErrorBody) {
	status, kind := Classify(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		message = utils.StatusMessage(status)
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		message = fe.Message
	}
	return status, ErrorBody{Error: ErrorDetail{Kind: kind, Message: message, RequestID: requestID}}
}
