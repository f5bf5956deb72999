package server

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/ghdir/ghdir/internal/request"
)

// statusForError 把管道错误类别映射为对外的 HTTP 状态码。
func statusForError(err error) int {
	var perr request.Error
	if !errors.As(err, &perr) {
		return fiber.StatusInternalServerError
	}

	switch perr.Kind {
	case request.KindNotFound:
		return fiber.StatusNotFound
	case request.KindBadRequest:
		return fiber.StatusBadRequest
	case request.KindUnauthorized:
		return fiber.StatusUnauthorized
	case request.KindForbidden:
		return fiber.StatusForbidden
	case request.KindTimeout:
		return fiber.StatusGatewayTimeout
	case request.KindInvalidRequest:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusBadGateway
	}
}

// errorPayload 是错误响应体。
type errorPayload struct {
	Error     string `json:"error"`
	Status    int    `json:"status"`
	Retryable bool   `json:"retryable"`
}

func renderError(c fiber.Ctx, err error) error {
	status := statusForError(err)
	payload := errorPayload{
		Error:  request.KindOf(err).String(),
		Status: status,
	}
	var perr request.Error
	if errors.As(err, &perr) {
		payload.Retryable = perr.Retryable()
	}
	return c.Status(status).JSON(payload)
}
