package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"timecapsule/internal/http/middleware"
	"timecapsule/internal/repository"
	"timecapsule/internal/service"
	"timecapsule/internal/upload"
)

// StatusClientClosedRequest is reported when the client went away before an upload finished.
const StatusClientClosedRequest = 499

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Phase   string `json:"phase,omitempty"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error:     errorEnvelope{Code: code, Message: message},
	})
}

// classify maps a service or upload error onto the HTTP status and envelope.
func classify(err error) (int, errorEnvelope) {
	var derr *upload.DeleteError
	switch {
	case errors.As(err, &derr):
		return fiber.StatusBadGateway, errorEnvelope{Code: "DELETE_FAILED", Message: "delete failed", Phase: derr.Phase}
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound, errorEnvelope{Code: "NOT_FOUND", Message: "capsule not found"}
	case errors.Is(err, service.ErrAttachmentNotFound), errors.Is(err, repository.ErrNotFound):
		return fiber.StatusNotFound, errorEnvelope{Code: "NOT_FOUND", Message: "attachment not found"}
	case errors.Is(err, service.ErrIDRequired):
		return fiber.StatusBadRequest, errorEnvelope{Code: "INVALID_ID", Message: "id is required"}
	case errors.Is(err, service.ErrTitleRequired):
		return fiber.StatusBadRequest, errorEnvelope{Code: "TITLE_REQUIRED", Message: "title is required"}
	case errors.Is(err, upload.ErrFileRequired):
		return fiber.StatusBadRequest, errorEnvelope{Code: "FILE_REQUIRED", Message: "file is required"}
	case errors.Is(err, upload.ErrInvalidLimit):
		return fiber.StatusBadRequest, errorEnvelope{Code: "INVALID_LIMIT", Message: "invalid limit"}
	case errors.Is(err, upload.ErrTransfer):
		if errors.Is(err, context.Canceled) {
			return StatusClientClosedRequest, errorEnvelope{Code: "CLIENT_CLOSED_REQUEST", Message: "upload aborted"}
		}
		return fiber.StatusBadGateway, errorEnvelope{Code: "TRANSFER_FAILED", Message: "blob transfer failed"}
	case errors.Is(err, upload.ErrReferenceFetch):
		return fiber.StatusBadGateway, errorEnvelope{Code: "REFERENCE_FETCH_FAILED", Message: "could not resolve blob reference"}
	case errors.Is(err, upload.ErrWrite):
		return fiber.StatusBadGateway, errorEnvelope{Code: "WRITE_FAILED", Message: "could not record upload"}
	default:
		return fiber.StatusInternalServerError, errorEnvelope{Code: "INTERNAL_ERROR", Message: "internal server error"}
	}
}

func writeServiceError(c *fiber.Ctx, err error) error {
	status, env := classify(err)
	return c.Status(status).JSON(errorPayload{RequestID: requestIDFromCtx(c), Error: env})
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
