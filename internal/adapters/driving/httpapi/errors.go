package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/logger"
)

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var (
		fiberErr   *fiber.Error
		backendErr *domain.GenerationBackendError
		genErr     *domain.GenerationError
		retrieval  *domain.RetrievalError
	)

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupportedType):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.StatusTooManyRequests
	case errors.As(err, &genErr):
		return fiber.StatusUnprocessableEntity
	case errors.As(err, &backendErr), errors.As(err, &retrieval):
		return fiber.StatusBadGateway
	case errors.Is(err, domain.ErrLLMUnavailable), errors.Is(err, domain.ErrEmbeddingUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler renders every handler error as {"error": message}.
func errorHandler(c fiber.Ctx, err error) error {
	status := statusFor(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		logger.Slog().Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
		msg = "internal server error"
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
