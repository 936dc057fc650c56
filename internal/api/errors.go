package api

import (
	"errors"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"storefront-service/internal/entity"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "api").Logger()

func statusOf(err error) int {
	switch {
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrEmptyCart),
		errors.Is(err, entity.ErrInsufficientStock),
		errors.Is(err, entity.ErrInvalidState),
		errors.Is(err, entity.ErrPaymentNotSucceeded),
		errors.Is(err, entity.ErrInvalidInput),
		errors.Is(err, entity.ErrInactiveUser):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, entity.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError answers {"error": message}. Unclassified failures are logged
// and hidden behind a generic message.
func respondError(c echo.Context, err error) error {
	code := statusOf(err)
	if code == http.StatusInternalServerError {
		logger.Error().Err(err).Msgf("%s %s failed", c.Request().Method, c.Path())
		return c.JSON(code, map[string]string{"error": "internal server error"})
	}
	return c.JSON(code, map[string]string{"error": err.Error()})
}

func invalidPayload(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
}
