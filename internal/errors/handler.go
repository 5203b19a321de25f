package errors

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/neilchentw7/alpha-beta-dashboard/internal/marketdata"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/returns"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/risk"
)

// ErrorHandler provides centralized error handling for HTTP transport.
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger: logger.With(slog.String("component", "error_handler")),
	}
}

// HandleError maps any error to its APIError and writes the response.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	apiErr := h.toAPIError(err)

	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("error_code", apiErr.ErrorCode),
		slog.Int("status", apiErr.StatusCode),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path))

	if renderErr := render.Render(w, r, apiErr); renderErr != nil {
		http.Error(w, apiErr.Message, apiErr.StatusCode)
	}
}

// toAPIError classifies domain errors into the response taxonomy. Unknown
// errors become opaque 500s so internals never leak to clients.
func (h *ErrorHandler) toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var validationErr *risk.ValidationError
	if errors.As(err, &validationErr) {
		return New(http.StatusBadRequest, "VALIDATION_FAILED", validationErr.Error())
	}

	var insufficientErr *risk.InsufficientDataError
	if errors.As(err, &insufficientErr) {
		return NewWithDetails(
			http.StatusUnprocessableEntity,
			"INSUFFICIENT_DATA",
			"Not enough aligned history to compute rolling metrics yet",
			map[string]int{"have": insufficientErr.Have, "need": insufficientErr.Need},
		)
	}

	if errors.Is(err, returns.ErrDuplicateDate) {
		return New(http.StatusConflict, "CONFLICT", err.Error())
	}

	var providerErr *marketdata.ProviderError
	if errors.As(err, &providerErr) {
		return New(http.StatusBadGateway, "PROVIDER_ERROR", "Benchmark data provider is unavailable")
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return New(http.StatusGatewayTimeout, "TIMEOUT", "The request took too long and was cancelled")
	}

	return ErrInternal
}
