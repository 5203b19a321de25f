package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "github.com/neilchentw7/alpha-beta-dashboard/internal/errors"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/returns"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/services"
)

// ReturnsHandler handles the strategy return log endpoints.
type ReturnsHandler struct {
	service      *services.ReturnsService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validator    *validator.Validate
}

// NewReturnsHandler creates a new returns handler.
func NewReturnsHandler(service *services.ReturnsService, logger *slog.Logger) *ReturnsHandler {
	return &ReturnsHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "returns")),
		errorHandler: apierrors.NewErrorHandler(logger),
		validator:    validator.New(),
	}
}

// RegisterRoutes registers the return log routes.
func (h *ReturnsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/returns", func(r chi.Router) {
		r.Get("/", h.ListReturns)
		r.Post("/", h.AppendReturn)
		r.Put("/", h.ReplaceReturns)
	})
}

// appendRequest is the POST body. Value is a pointer so an omitted field
// is distinguishable from an explicit zero return.
type appendRequest struct {
	Date  string   `json:"date" validate:"required,datetime=2006-01-02"`
	Value *float64 `json:"ret" validate:"required"`
}

type replaceRequest struct {
	Returns []appendRequest `json:"returns" validate:"required,min=1,dive"`
}

type returnDTO struct {
	Date  string  `json:"date"`
	Value float64 `json:"ret"`
}

// ListReturns handles GET /api/returns.
func (h *ReturnsHandler) ListReturns(w http.ResponseWriter, r *http.Request) {
	series, err := h.service.List(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	out := make([]returnDTO, len(series))
	for i, dr := range series {
		out[i] = returnDTO{Date: dr.Date.Format(returns.DateFormat), Value: dr.Value}
	}
	render.JSON(w, r, map[string]interface{}{
		"count":   len(out),
		"returns": out,
	})
}

// AppendReturn handles POST /api/returns.
func (h *ReturnsHandler) AppendReturn(w http.ResponseWriter, r *http.Request) {
	var req appendRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.New(http.StatusBadRequest,
			"INVALID_REQUEST", "Request body must be valid JSON"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, validationError(err))
		return
	}

	date, err := time.Parse(returns.DateFormat, req.Date)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.New(http.StatusBadRequest,
			"INVALID_REQUEST", "date must be formatted as YYYY-MM-DD"))
		return
	}

	if err := h.service.Record(r.Context(), date, *req.Value); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "return recorded",
		slog.String("date", req.Date))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]string{"status": "recorded", "date": req.Date})
}

// ReplaceReturns handles PUT /api/returns.
func (h *ReturnsHandler) ReplaceReturns(w http.ResponseWriter, r *http.Request) {
	var req replaceRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.New(http.StatusBadRequest,
			"INVALID_REQUEST", "Request body must be valid JSON"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, validationError(err))
		return
	}

	series := make(returns.Series, len(req.Returns))
	for i, entry := range req.Returns {
		date, err := time.Parse(returns.DateFormat, entry.Date)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.New(http.StatusBadRequest,
				"INVALID_REQUEST", "date must be formatted as YYYY-MM-DD"))
			return
		}
		series[i] = returns.DailyReturn{Date: returns.Day(date), Value: *entry.Value}
	}
	if err := series.Validate(); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.New(http.StatusBadRequest,
			"VALIDATION_FAILED", err.Error()))
		return
	}

	if err := h.service.Replace(r.Context(), series); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "return log replaced",
		slog.Int("count", len(series)))
	render.JSON(w, r, map[string]interface{}{"status": "replaced", "count": len(series)})
}

// validationError flattens validator errors into field errors.
func validationError(err error) *apierrors.APIError {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apierrors.New(http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
	}
	fields := make([]apierrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apierrors.FieldError{
			Field:   fe.Field(),
			Message: "failed validation rule " + fe.Tag(),
		})
	}
	return apierrors.NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED",
		"Request validation failed", fields)
}
