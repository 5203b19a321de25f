package http

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "github.com/neilchentw7/alpha-beta-dashboard/internal/errors"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/returns"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/risk"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/services"
)

// RiskHandler handles rolling risk report requests.
type RiskHandler struct {
	service      *services.RiskService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewRiskHandler creates a new risk handler.
func NewRiskHandler(service *services.RiskService, logger *slog.Logger) *RiskHandler {
	return &RiskHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "risk")),
		errorHandler: apierrors.NewErrorHandler(logger),
	}
}

// RegisterRoutes registers the risk routes.
func (h *RiskHandler) RegisterRoutes(r chi.Router) {
	r.Route("/risk", func(r chi.Router) {
		r.Get("/report", h.GetReport)
		r.Get("/report/csv", h.DownloadReportCSV)
		r.Get("/snapshot", h.GetSnapshot)
	})
}

// reportResponse is the JSON shape of a computed report. Undefined metric
// values are nulls, which plain float64 fields cannot express.
type reportResponse struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Window      int            `json:"window"`
	Threshold   float64        `json:"threshold"`
	Rows        []metricRowDTO `json:"rows"`
	Snapshot    snapshotDTO    `json:"snapshot"`
	Alert       bool           `json:"alert"`
}

type metricRowDTO struct {
	Date        string   `json:"date"`
	Correlation *float64 `json:"correlation"`
	Beta        *float64 `json:"beta"`
}

type snapshotDTO struct {
	Date             string   `json:"date"`
	Correlation      *float64 `json:"correlation"`
	Beta             *float64 `json:"beta"`
	CorrelationDelta float64  `json:"correlation_delta"`
	BetaDelta        float64  `json:"beta_delta"`
	HasPrior         bool     `json:"has_prior"`
}

// GetReport handles GET /api/risk/report.
func (h *RiskHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	opts, err := parseReportOptions(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	report, err := h.service.BuildReport(r.Context(), opts)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapNoHistory(err))
		return
	}

	render.JSON(w, r, toReportResponse(report))
}

// GetSnapshot handles GET /api/risk/snapshot.
func (h *RiskHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	opts, err := parseReportOptions(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	report, err := h.service.BuildReport(r.Context(), opts)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapNoHistory(err))
		return
	}

	response := toReportResponse(report)
	render.JSON(w, r, map[string]interface{}{
		"snapshot": response.Snapshot,
		"alert":    response.Alert,
		"window":   response.Window,
	})
}

// DownloadReportCSV handles GET /api/risk/report/csv.
func (h *RiskHandler) DownloadReportCSV(w http.ResponseWriter, r *http.Request) {
	opts, err := parseReportOptions(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	// Buffer the table so a failed computation still gets a proper error
	// response instead of a truncated download.
	var buf bytes.Buffer
	if err := h.service.WriteReportCSV(r.Context(), opts, &buf); err != nil {
		h.errorHandler.HandleError(w, r, mapNoHistory(err))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="metrics_with_beta_corr.csv"`)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.ErrorContext(r.Context(), "csv download interrupted",
			slog.String("error", err.Error()))
	}
}

func parseReportOptions(r *http.Request) (services.ReportOptions, error) {
	var opts services.ReportOptions
	if raw := r.URL.Query().Get("window"); raw != "" {
		window, err := strconv.Atoi(raw)
		if err != nil || window < 2 {
			return opts, apierrors.New(http.StatusBadRequest, "INVALID_PARAMETER",
				"window must be an integer of at least 2")
		}
		opts.Window = window
	}
	return opts, nil
}

// mapNoHistory converts the service's no-history sentinel into a friendly
// API error before generic classification.
func mapNoHistory(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, services.ErrNoStrategyHistory) {
		return apierrors.New(http.StatusUnprocessableEntity, "NO_HISTORY",
			"No strategy returns recorded yet; upload or append returns first")
	}
	return err
}

func toReportResponse(report *services.Report) reportResponse {
	rows := make([]metricRowDTO, len(report.Rows))
	for i, row := range report.Rows {
		rows[i] = metricRowDTO{
			Date:        row.Date.Format(returns.DateFormat),
			Correlation: nullableFloat(row.Correlation),
			Beta:        nullableFloat(row.Beta),
		}
	}
	return reportResponse{
		GeneratedAt: report.GeneratedAt,
		Window:      report.Window,
		Threshold:   report.Threshold,
		Rows:        rows,
		Snapshot:    toSnapshotDTO(report.Snapshot),
		Alert:       report.Alert,
	}
}

func toSnapshotDTO(snap risk.Snapshot) snapshotDTO {
	return snapshotDTO{
		Date:             snap.Date.Format(returns.DateFormat),
		Correlation:      nullableFloat(snap.Correlation),
		Beta:             nullableFloat(snap.Beta),
		CorrelationDelta: snap.CorrelationDelta,
		BetaDelta:        snap.BetaDelta,
		HasPrior:         snap.HasPrior,
	}
}

// nullableFloat maps NaN to a JSON null.
func nullableFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
