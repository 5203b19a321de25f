package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/neilchentw7/alpha-beta-dashboard/internal/exporter"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/infrastructure"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/marketdata"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/returns"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/risk"
)

// ReturnStore is the return log store collaborator.
type ReturnStore interface {
	Load(ctx context.Context) (returns.Series, error)
	Append(ctx context.Context, row returns.DailyReturn) error
	Overwrite(ctx context.Context, series returns.Series) error
}

// Report is one full computation pass over the freshly loaded inputs.
type Report struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Window      int                `json:"window"`
	Threshold   float64            `json:"threshold"`
	Rows        []risk.MetricRow   `json:"rows"`
	Snapshot    risk.Snapshot      `json:"snapshot"`
	Alert       bool               `json:"alert"`
	Aligned     risk.AlignedSeries `json:"-"`
}

// ReportOptions tune a single report; zero values use the configured
// defaults.
type ReportOptions struct {
	Window int
}

// RiskService runs the alignment and rolling computation pipeline.
type RiskService struct {
	store    ReturnStore
	provider marketdata.Provider
	cfg      risk.Config
	logger   *slog.Logger

	reportCounter metric.Int64Counter
	reportSeconds metric.Float64Histogram
}

// NewRiskService wires the pipeline's collaborators together.
func NewRiskService(store ReturnStore, provider marketdata.Provider, cfg risk.Config, logger *slog.Logger) (*RiskService, error) {
	if cfg.Window == 0 {
		cfg.Window = risk.DefaultWindow
	}
	if cfg.AlertThreshold == 0 {
		cfg.AlertThreshold = risk.DefaultAlertThreshold
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("risk service config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	meter := otel.Meter(infrastructure.MeterName)
	reportCounter, err := meter.Int64Counter("risk_reports_total",
		metric.WithDescription("Number of rolling risk reports computed"))
	if err != nil {
		return nil, fmt.Errorf("create report counter: %w", err)
	}
	reportSeconds, err := meter.Float64Histogram("risk_report_duration_seconds",
		metric.WithDescription("Time spent computing a rolling risk report"))
	if err != nil {
		return nil, fmt.Errorf("create report histogram: %w", err)
	}

	return &RiskService{
		store:         store,
		provider:      provider,
		cfg:           cfg,
		logger:        logger,
		reportCounter: reportCounter,
		reportSeconds: reportSeconds,
	}, nil
}

// BuildReport loads the strategy log, fetches benchmark history for the
// matching span, and computes the full metrics table plus the latest
// snapshot. Nothing is cached here; every call re-derives the report from
// freshly loaded inputs.
func (s *RiskService) BuildReport(ctx context.Context, opts ReportOptions) (*Report, error) {
	start := time.Now()

	strategy, err := s.store.Load(ctx)
	if err != nil {
		s.recordReport(ctx, "load_error", start)
		return nil, fmt.Errorf("load strategy returns: %w", err)
	}
	if len(strategy) == 0 {
		s.recordReport(ctx, "no_history", start)
		return nil, ErrNoStrategyHistory
	}

	first, last, _ := strategy.Span()
	// Fetch from the first strategy date up to the day after the last,
	// end-exclusive.
	benchmark, err := s.provider.FetchDailyReturns(ctx, first, last.AddDate(0, 0, 1))
	if err != nil {
		s.recordReport(ctx, "provider_error", start)
		return nil, err
	}

	cfg := s.cfg
	if opts.Window > 0 {
		cfg.Window = opts.Window
	}
	engine, err := risk.NewEngine(cfg, s.logger)
	if err != nil {
		s.recordReport(ctx, "config_error", start)
		return nil, err
	}

	aligned, err := risk.Align(strategy, benchmark)
	if err != nil {
		s.recordReport(ctx, "validation_error", start)
		return nil, err
	}

	rows, snapshot, err := engine.Compute(ctx, aligned)
	if err != nil {
		s.recordReport(ctx, "insufficient_data", start)
		return nil, err
	}

	report := &Report{
		GeneratedAt: time.Now().UTC(),
		Window:      cfg.Window,
		Threshold:   cfg.AlertThreshold,
		Rows:        rows,
		Snapshot:    snapshot,
		Alert:       engine.Alert(snapshot),
		Aligned:     aligned,
	}

	s.recordReport(ctx, "ok", start)
	s.logger.InfoContext(ctx, "risk report computed",
		slog.Int("window", cfg.Window),
		slog.Int("aligned", len(aligned)),
		slog.Int("rows", len(rows)),
		slog.Bool("alert", report.Alert))
	return report, nil
}

// WriteReportCSV builds a report and streams it as the downloadable
// metrics table.
func (s *RiskService) WriteReportCSV(ctx context.Context, opts ReportOptions, dst io.Writer) error {
	report, err := s.BuildReport(ctx, opts)
	if err != nil {
		return err
	}
	metricsExporter := exporter.NewMetricsExporter(s.logger)
	return metricsExporter.ExportTo(dst, report.Aligned, report.Rows)
}

func (s *RiskService) recordReport(ctx context.Context, outcome string, start time.Time) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	s.reportCounter.Add(ctx, 1, attrs)
	s.reportSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
}
