// Command alphabeta-report computes the rolling correlation/beta table
// offline and writes it to a CSV report. It can also import a strategy
// P&L workbook into the return log first.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/neilchentw7/alpha-beta-dashboard/internal/config"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/exporter"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/importer"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/infrastructure"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/marketdata"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/returns"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/risk"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/services"
)

func main() {
	outputDir := flag.String("out", "", "output directory for the metrics report (defaults to the configured reports dir)")
	window := flag.Int("window", 0, "trailing window in days (defaults to the configured window)")
	threshold := flag.Float64("threshold", 0, "drift alert threshold (defaults to the configured threshold)")
	importPath := flag.String("import", "", "xlsx workbook to import into the return log before computing")
	sheet := flag.String("sheet", "", "sheet name inside the workbook (defaults to the first sheet)")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout for the run")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store := returns.NewCSVStore(cfg.ReturnsPath(), logger)

	if *importPath != "" {
		series, err := importer.ReadReturns(*importPath, *sheet)
		if err != nil {
			logger.Error("workbook import failed", "path", *importPath, "error", err)
			os.Exit(1)
		}
		if err := store.Overwrite(ctx, series); err != nil {
			logger.Error("failed to write return log", "error", err)
			os.Exit(1)
		}
		logger.Info("return log imported",
			"path", *importPath,
			"rows", len(series),
			"log", cfg.ReturnsPath())
	}

	provider := marketdata.NewCachedProvider(
		marketdata.NewHTTPProvider(marketdata.HTTPProviderConfig{
			BaseURL: cfg.Provider.BaseURL,
			Symbol:  cfg.Provider.Symbol,
			Timeout: cfg.Provider.Timeout,
			RPS:     cfg.Provider.RPS,
			Burst:   cfg.Provider.Burst,
		}, logger),
		cfg.Provider.CacheTTL,
	)

	alertThreshold := cfg.Risk.AlertThreshold
	if *threshold > 0 {
		alertThreshold = *threshold
	}

	riskService, err := services.NewRiskService(store, provider, risk.Config{
		Window:         cfg.Risk.Window,
		AlertThreshold: alertThreshold,
	}, logger)
	if err != nil {
		logger.Error("failed to create risk service", "error", err)
		os.Exit(1)
	}

	report, err := riskService.BuildReport(ctx, services.ReportOptions{Window: *window})
	if err != nil {
		logger.Error("report computation failed", "error", err)
		os.Exit(1)
	}

	dir := *outputDir
	if dir == "" {
		dir = cfg.ReportsPath()
	}
	outPath := filepath.Join(dir, "metrics_with_beta_corr.csv")

	metricsExporter := exporter.NewMetricsExporter(logger)
	if err := metricsExporter.ExportFile(outPath, report.Aligned, report.Rows); err != nil {
		logger.Error("failed to write report", "path", outPath, "error", err)
		os.Exit(1)
	}

	logger.Info("report written",
		"path", outPath,
		"rows", len(report.Rows),
		"window", report.Window)

	printSnapshot(report)
	if report.Alert {
		// Nonzero exit lets cron wrappers page on drift.
		os.Exit(2)
	}
}

func printSnapshot(report *services.Report) {
	snap := report.Snapshot
	fmt.Printf("latest %s: corr=%s beta=%s", snap.Date.Format(returns.DateFormat),
		formatMetric(snap.Correlation), formatMetric(snap.Beta))
	if snap.HasPrior {
		fmt.Printf(" (corr %+.4f, beta %+.4f vs prior day)", snap.CorrelationDelta, snap.BetaDelta)
	}
	fmt.Println()

	if report.Alert {
		fmt.Printf("ALERT: exposure drift beyond %.2f\n", report.Threshold)
	} else {
		fmt.Println("no drift alert")
	}
}

func formatMetric(v float64) string {
	if math.IsNaN(v) {
		return "undefined"
	}
	return fmt.Sprintf("%.4f", v)
}
