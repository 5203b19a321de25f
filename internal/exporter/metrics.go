package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"

	"github.com/neilchentw7/alpha-beta-dashboard/internal/returns"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/risk"
)

// metricsHeaders is the downloadable table layout: the aligned return pair
// plus the trailing-window statistics ending on that date.
var metricsHeaders = []string{"date", "ret", "benchmark_ret", "corr", "beta"}

// MetricsExporter serializes rolling risk metrics.
type MetricsExporter struct {
	csvWriter *CSVWriter
}

// NewMetricsExporter creates a metrics exporter.
func NewMetricsExporter(logger *slog.Logger) *MetricsExporter {
	return &MetricsExporter{csvWriter: NewCSVWriter(logger)}
}

// ExportFile writes the metrics table to a file.
func (e *MetricsExporter) ExportFile(path string, aligned risk.AlignedSeries, rows []risk.MetricRow) error {
	records, err := metricsRecords(aligned, rows)
	if err != nil {
		return err
	}
	return e.csvWriter.WriteFile(path, WriteOptions{
		Headers: metricsHeaders,
		Records: records,
	})
}

// ExportTo streams the metrics table, e.g. into an HTTP response.
func (e *MetricsExporter) ExportTo(dst io.Writer, aligned risk.AlignedSeries, rows []risk.MetricRow) error {
	records, err := metricsRecords(aligned, rows)
	if err != nil {
		return err
	}
	return e.csvWriter.Write(dst, WriteOptions{
		Headers: metricsHeaders,
		Records: records,
	})
}

// metricsRecords joins each metric row with the aligned observation it
// ends on. Row i ends at aligned[len(aligned)-len(rows)+i].
func metricsRecords(aligned risk.AlignedSeries, rows []risk.MetricRow) ([][]string, error) {
	offset := len(aligned) - len(rows)
	if offset < 0 {
		return nil, fmt.Errorf("metric rows (%d) exceed aligned observations (%d)", len(rows), len(aligned))
	}

	records := make([][]string, 0, len(rows))
	for i, row := range rows {
		point := aligned[offset+i]
		if !point.Date.Equal(row.Date) {
			return nil, fmt.Errorf("metric row %d date %s does not match aligned date %s",
				i, row.Date.Format(returns.DateFormat), point.Date.Format(returns.DateFormat))
		}
		records = append(records, []string{
			row.Date.Format(returns.DateFormat),
			formatFloat(point.Strategy),
			formatFloat(point.Benchmark),
			formatMetric(row.Correlation),
			formatMetric(row.Beta),
		})
	}
	return records, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatMetric leaves undefined statistics as empty cells.
func formatMetric(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
