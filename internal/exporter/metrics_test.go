package exporter

import (
	"bytes"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neilchentw7/alpha-beta-dashboard/internal/risk"
)

func metricsFixture() (risk.AlignedSeries, []risk.MetricRow) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	aligned := risk.AlignedSeries{
		{Date: base, Strategy: 0.01, Benchmark: 0.005},
		{Date: base.AddDate(0, 0, 1), Strategy: -0.02, Benchmark: -0.008},
		{Date: base.AddDate(0, 0, 2), Strategy: 0.015, Benchmark: 0.004},
	}
	rows := []risk.MetricRow{
		{Date: base.AddDate(0, 0, 1), Correlation: 0.5, Beta: 0.25},
		{Date: base.AddDate(0, 0, 2), Correlation: math.NaN(), Beta: math.NaN()},
	}
	return aligned, rows
}

func TestMetricsExporterExportTo(t *testing.T) {
	aligned, rows := metricsFixture()
	exporter := NewMetricsExporter(nil)

	var buf bytes.Buffer
	require.NoError(t, exporter.ExportTo(&buf, aligned, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"date", "ret", "benchmark_ret", "corr", "beta"}, records[0])
	assert.Equal(t, []string{"2024-01-02", "-0.02", "-0.008", "0.500000", "0.250000"}, records[1])

	assert.Equal(t, "2024-01-03", records[2][0])
	assert.Empty(t, records[2][3], "NaN correlation must be an empty cell")
	assert.Empty(t, records[2][4], "NaN beta must be an empty cell")
}

func TestMetricsExporterExportFile(t *testing.T) {
	aligned, rows := metricsFixture()
	exporter := NewMetricsExporter(nil)

	path := filepath.Join(t.TempDir(), "reports", "metrics_with_beta_corr.csv")
	require.NoError(t, exporter.ExportFile(path, aligned, rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "date,ret,benchmark_ret,corr,beta")
}

func TestMetricsRecordsMismatch(t *testing.T) {
	aligned, rows := metricsFixture()

	t.Run("more rows than aligned observations", func(t *testing.T) {
		_, err := metricsRecords(aligned[:1], rows)
		require.Error(t, err)
	})

	t.Run("date mismatch between rows and alignment", func(t *testing.T) {
		shifted := make([]risk.MetricRow, len(rows))
		copy(shifted, rows)
		shifted[0].Date = shifted[0].Date.AddDate(0, 0, 7)
		_, err := metricsRecords(aligned, shifted)
		require.Error(t, err)
	})
}
