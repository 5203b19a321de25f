package importer

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// writeWorkbook creates an xlsx file with the given cell rows on Sheet1.
func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		for j, cell := range row {
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", ref, cell))
		}
	}

	path := filepath.Join(t.TempDir(), "pnl.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadReturns(t *testing.T) {
	t.Run("parses header and rows sorted by date", func(t *testing.T) {
		path := writeWorkbook(t, [][]interface{}{
			{"date", "ret"},
			{"2024-01-03", "0.015"},
			{"2024-01-01", "0.002"},
		})

		series, err := ReadReturns(path, "")
		require.NoError(t, err)
		require.Len(t, series, 2)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), series[0].Date)
		assert.Equal(t, 0.002, series[0].Value)
		assert.Equal(t, 0.015, series[1].Value)
	})

	t.Run("duplicate dates are rejected", func(t *testing.T) {
		path := writeWorkbook(t, [][]interface{}{
			{"2024-01-01", "0.002"},
			{"2024-01-01", "0.003"},
		})

		_, err := ReadReturns(path, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate date")
	})

	t.Run("malformed return is rejected", func(t *testing.T) {
		path := writeWorkbook(t, [][]interface{}{
			{"2024-01-01", "not-a-number"},
		})

		_, err := ReadReturns(path, "")
		require.Error(t, err)
	})

	t.Run("empty sheet is rejected", func(t *testing.T) {
		path := writeWorkbook(t, [][]interface{}{{"date", "ret"}})

		_, err := ReadReturns(path, "")
		require.Error(t, err)
	})

	t.Run("missing sheet is rejected", func(t *testing.T) {
		path := writeWorkbook(t, [][]interface{}{{"2024-01-01", "0.002"}})

		_, err := ReadReturns(path, "NoSuchSheet")
		require.Error(t, err)
	})
}
