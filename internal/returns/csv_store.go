package returns

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// csvHeader matches the two-column strategy P&L file maintained by the user.
var csvHeader = []string{"date", "ret"}

// ErrDuplicateDate is returned by Append when the date already has a row.
var ErrDuplicateDate = errors.New("already recorded")

// CSVStore is the return log store: a single CSV file of (date, return)
// rows keyed by unique date. Writes go through a temp file and rename so a
// crashed write never leaves a truncated log behind.
type CSVStore struct {
	path   string
	logger *slog.Logger
}

// NewCSVStore creates a store over the given file path. The file may not
// exist yet; Load treats that as an empty series.
func NewCSVStore(path string, logger *slog.Logger) *CSVStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVStore{path: path, logger: logger}
}

// Path returns the backing file path.
func (s *CSVStore) Path() string {
	return s.path
}

// Load reads the full return series, sorted by ascending date.
func (s *CSVStore) Load(ctx context.Context) (Series, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.InfoContext(ctx, "return log not found, starting empty",
				slog.String("path", s.path))
			return Series{}, nil
		}
		return nil, fmt.Errorf("open return log: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read return log: %w", err)
	}

	var series Series
	for i, record := range records {
		if i == 0 && isHeaderRow(record) {
			continue
		}
		row, err := parseReturnRecord(record, i+1)
		if err != nil {
			return nil, fmt.Errorf("return log %s: %w", filepath.Base(s.path), err)
		}
		series = append(series, row)
	}

	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("return log %s: %w", filepath.Base(s.path), err)
	}
	series.Sort()

	s.logger.DebugContext(ctx, "loaded return log",
		slog.String("path", s.path),
		slog.Int("rows", len(series)))
	return series, nil
}

// Append adds one row to the log. The date must not already be present.
func (s *CSVStore) Append(ctx context.Context, row DailyReturn) error {
	existing, err := s.Load(ctx)
	if err != nil {
		return err
	}

	day := Day(row.Date)
	for _, r := range existing {
		if r.Date.Equal(day) {
			return fmt.Errorf("return for %s %w", day.Format(DateFormat), ErrDuplicateDate)
		}
	}

	existing = append(existing, DailyReturn{Date: day, Value: row.Value})
	existing.Sort()
	return s.Overwrite(ctx, existing)
}

// Overwrite atomically replaces the log with the given series.
func (s *CSVStore) Overwrite(ctx context.Context, series Series) error {
	if err := series.Validate(); err != nil {
		return fmt.Errorf("overwrite return log: %w", err)
	}
	sorted := make(Series, len(series))
	copy(sorted, series)
	sorted.Sort()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create return log directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".returns-*.csv")
	if err != nil {
		return fmt.Errorf("create temp return log: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	writer := csv.NewWriter(tmp)
	if err := writer.Write(csvHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("write return log header: %w", err)
	}
	for _, r := range sorted {
		record := []string{
			r.Date.Format(DateFormat),
			strconv.FormatFloat(r.Value, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			tmp.Close()
			return fmt.Errorf("write return log row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush return log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp return log: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace return log: %w", err)
	}

	s.logger.InfoContext(ctx, "return log written",
		slog.String("path", s.path),
		slog.Int("rows", len(sorted)))
	return nil
}

// parseReturnRecord parses a single (date, return) CSV record.
func parseReturnRecord(record []string, lineNum int) (DailyReturn, error) {
	if len(record) < 2 {
		return DailyReturn{}, fmt.Errorf("line %d: expected 2 columns, got %d", lineNum, len(record))
	}

	date, err := time.Parse(DateFormat, strings.TrimSpace(record[0]))
	if err != nil {
		return DailyReturn{}, fmt.Errorf("line %d: parse date: %w", lineNum, err)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	if err != nil {
		return DailyReturn{}, fmt.Errorf("line %d: parse return: %w", lineNum, err)
	}

	return DailyReturn{Date: Day(date), Value: value}, nil
}

// isHeaderRow reports whether the first record looks like a header rather
// than data.
func isHeaderRow(record []string) bool {
	if len(record) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(record[0]))
	if strings.Contains(first, "date") {
		return true
	}
	_, err := time.Parse(DateFormat, strings.TrimSpace(record[0]))
	return err != nil
}
