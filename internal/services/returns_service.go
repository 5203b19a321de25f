package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neilchentw7/alpha-beta-dashboard/internal/returns"
)

// ReturnsService manages the strategy return log on behalf of the
// transport layer.
type ReturnsService struct {
	store  ReturnStore
	logger *slog.Logger
}

// NewReturnsService creates a returns service over the given store.
func NewReturnsService(store ReturnStore, logger *slog.Logger) *ReturnsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReturnsService{store: store, logger: logger}
}

// List returns the full strategy series, date ascending.
func (s *ReturnsService) List(ctx context.Context) (returns.Series, error) {
	return s.store.Load(ctx)
}

// Record appends one daily return to the log. The date must be new.
func (s *ReturnsService) Record(ctx context.Context, date time.Time, value float64) error {
	row := returns.DailyReturn{Date: returns.Day(date), Value: value}
	if err := s.store.Append(ctx, row); err != nil {
		return fmt.Errorf("record return: %w", err)
	}
	s.logger.InfoContext(ctx, "return recorded",
		slog.String("date", row.Date.Format(returns.DateFormat)),
		slog.Float64("value", row.Value))
	return nil
}

// Replace overwrites the entire log with the supplied series.
func (s *ReturnsService) Replace(ctx context.Context, series returns.Series) error {
	if err := series.Validate(); err != nil {
		return fmt.Errorf("replace return log: %w", err)
	}
	if err := s.store.Overwrite(ctx, series); err != nil {
		return fmt.Errorf("replace return log: %w", err)
	}
	s.logger.InfoContext(ctx, "return log replaced", slog.Int("rows", len(series)))
	return nil
}
