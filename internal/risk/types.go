package risk

import (
	"fmt"
	"time"
)

const (
	// DefaultWindow is the trailing window used when none is configured,
	// in trading days.
	DefaultWindow = 60

	// DefaultAlertThreshold is the drift alert level for both correlation
	// and beta.
	DefaultAlertThreshold = 0.4
)

// Config carries the tunables of the rolling engine. Explicit configuration
// keeps the engine reusable for several strategies and benchmarks at once.
type Config struct {
	// Window is the number of trailing aligned observations each metric
	// row is computed over.
	Window int

	// AlertThreshold flags the latest row when |corr| or |beta| exceed it.
	AlertThreshold float64
}

// DefaultConfig returns the 60-day window with the 0.4 alert threshold.
func DefaultConfig() Config {
	return Config{Window: DefaultWindow, AlertThreshold: DefaultAlertThreshold}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.Window < 2 {
		return fmt.Errorf("window must be at least 2, got %d", c.Window)
	}
	if c.AlertThreshold <= 0 {
		return fmt.Errorf("alert threshold must be positive, got %g", c.AlertThreshold)
	}
	return nil
}

// AlignedPoint is one date where both the strategy and the benchmark have a
// recorded return.
type AlignedPoint struct {
	Date      time.Time `json:"date"`
	Strategy  float64   `json:"strategy"`
	Benchmark float64   `json:"benchmark"`
}

// AlignedSeries is the inner join of the two input series, strictly
// ascending by date.
type AlignedSeries []AlignedPoint

// MetricRow is the trailing-window correlation and beta ending at Date,
// inclusive. Correlation or Beta are NaN when the window statistic is
// undefined (flat sub-series); consumers must treat NaN as "no signal",
// not zero.
type MetricRow struct {
	Date        time.Time `json:"date"`
	Correlation float64   `json:"correlation"`
	Beta        float64   `json:"beta"`
}

// Snapshot is the latest metric row plus day-over-day deltas against the
// prior row. HasPrior is false when only one row exists; the deltas are
// then zero by convention.
type Snapshot struct {
	Date             time.Time `json:"date"`
	Correlation      float64   `json:"correlation"`
	Beta             float64   `json:"beta"`
	CorrelationDelta float64   `json:"correlation_delta"`
	BetaDelta        float64   `json:"beta_delta"`
	HasPrior         bool      `json:"has_prior"`
}

// ValidationError reports malformed input, such as duplicate dates in a
// return series. It indicates a corrupt log and is never silently repaired.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// InsufficientDataError reports an aligned series shorter than the window.
// This is an expected condition for young strategies; Have is zero when the
// join itself was empty.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient aligned history: have %d observations, need %d", e.Have, e.Need)
}
