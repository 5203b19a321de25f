package risk

import (
	"context"
	"log/slog"
	"math"
)

// Engine computes trailing-window correlation and beta over an aligned
// series. It holds only configuration and a logger, so one instance can
// serve concurrent callers.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// NewEngine creates an engine with the given configuration. Zero-valued
// fields fall back to the defaults.
func NewEngine(cfg Config, logger *slog.Logger) (*Engine, error) {
	if cfg.Window == 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.AlertThreshold == 0 {
		cfg.AlertThreshold = DefaultAlertThreshold
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Compute produces one metric row per aligned observation from the
// window-th observation onward, plus the latest snapshot. Rows before the
// window fills are not emitted at all.
//
// Fewer aligned observations than the window returns a
// *InsufficientDataError; an empty join reports Have:0 so callers can
// message "no overlapping history" separately from "not enough yet".
func (e *Engine) Compute(ctx context.Context, aligned AlignedSeries) ([]MetricRow, Snapshot, error) {
	window := e.cfg.Window
	if len(aligned) < window {
		return nil, Snapshot{}, &InsufficientDataError{Have: len(aligned), Need: window}
	}

	rows := make([]MetricRow, 0, len(aligned)-window+1)
	for i := window - 1; i < len(aligned); i++ {
		sub := aligned[i-window+1 : i+1]
		corr, beta := windowStats(sub)
		rows = append(rows, MetricRow{
			Date:        aligned[i].Date,
			Correlation: corr,
			Beta:        beta,
		})
	}

	snap := latestSnapshot(rows)
	e.logger.DebugContext(ctx, "rolling metrics computed",
		slog.Int("window", window),
		slog.Int("aligned", len(aligned)),
		slog.Int("rows", len(rows)),
		slog.Time("latest", snap.Date))
	return rows, snap, nil
}

// Alert reports whether the snapshot breaches the alert threshold. The
// comparison is on absolute values: a strongly negative correlation or
// beta is still market-coupled behavior, not alpha. Undefined (NaN)
// metrics never alert.
func (e *Engine) Alert(snap Snapshot) bool {
	return exceeds(snap.Correlation, e.cfg.AlertThreshold) ||
		exceeds(snap.Beta, e.cfg.AlertThreshold)
}

func exceeds(v, threshold float64) bool {
	return !math.IsNaN(v) && math.Abs(v) > threshold
}

// windowStats computes the Pearson correlation and the regression slope
// (sample covariance over sample benchmark variance) for one trailing
// window. Flat sub-series make the statistic undefined and yield NaN.
func windowStats(sub AlignedSeries) (corr, beta float64) {
	n := float64(len(sub))

	var meanS, meanB float64
	for _, p := range sub {
		meanS += p.Strategy
		meanB += p.Benchmark
	}
	meanS /= n
	meanB /= n

	var cov, varS, varB float64
	for _, p := range sub {
		ds := p.Strategy - meanS
		db := p.Benchmark - meanB
		cov += ds * db
		varS += ds * ds
		varB += db * db
	}
	// The n-1 denominator cancels in both ratios, so the raw sums are
	// used directly; the sample convention still holds for each term.

	if varB == 0 {
		beta = math.NaN()
	} else {
		beta = cov / varB
	}

	if varS == 0 || varB == 0 {
		corr = math.NaN()
	} else {
		corr = cov / math.Sqrt(varS*varB)
		// Clamp float drift so correlation stays within [-1, 1].
		if corr > 1 {
			corr = 1
		} else if corr < -1 {
			corr = -1
		}
	}
	return corr, beta
}

// latestSnapshot derives the current values and day-over-day deltas from
// the last two rows. A single row yields zero deltas with HasPrior false.
func latestSnapshot(rows []MetricRow) Snapshot {
	last := rows[len(rows)-1]
	snap := Snapshot{
		Date:        last.Date,
		Correlation: last.Correlation,
		Beta:        last.Beta,
	}
	if len(rows) > 1 {
		prev := rows[len(rows)-2]
		snap.CorrelationDelta = last.Correlation - prev.Correlation
		snap.BetaDelta = last.Beta - prev.Beta
		snap.HasPrior = true
	}
	return snap
}
