// Package risk implements the alpha-to-beta drift monitor core: aligning a
// strategy's daily return series with a benchmark's by date, and computing
// trailing-window Pearson correlation and regression beta over the aligned
// series.
//
// The package is purely computational. It performs no I/O, holds no state
// across calls, and is safe to use concurrently with independent inputs.
// Loading the strategy log and fetching benchmark returns belong to the
// returns and marketdata packages respectively.
package risk
