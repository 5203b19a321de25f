// Package services orchestrates the per-invocation pipeline: load the
// strategy return log, fetch benchmark returns for the matching span,
// align the two series, and run the rolling risk engine. Services own no
// derived state; every report is recomputed from freshly loaded inputs.
package services
