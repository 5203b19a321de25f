package services

import "errors"

// ErrNoStrategyHistory indicates the return log holds no rows at all, so
// there is nothing to monitor yet. Distinct from an aligned series that is
// merely shorter than the window.
var ErrNoStrategyHistory = errors.New("no strategy return history recorded yet")
