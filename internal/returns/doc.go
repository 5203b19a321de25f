// Package returns defines the daily return series domain types and the
// CSV-backed return log store used to persist a strategy's P&L history.
//
// A series is an ordered-by-date sequence of (date, fractional return)
// pairs with unique dates. Missing dates are non-trading days or data
// gaps and are simply absent, never zero-filled.
package returns
