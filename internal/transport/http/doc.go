// Package http contains the chi HTTP handlers exposing the risk report,
// the strategy return log, health checks, and the Prometheus scrape
// endpoint.
package http
