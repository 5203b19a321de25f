// Package app provides application initialization and lifecycle management
// for the alpha-beta dashboard server. It wires configuration, logging,
// telemetry, the return log store, the benchmark provider, and the HTTP
// layer together at startup, and handles graceful shutdown.
//
// # Initialization Flow
//
//	1. Load configuration from the YAML file and environment
//	2. Initialize logging and the metrics pipeline
//	3. Create the return log store and the cached benchmark provider
//	4. Initialize services with their dependencies
//	5. Set up the chi router, middleware, and handlers
//	6. Configure and start the HTTP server
//
// # Graceful Shutdown
//
// Run handles SIGINT and SIGTERM so active requests complete, the metrics
// pipeline flushes, and the log file closes before the process exits.
package app
