// Package config loads and validates application configuration from
// environment variables (ALPHABETA_ prefix) merged over an optional YAML
// file, with environment taking precedence.
package config
