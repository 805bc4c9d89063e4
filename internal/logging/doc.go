// Package logging constructs the slog loggers used across conveyor.
//
// Two output formats are supported: a human-oriented console format used by
// the CLI and during development, and line-delimited JSON for machine
// consumption. Components derive their loggers through NewComponentLogger so
// every record carries a component attribute.
package logging
