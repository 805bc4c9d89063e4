// Package config loads and validates conveyor's TOML configuration.
package config
