// Package pipeline defines the domain model shared by the store, client,
// daemon, and CLI: pipeline configurations, runtime step records, condensed
// step summaries, push updates, and the execution status state machine.
package pipeline
