// Package daemon hosts the pipeline API: configuration storage, execution
// bookkeeping, and the update stream that fans executor progress out to
// connected clients. A file lock guarantees a single daemon per data
// directory.
//
// The daemon does not run pipeline steps itself. Executors report progress
// by POSTing step updates to the ingest endpoint; the daemon stamps each
// update with a sequence number and replays them to SSE subscribers.
package daemon
