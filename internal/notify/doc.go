// Package notify is the in-memory notification service: a pub/sub fan-out
// of user-facing notices with auto-dismiss timers, plus an optional ntfy
// sink that forwards selected notices to a push topic.
//
// The service is independent of pipeline domain state; the bridge package
// maps store transitions onto it.
package notify
