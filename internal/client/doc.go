// Package client implements the HTTP consumer of the pipeline API:
// configuration CRUD, execution control, payload persistence, and the SSE
// subscription that delivers step updates for a running execution.
package client
