// Package api defines the wire contract of the pipeline API: request and
// response envelopes plus the route paths shared by the HTTP client and the
// daemon. Domain payloads reuse the JSON shapes of package pipeline.
package api
