// Package store implements the pipeline state store: the single source of
// truth for cached configurations, the active execution, per-step runtime
// data, UI selection state, connection state, and optimistic-update
// bookkeeping.
//
// Mutations come from two directions: user-triggered actions (which may
// involve a round-trip to the pipeline API) and server-push step updates
// delivered over the SSE subscription. Every mutation is serialized by the
// store's mutex; asynchronous actions never hold the lock across a network
// call. Responses carrying an execution or configuration identity that is no
// longer current are discarded, so a torn-down execution cannot be
// resurrected by a late-arriving response.
//
// Each step record carries a monotonic version. Local patches may state the
// version they were derived from; patches derived from a stale version are
// rejected with ErrStaleWrite instead of silently overwriting newer state.
package store
