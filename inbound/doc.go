// Package inbound handles partner-originated protocol events.
//
// Deliveries are dispatched in order per exchange id and deduplicated with
// claim/complete/fail idempotency semantics so transient handler failures
// remain retryable.
package inbound
