package common

// RequestIDHeaderName carries the per-request correlation id on both the
// inbound request and the response.
const RequestIDHeaderName = "X-Request-ID"

// CacheHeaderName reports whether a read was served from the response cache.
const CacheHeaderName = "X-Cache"

// Routing keys for user lifecycle events.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)
