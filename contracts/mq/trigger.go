package mq

import "time"

// Routing keys on the events exchange.
const (
	RoutingKeySessionsSync    = "sessions.sync.requested"
	RoutingKeyEmailQueueDrain = "email_queue.drain.requested"
)

// Queue names the worker binds.
const (
	QueueSessionsSync    = "worker.sessions.sync"
	QueueEmailQueueDrain = "worker.email_queue.drain"
)

type SessionsSyncRequestedPayload struct {
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

type EmailQueueDrainRequestedPayload struct {
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
	// Limit overrides the configured batch size when > 0.
	Limit int `json:"limit,omitempty"`
}
