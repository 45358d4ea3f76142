package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventPreferencePosted EventType = "preference_posted"
	EventRequestCreated   EventType = "request_created"
	EventRequestCommitted EventType = "request_committed"
	EventRequestRejected  EventType = "request_rejected"
	EventRequestCancelled EventType = "request_cancelled"
)

// AllEventTypes lists every event the core emits.
var AllEventTypes = []EventType{
	EventPreferencePosted,
	EventRequestCreated,
	EventRequestCommitted,
	EventRequestRejected,
	EventRequestCancelled,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// PreferencePostedPayload payload.
type PreferencePostedPayload struct {
	PreferenceID string `json:"preference_id"`
	OwnerID      string `json:"owner_id"`
	OwnerName    string `json:"owner_name"`
	Available    string `json:"available"`
	Needed       string `json:"needed"`
}

// RequestCreatedPayload payload. Rooms are the proposal-time snapshot.
type RequestCreatedPayload struct {
	RequestID     string `json:"request_id"`
	PreferenceID  string `json:"preference_id"`
	RequesterID   string `json:"requester_id"`
	RequesterName string `json:"requester_name"`
	OwnerID       string `json:"owner_id"`
	FromRoom      string `json:"from_room"`
	ToRoom        string `json:"to_room"`
}

// RequestCommittedPayload payload. Rooms are the post-swap assignment.
type RequestCommittedPayload struct {
	RequestID     string   `json:"request_id"`
	RequesterID   string   `json:"requester_id"`
	OwnerID       string   `json:"owner_id"`
	RequesterRoom string   `json:"requester_room"`
	OwnerRoom     string   `json:"owner_room"`
	Invalidated   []string `json:"invalidated_request_ids,omitempty"`
}

// RejectReason explains why a request was rejected.
type RejectReason string

const (
	RejectReasonOwner             RejectReason = "owner_rejected"
	RejectReasonPreferenceRemoved RejectReason = "preference_removed"
)

// RequestRejectedPayload payload.
type RequestRejectedPayload struct {
	RequestIDs []string     `json:"request_ids"`
	Reason     RejectReason `json:"reason"`
}

// RequestCancelledPayload payload.
type RequestCancelledPayload struct {
	RequestID   string `json:"request_id"`
	RequesterID string `json:"requester_id"`
	OwnerID     string `json:"owner_id"`
}
