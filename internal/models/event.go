package models

import "time"

// GrievanceEventType names a published lifecycle event.
type GrievanceEventType string

const (
	EventGrievanceSubmitted     GrievanceEventType = "grievance.submitted"
	EventGrievanceStatusUpdated GrievanceEventType = "grievance.status_updated"
	EventGrievanceForwarded     GrievanceEventType = "grievance.forwarded"
)

// GrievanceEvent is the payload published after a snapshot was persisted.
type GrievanceEvent struct {
	ID          string             `json:"id"`
	Type        GrievanceEventType `json:"type"`
	GrievanceID string             `json:"grievance_id"`
	ActorID     string             `json:"actor_id"`
	ActorRole   UserRole           `json:"actor_role"`
	Status      GrievanceStatus    `json:"status"`
	Handler     string             `json:"handler"`
	HandlerRole UserRole           `json:"handler_role"`
	OccurredAt  time.Time          `json:"occurred_at"`
}
