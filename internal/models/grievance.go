package models

import "time"

// GrievanceType classifies a grievance.
type GrievanceType string

const (
	GrievanceAcademic    GrievanceType = "academic"
	GrievanceNonAcademic GrievanceType = "non-academic"
)

// Valid reports whether t is a known classification.
func (t GrievanceType) Valid() bool {
	return t == GrievanceAcademic || t == GrievanceNonAcademic
}

// Priority carries no ordering beyond display.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// GrievanceStatus captures the lifecycle state of a grievance.
type GrievanceStatus string

const (
	StatusSubmitted   GrievanceStatus = "submitted"
	StatusUnderReview GrievanceStatus = "under_review"
	StatusForwarded   GrievanceStatus = "forwarded"
	StatusResolved    GrievanceStatus = "resolved"
	StatusRejected    GrievanceStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s GrievanceStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusUnderReview, StatusForwarded, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// Open reports whether a handler may still act on the grievance.
func (s GrievanceStatus) Open() bool {
	return s == StatusSubmitted || s == StatusUnderReview || s == StatusForwarded
}

// Terminal reports whether no further transitions are defined.
func (s GrievanceStatus) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// Grievance is one complaint and its routing state.
type Grievance struct {
	ID             string           `json:"id"`
	StudentID      string           `json:"studentId"`
	StudentName    string           `json:"studentName"`
	StudentUSN     string           `json:"studentUSN"`
	Type           GrievanceType    `json:"type"`
	Description    string           `json:"description"`
	Priority       Priority         `json:"priority"`
	Status         GrievanceStatus  `json:"status"`
	SubmissionDate time.Time        `json:"submissionDate"`
	LastUpdated    time.Time        `json:"lastUpdated"`
	CurrentHandler string           `json:"currentHandler"`
	HandlerRole    UserRole         `json:"handlerRole"`
	Comments       []Comment        `json:"comments"`
	ForwardHistory []ForwardHistory `json:"forwardHistory"`
}

// Clone returns a copy whose comment and history slices do not alias the receiver's.
// The copies are never nil so they encode as empty arrays.
func (g Grievance) Clone() Grievance {
	out := g
	out.Comments = append(make([]Comment, 0, len(g.Comments)), g.Comments...)
	out.ForwardHistory = append(make([]ForwardHistory, 0, len(g.ForwardHistory)), g.ForwardHistory...)
	return out
}

// Comment is an append-only note left by a handler.
type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	UserRole  UserRole  `json:"userRole"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ForwardHistory records one escalation step.
type ForwardHistory struct {
	From      string    `json:"from"`
	FromRole  UserRole  `json:"fromRole"`
	To        string    `json:"to"`
	ToRole    UserRole  `json:"toRole"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
}

// GrievanceQuery holds the list filters of the grievance screen.
type GrievanceQuery struct {
	Search   string
	Status   GrievanceStatus
	Priority Priority
}

// ForwardTarget is one escalation destination offered to a handler.
type ForwardTarget struct {
	HandlerID   string   `json:"handlerId"`
	HandlerRole UserRole `json:"handlerRole"`
	DisplayName string   `json:"displayName"`
}

// SubmitGrievanceRequest is the payload a student files.
type SubmitGrievanceRequest struct {
	Type        GrievanceType `json:"type" validate:"required,oneof=academic non-academic"`
	Description string        `json:"description" validate:"required,max=5000"`
	Priority    Priority      `json:"priority" validate:"required,oneof=low medium high urgent"`
}

// UpdateStatusRequest changes the status of a grievance with an optional comment.
type UpdateStatusRequest struct {
	Status  GrievanceStatus `json:"status" validate:"required"`
	Comment string          `json:"comment" validate:"max=2000"`
}

// ForwardRequest escalates a grievance to the chosen handler.
type ForwardRequest struct {
	To     string   `json:"to" validate:"required"`
	ToRole UserRole `json:"toRole"`
	Reason string   `json:"reason" validate:"max=2000"`
}
