// Package workflow holds the grievance routing and lifecycle rules. It performs no I/O:
// every operation takes the current snapshot and returns the next one.
package workflow

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

// Directory resolves the proctor a student is assigned to.
type Directory interface {
	ProctorOf(student models.User) (string, bool)
}

// MapDirectory is a Directory keyed by student USN.
type MapDirectory map[string]string

// ProctorOf implements Directory.
func (m MapDirectory) ProctorOf(student models.User) (string, bool) {
	proctorID, ok := m[student.StudentUSN()]
	return proctorID, ok && proctorID != ""
}

// Engine applies lifecycle rules to grievance snapshots.
type Engine struct {
	routes *RoutingTable
	now    func() time.Time
	newID  func() string
}

// NewEngine builds an engine. A nil table falls back to DefaultRoutingTable and a nil clock to time.Now.
func NewEngine(routes *RoutingTable, now func() time.Time) *Engine {
	if routes == nil {
		routes = DefaultRoutingTable()
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{routes: routes, now: now, newID: uuid.NewString}
}

// CanAct reports whether actor is the current handler of an open grievance.
// HandlerRole is not compared: the handler id alone names the assignee, and
// forwarding routes by actor.Role.
func (e *Engine) CanAct(g models.Grievance, actor models.User) bool {
	return actor.ID != "" && g.CurrentHandler == actor.ID && g.Status.Open()
}

// ApplyStatusUpdate moves g to status, optionally recording a comment from actor.
func (e *Engine) ApplyStatusUpdate(g models.Grievance, status models.GrievanceStatus, actor models.User, comment string) (models.Grievance, error) {
	if !e.CanAct(g, actor) {
		return models.Grievance{}, appErrors.ErrActionUnauthorized
	}
	switch status {
	case models.StatusUnderReview, models.StatusResolved, models.StatusRejected:
	default:
		return models.Grievance{}, appErrors.Clone(appErrors.ErrInvalidTransition, "status "+string(status)+" cannot be set directly")
	}

	now := e.stamp()
	next := g.Clone()
	next.Status = status
	next.LastUpdated = now
	if msg := strings.TrimSpace(comment); msg != "" {
		next.Comments = append(next.Comments, models.Comment{
			ID:        e.newID(),
			UserID:    actor.ID,
			UserName:  actor.Name,
			UserRole:  actor.Role,
			Message:   msg,
			Timestamp: now,
		})
	}
	return next, nil
}

// ResolveForwardTargets lists where a handler of role may escalate to.
func (e *Engine) ResolveForwardTargets(role models.UserRole) []models.ForwardTarget {
	return e.routes.Targets(role)
}

// FindForwardTarget resolves a handler id chosen by a user of role.
func (e *Engine) FindForwardTarget(role models.UserRole, handlerID string) (models.ForwardTarget, bool) {
	return e.routes.Find(role, handlerID)
}

// ForwardGrievance hands g to target one rung up and records the step.
func (e *Engine) ForwardGrievance(g models.Grievance, target models.ForwardTarget, actor models.User, reason string) (models.Grievance, error) {
	if !e.CanAct(g, actor) {
		return models.Grievance{}, appErrors.ErrActionUnauthorized
	}
	allowed, ok := e.routes.Find(actor.Role, target.HandlerID)
	if !ok || allowed.HandlerRole != target.HandlerRole {
		if len(e.routes.Targets(actor.Role)) == 0 {
			return models.Grievance{}, appErrors.Clone(appErrors.ErrNoForwardTarget, actor.Role.DisplayName()+" has no escalation path")
		}
		return models.Grievance{}, appErrors.ErrNoForwardTarget
	}

	now := e.stamp()
	next := g.Clone()
	next.Status = models.StatusForwarded
	next.CurrentHandler = allowed.HandlerID
	next.HandlerRole = allowed.HandlerRole
	next.LastUpdated = now
	next.ForwardHistory = append(next.ForwardHistory, models.ForwardHistory{
		From:      actor.ID,
		FromRole:  actor.Role,
		To:        allowed.HandlerID,
		ToRole:    allowed.HandlerRole,
		Timestamp: now,
		Reason:    strings.TrimSpace(reason),
	})
	return next, nil
}

// SubmitGrievance opens a new grievance assigned to the student's proctor.
func (e *Engine) SubmitGrievance(student models.User, dir Directory, kind models.GrievanceType, description string, priority models.Priority) (models.Grievance, error) {
	if student.Role != models.RoleStudent || student.ID == "" {
		return models.Grievance{}, appErrors.Clone(appErrors.ErrActionUnauthorized, "only students can submit grievances")
	}
	if !kind.Valid() {
		return models.Grievance{}, appErrors.Clone(appErrors.ErrValidation, "invalid grievance type")
	}
	if !priority.Valid() {
		return models.Grievance{}, appErrors.Clone(appErrors.ErrValidation, "invalid priority")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return models.Grievance{}, appErrors.Clone(appErrors.ErrValidation, "description is required")
	}
	if dir == nil {
		return models.Grievance{}, appErrors.ErrNoProctorAssigned
	}
	proctorID, ok := dir.ProctorOf(student)
	if !ok {
		return models.Grievance{}, appErrors.ErrNoProctorAssigned
	}

	now := e.stamp()
	return models.Grievance{
		ID:             e.newID(),
		StudentID:      student.ID,
		StudentName:    student.Name,
		StudentUSN:     student.StudentUSN(),
		Type:           kind,
		Description:    description,
		Priority:       priority,
		Status:         models.StatusSubmitted,
		SubmissionDate: now,
		LastUpdated:    now,
		CurrentHandler: proctorID,
		HandlerRole:    models.RoleProctor,
		Comments:       []models.Comment{},
		ForwardHistory: []models.ForwardHistory{},
	}, nil
}

// VisibleTo filters all down to the grievances user submitted (students) or currently handles (staff).
func (e *Engine) VisibleTo(user models.User, all []models.Grievance) []models.Grievance {
	out := make([]models.Grievance, 0)
	for _, g := range all {
		if Visible(user, g) {
			out = append(out, g)
		}
	}
	return out
}

// Visible reports whether a single grievance belongs in user's view.
func Visible(user models.User, g models.Grievance) bool {
	if user.ID == "" {
		return false
	}
	if user.Role == models.RoleStudent {
		return g.StudentID == user.ID
	}
	return g.CurrentHandler == user.ID
}

func (e *Engine) stamp() time.Time {
	return e.now().UTC()
}
