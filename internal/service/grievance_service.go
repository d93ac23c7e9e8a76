package service

import (
	"context"
	"errors"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/internal/workflow"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

const recentGrievanceLimit = 5

// GrievanceStore persists full grievance snapshots.
type GrievanceStore interface {
	List(ctx context.Context) ([]models.Grievance, error)
	FindByID(ctx context.Context, id string) (*models.Grievance, error)
	Create(ctx context.Context, g *models.Grievance) error
	Save(ctx context.Context, g *models.Grievance) error
}

type studentLookup interface {
	FindByUSN(ctx context.Context, usn string) (*models.Student, error)
}

type grievanceEvents interface {
	Publish(event models.GrievanceEvent)
}

// GrievanceService runs user intents through the workflow engine and persists the resulting snapshots.
type GrievanceService struct {
	store     GrievanceStore
	students  studentLookup
	engine    *workflow.Engine
	events    grievanceEvents
	exports   *ExportService
	metrics   *MetricsService
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    *zap.Logger
}

// NewGrievanceService constructs a GrievanceService. events, exports and metrics may be nil.
func NewGrievanceService(store GrievanceStore, students studentLookup, engine *workflow.Engine, events grievanceEvents, exports *ExportService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GrievanceService {
	if engine == nil {
		engine = workflow.NewEngine(nil, nil)
	}
	if exports == nil {
		exports = NewExportService(logger)
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GrievanceService{
		store:     store,
		students:  students,
		engine:    engine,
		events:    events,
		exports:   exports,
		metrics:   metrics,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
	}
}

// Submit files a new grievance for a student.
func (s *GrievanceService) Submit(ctx context.Context, actor models.User, req models.SubmitGrievanceRequest) (*models.Grievance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grievance payload")
	}

	var dir workflow.MapDirectory
	if actor.Role == models.RoleStudent {
		var err error
		if dir, err = s.directoryFor(ctx, actor); err != nil {
			return nil, err
		}
	}

	g, err := s.engine.SubmitGrievance(actor, dir, req.Type, s.clean(req.Description), req.Priority)
	s.metrics.ObserveGrievanceAction(ActionSubmit, actor.Role, err)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	err = s.store.Create(ctx, &g)
	s.metrics.ObserveStoreCall("grievance.create", time.Since(start))
	if err != nil {
		return nil, storeError(err, "failed to create grievance")
	}

	s.logger.Info("grievance submitted",
		zap.String("grievance_id", g.ID),
		zap.String("student_id", g.StudentID),
		zap.String("handler", g.CurrentHandler),
		zap.String("priority", string(g.Priority)),
	)
	s.publish(models.EventGrievanceSubmitted, actor, g)
	return &g, nil
}

// directoryFor resolves the student's proctor from the directory, then from the login profile.
func (s *GrievanceService) directoryFor(ctx context.Context, student models.User) (workflow.MapDirectory, error) {
	usn := student.StudentUSN()
	dir := workflow.MapDirectory{}
	if s.students != nil {
		record, err := s.students.FindByUSN(ctx, usn)
		switch {
		case err == nil:
			dir[usn] = record.ProctorID
			return dir, nil
		case errors.Is(err, appErrors.ErrNotFound):
		default:
			return nil, storeError(err, "failed to load student record")
		}
	}
	if student.ProctorID != "" {
		dir[usn] = student.ProctorID
	}
	return dir, nil
}

// UpdateStatus applies a status change requested by the current handler.
func (s *GrievanceService) UpdateStatus(ctx context.Context, actor models.User, id string, req models.UpdateStatusRequest) (*models.Grievance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := s.engine.ApplyStatusUpdate(*current, req.Status, actor, s.clean(req.Comment))
	s.metrics.ObserveGrievanceAction(ActionUpdateStatus, actor.Role, err)
	if err != nil {
		s.logger.Warn("status update rejected", zap.String("grievance_id", id), zap.String("actor", actor.ID), zap.Error(err))
		return nil, err
	}
	if err := s.save(ctx, &next); err != nil {
		return nil, err
	}

	s.logger.Info("grievance status updated",
		zap.String("grievance_id", next.ID),
		zap.String("actor", actor.ID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(next.Status)),
	)
	s.publish(models.EventGrievanceStatusUpdated, actor, next)
	return &next, nil
}

// Forward escalates a grievance to a handler on the next rung.
func (s *GrievanceService) Forward(ctx context.Context, actor models.User, id string, req models.ForwardRequest) (*models.Grievance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid forward payload")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	target := models.ForwardTarget{HandlerID: req.To, HandlerRole: req.ToRole}
	if target.HandlerRole == "" {
		if known, ok := s.engine.FindForwardTarget(actor.Role, req.To); ok {
			target = known
		}
	}

	next, err := s.engine.ForwardGrievance(*current, target, actor, s.clean(req.Reason))
	s.metrics.ObserveGrievanceAction(ActionForward, actor.Role, err)
	if err != nil {
		s.logger.Warn("forward rejected", zap.String("grievance_id", id), zap.String("actor", actor.ID), zap.String("to", req.To), zap.Error(err))
		return nil, err
	}
	if err := s.save(ctx, &next); err != nil {
		return nil, err
	}

	s.logger.Info("grievance forwarded",
		zap.String("grievance_id", next.ID),
		zap.String("from", actor.ID),
		zap.String("to", next.CurrentHandler),
		zap.String("to_role", string(next.HandlerRole)),
	)
	s.publish(models.EventGrievanceForwarded, actor, next)
	return &next, nil
}

// ForwardTargets lists the escalation choices of the user's role.
func (s *GrievanceService) ForwardTargets(actor models.User) []models.ForwardTarget {
	return s.engine.ResolveForwardTargets(actor.Role)
}

// List returns the grievances visible to the user after applying query filters, newest first.
func (s *GrievanceService) List(ctx context.Context, actor models.User, query models.GrievanceQuery) ([]models.Grievance, error) {
	visible, err := s.visible(ctx, actor)
	if err != nil {
		return nil, err
	}
	return filterGrievances(visible, query), nil
}

// Get returns one grievance when it is in the user's view.
func (s *GrievanceService) Get(ctx context.Context, actor models.User, id string) (*models.Grievance, error) {
	g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !workflow.Visible(actor, *g) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "grievance not found")
	}
	return g, nil
}

// Dashboard summarises the user's grievances. Students count forwarded grievances as pending.
func (s *GrievanceService) Dashboard(ctx context.Context, actor models.User) (*models.DashboardStats, error) {
	visible, err := s.visible(ctx, actor)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(visible)

	stats := &models.DashboardStats{Total: len(visible), Recent: []models.Grievance{}}
	for _, g := range visible {
		switch g.Status {
		case models.StatusSubmitted, models.StatusUnderReview:
			stats.Pending++
		case models.StatusForwarded:
			if actor.Role == models.RoleStudent {
				stats.Pending++
			}
		case models.StatusResolved:
			stats.Resolved++
		}
		if g.Priority == models.PriorityUrgent {
			stats.Urgent++
		}
	}
	if len(visible) > recentGrievanceLimit {
		stats.Recent = append(stats.Recent, visible[:recentGrievanceLimit]...)
	} else {
		stats.Recent = append(stats.Recent, visible...)
	}
	return stats, nil
}

// Export renders the user's filtered grievance list as CSV or PDF.
func (s *GrievanceService) Export(ctx context.Context, actor models.User, query models.GrievanceQuery, format string) (*ExportFile, error) {
	list, err := s.List(ctx, actor, query)
	if err != nil {
		return nil, err
	}
	title := "Grievances - " + actor.Name + " (" + actor.Role.DisplayName() + ")"
	return s.exports.Render(title, list, format)
}

func (s *GrievanceService) visible(ctx context.Context, actor models.User) ([]models.Grievance, error) {
	start := time.Now()
	all, err := s.store.List(ctx)
	s.metrics.ObserveStoreCall("grievance.list", time.Since(start))
	if err != nil {
		return nil, storeError(err, "failed to list grievances")
	}
	return s.engine.VisibleTo(actor, all), nil
}

func (s *GrievanceService) load(ctx context.Context, id string) (*models.Grievance, error) {
	start := time.Now()
	g, err := s.store.FindByID(ctx, id)
	s.metrics.ObserveStoreCall("grievance.get", time.Since(start))
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grievance not found")
		}
		return nil, storeError(err, "failed to load grievance")
	}
	return g, nil
}

func (s *GrievanceService) save(ctx context.Context, g *models.Grievance) error {
	start := time.Now()
	err := s.store.Save(ctx, g)
	s.metrics.ObserveStoreCall("grievance.save", time.Since(start))
	if err != nil {
		return storeError(err, "failed to save grievance")
	}
	return nil
}

func (s *GrievanceService) publish(eventType models.GrievanceEventType, actor models.User, g models.Grievance) {
	if s.events == nil {
		return
	}
	s.events.Publish(models.GrievanceEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		GrievanceID: g.ID,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		Status:      g.Status,
		Handler:     g.CurrentHandler,
		HandlerRole: g.HandlerRole,
		OccurredAt:  g.LastUpdated,
	})
}

// clean strips markup but keeps the plain text as typed; the policy escapes entities on output.
func (s *GrievanceService) clean(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(text)))
}

func filterGrievances(list []models.Grievance, query models.GrievanceQuery) []models.Grievance {
	search := strings.ToLower(strings.TrimSpace(query.Search))
	out := make([]models.Grievance, 0, len(list))
	for _, g := range list {
		if query.Status != "" && g.Status != query.Status {
			continue
		}
		if query.Priority != "" && g.Priority != query.Priority {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(g.Description), search) &&
			!strings.Contains(strings.ToLower(g.StudentName), search) &&
			!strings.Contains(strings.ToLower(g.ID), search) {
			continue
		}
		out = append(out, g)
	}
	sortNewestFirst(out)
	return out
}

func sortNewestFirst(list []models.Grievance) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].SubmissionDate.After(list[j].SubmissionDate)
	})
}

// storeError keeps typed store errors (not found, conflict, upstream) and wraps anything else as internal.
func storeError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
