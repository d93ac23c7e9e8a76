package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

// StudentStore persists directory students.
type StudentStore interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	FindByUSN(ctx context.Context, usn string) (*models.Student, error)
	CountByProctor(ctx context.Context, proctorID string) (int, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, usn string) error
}

// ProctorStore persists proctors.
type ProctorStore interface {
	List(ctx context.Context, filter models.ProctorFilter) ([]models.Proctor, error)
	FindByID(ctx context.Context, id string) (*models.Proctor, error)
	Create(ctx context.Context, proctor *models.Proctor) error
	Update(ctx context.Context, proctor *models.Proctor) error
	Delete(ctx context.Context, id string) error
}

const (
	studentCachePrefix = "students:"
	proctorCachePrefix = "proctors:"
)

// DirectoryService manages the student and proctor directory used for grievance routing.
type DirectoryService struct {
	students  StudentStore
	proctors  ProctorStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDirectoryService constructs a DirectoryService. cache may be nil.
func NewDirectoryService(students StudentStore, proctors ProctorStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *DirectoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{students: students, proctors: proctors, cache: cache, validator: validate, logger: logger}
}

// ListStudents returns students matching filter. The bool reports a cache hit.
func (s *DirectoryService) ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.Student, bool, error) {
	key := fmt.Sprintf("%slist:%s:%s:%s", studentCachePrefix, strings.ToLower(filter.Search), filter.Department, filter.ProctorID)
	var students []models.Student
	hit, err := s.cache.Remember(ctx, key, &students, func(ctx context.Context) error {
		var err error
		students, err = s.students.List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, false, storeError(err, "failed to list students")
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, hit, nil
}

// GetStudent returns one student by USN.
func (s *DirectoryService) GetStudent(ctx context.Context, usn string) (*models.Student, error) {
	student, err := s.students.FindByUSN(ctx, usn)
	if err != nil {
		return nil, storeError(err, "failed to load student")
	}
	return student, nil
}

// CreateStudent adds a student assigned to an existing proctor.
func (s *DirectoryService) CreateStudent(ctx context.Context, req models.StudentRequest) (*models.Student, error) {
	student, err := s.validStudent(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := s.students.FindByUSN(ctx, student.USN); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student with this USN already exists")
	} else if !errors.Is(err, appErrors.ErrNotFound) {
		return nil, storeError(err, "failed to check student")
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, storeError(err, "failed to create student")
	}
	s.invalidate(ctx, studentCachePrefix, proctorCachePrefix)
	s.logger.Info("student created", zap.String("usn", student.USN), zap.String("proctor", student.ProctorID))
	return student, nil
}

// UpdateStudent replaces the student stored under usn.
func (s *DirectoryService) UpdateStudent(ctx context.Context, usn string, req models.StudentRequest) (*models.Student, error) {
	if req.USN == "" {
		req.USN = usn
	}
	if req.USN != usn {
		return nil, appErrors.Clone(appErrors.ErrValidation, "USN cannot be changed")
	}
	student, err := s.validStudent(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.students.Update(ctx, student); err != nil {
		return nil, storeError(err, "failed to update student")
	}
	s.invalidate(ctx, studentCachePrefix, proctorCachePrefix)
	return student, nil
}

// DeleteStudent removes a student.
func (s *DirectoryService) DeleteStudent(ctx context.Context, usn string) error {
	if err := s.students.Delete(ctx, usn); err != nil {
		return storeError(err, "failed to delete student")
	}
	s.invalidate(ctx, studentCachePrefix, proctorCachePrefix)
	s.logger.Info("student deleted", zap.String("usn", usn))
	return nil
}

func (s *DirectoryService) validStudent(ctx context.Context, req models.StudentRequest) (*models.Student, error) {
	req.USN = strings.TrimSpace(req.USN)
	req.ProctorID = strings.TrimSpace(req.ProctorID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if _, err := s.proctors.FindByID(ctx, req.ProctorID); err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "proctor "+req.ProctorID+" does not exist")
		}
		return nil, storeError(err, "failed to check proctor")
	}
	return &models.Student{
		USN:        req.USN,
		Name:       strings.TrimSpace(req.Name),
		Semester:   req.Semester,
		Section:    strings.TrimSpace(req.Section),
		Department: strings.TrimSpace(req.Department),
		ProctorID:  req.ProctorID,
	}, nil
}

// ListProctors returns proctors with their assigned student counts.
func (s *DirectoryService) ListProctors(ctx context.Context, filter models.ProctorFilter) ([]models.ProctorSummary, bool, error) {
	key := fmt.Sprintf("%slist:%s:%s", proctorCachePrefix, strings.ToLower(filter.Search), filter.Department)
	var summaries []models.ProctorSummary
	hit, err := s.cache.Remember(ctx, key, &summaries, func(ctx context.Context) error {
		proctors, err := s.proctors.List(ctx, filter)
		if err != nil {
			return err
		}
		students, err := s.students.List(ctx, models.StudentFilter{})
		if err != nil {
			return err
		}
		counts := make(map[string]int, len(proctors))
		for _, st := range students {
			counts[st.ProctorID]++
		}
		summaries = make([]models.ProctorSummary, 0, len(proctors))
		for _, p := range proctors {
			summaries = append(summaries, models.ProctorSummary{Proctor: p, StudentCount: counts[p.ID]})
		}
		return nil
	})
	if err != nil {
		return nil, false, storeError(err, "failed to list proctors")
	}
	if summaries == nil {
		summaries = []models.ProctorSummary{}
	}
	return summaries, hit, nil
}

// GetProctor returns one proctor with the students assigned to it.
func (s *DirectoryService) GetProctor(ctx context.Context, id string) (*models.ProctorSummary, []models.Student, error) {
	proctor, err := s.proctors.FindByID(ctx, id)
	if err != nil {
		return nil, nil, storeError(err, "failed to load proctor")
	}
	students, err := s.students.List(ctx, models.StudentFilter{ProctorID: id})
	if err != nil {
		return nil, nil, storeError(err, "failed to list proctor students")
	}
	if students == nil {
		students = []models.Student{}
	}
	return &models.ProctorSummary{Proctor: *proctor, StudentCount: len(students)}, students, nil
}

// CreateProctor adds a proctor with a unique id.
func (s *DirectoryService) CreateProctor(ctx context.Context, req models.ProctorRequest) (*models.Proctor, error) {
	proctor, err := s.validProctor(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.proctors.FindByID(ctx, proctor.ID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "proctor with this id already exists")
	} else if !errors.Is(err, appErrors.ErrNotFound) {
		return nil, storeError(err, "failed to check proctor")
	}
	if err := s.proctors.Create(ctx, proctor); err != nil {
		return nil, storeError(err, "failed to create proctor")
	}
	s.invalidate(ctx, proctorCachePrefix)
	s.logger.Info("proctor created", zap.String("p_id", proctor.ID))
	return proctor, nil
}

// UpdateProctor replaces the proctor stored under id.
func (s *DirectoryService) UpdateProctor(ctx context.Context, id string, req models.ProctorRequest) (*models.Proctor, error) {
	if req.ID == "" {
		req.ID = id
	}
	if req.ID != id {
		return nil, appErrors.Clone(appErrors.ErrValidation, "proctor id cannot be changed")
	}
	proctor, err := s.validProctor(req)
	if err != nil {
		return nil, err
	}
	if err := s.proctors.Update(ctx, proctor); err != nil {
		return nil, storeError(err, "failed to update proctor")
	}
	s.invalidate(ctx, proctorCachePrefix)
	return proctor, nil
}

// DeleteProctor removes a proctor. It is refused while any student still references the proctor,
// and the store is not contacted in that case.
func (s *DirectoryService) DeleteProctor(ctx context.Context, id string) error {
	assigned, err := s.students.CountByProctor(ctx, id)
	if err != nil {
		return storeError(err, "failed to count assigned students")
	}
	if assigned > 0 {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot delete proctor with %d assigned student(s)", assigned))
	}
	if err := s.proctors.Delete(ctx, id); err != nil {
		return storeError(err, "failed to delete proctor")
	}
	s.invalidate(ctx, proctorCachePrefix)
	s.logger.Info("proctor deleted", zap.String("p_id", id))
	return nil
}

func (s *DirectoryService) validProctor(req models.ProctorRequest) (*models.Proctor, error) {
	req.ID = strings.TrimSpace(req.ID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid proctor payload")
	}
	return &models.Proctor{ID: req.ID, Name: strings.TrimSpace(req.Name), Department: strings.TrimSpace(req.Department)}, nil
}

func (s *DirectoryService) invalidate(ctx context.Context, prefixes ...string) {
	for _, prefix := range prefixes {
		_ = s.cache.Invalidate(ctx, prefix+"*")
	}
}
