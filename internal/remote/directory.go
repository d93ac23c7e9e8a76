package remote

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/noah-isme/grievance-api/internal/models"
)

// StudentStore manages student records in the data service. Filtering happens locally.
type StudentStore struct {
	client *Client
}

// NewStudentStore constructs a StudentStore.
func NewStudentStore(client *Client) *StudentStore {
	return &StudentStore{client: client}
}

func (s *StudentStore) all(ctx context.Context) ([]models.Student, error) {
	var out []models.Student
	if err := s.client.do(ctx, http.MethodGet, "/students", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the students matching filter ordered by USN.
func (s *StudentStore) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	students, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]models.Student, 0, len(students))
	for _, st := range students {
		if filter.Department != "" && st.Department != filter.Department {
			continue
		}
		if filter.ProctorID != "" && st.ProctorID != filter.ProctorID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(st.Name), search) && !strings.Contains(strings.ToLower(st.USN), search) {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].USN < out[j].USN })
	return out, nil
}

// FindByUSN fetches one student.
func (s *StudentStore) FindByUSN(ctx context.Context, usn string) (*models.Student, error) {
	var out models.Student
	if err := s.client.do(ctx, http.MethodGet, "/students/"+url.PathEscape(usn), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CountByProctor counts students assigned to proctorID.
func (s *StudentStore) CountByProctor(ctx context.Context, proctorID string) (int, error) {
	students, err := s.all(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, st := range students {
		if st.ProctorID == proctorID {
			total++
		}
	}
	return total, nil
}

// Create adds a student.
func (s *StudentStore) Create(ctx context.Context, student *models.Student) error {
	return s.client.do(ctx, http.MethodPost, "/students", student, nil)
}

// Update replaces a student record.
func (s *StudentStore) Update(ctx context.Context, student *models.Student) error {
	return s.client.do(ctx, http.MethodPut, "/students/"+url.PathEscape(student.USN), student, nil)
}

// Delete removes a student.
func (s *StudentStore) Delete(ctx context.Context, usn string) error {
	return s.client.do(ctx, http.MethodDelete, "/students/"+url.PathEscape(usn), nil, nil)
}

// ProctorStore manages proctor records in the data service.
type ProctorStore struct {
	client *Client
}

// NewProctorStore constructs a ProctorStore.
func NewProctorStore(client *Client) *ProctorStore {
	return &ProctorStore{client: client}
}

// List returns proctors matching filter ordered by id.
func (s *ProctorStore) List(ctx context.Context, filter models.ProctorFilter) ([]models.Proctor, error) {
	var proctors []models.Proctor
	if err := s.client.do(ctx, http.MethodGet, "/proctors", nil, &proctors); err != nil {
		return nil, err
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]models.Proctor, 0, len(proctors))
	for _, p := range proctors {
		if filter.Department != "" && p.Department != filter.Department {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(strings.ToLower(p.ID), search) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindByID fetches one proctor.
func (s *ProctorStore) FindByID(ctx context.Context, id string) (*models.Proctor, error) {
	var out models.Proctor
	if err := s.client.do(ctx, http.MethodGet, "/proctors/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create adds a proctor.
func (s *ProctorStore) Create(ctx context.Context, proctor *models.Proctor) error {
	return s.client.do(ctx, http.MethodPost, "/proctors", proctor, nil)
}

// Update replaces a proctor record.
func (s *ProctorStore) Update(ctx context.Context, proctor *models.Proctor) error {
	return s.client.do(ctx, http.MethodPut, "/proctors/"+url.PathEscape(proctor.ID), proctor, nil)
}

// Delete removes a proctor.
func (s *ProctorStore) Delete(ctx context.Context, id string) error {
	return s.client.do(ctx, http.MethodDelete, "/proctors/"+url.PathEscape(id), nil, nil)
}
