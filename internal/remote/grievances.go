package remote

import (
	"context"
	"net/http"
	"net/url"
	"sort"

	"github.com/noah-isme/grievance-api/internal/models"
)

// GrievanceStore persists grievance snapshots through the data service.
type GrievanceStore struct {
	client *Client
}

// NewGrievanceStore constructs a GrievanceStore.
func NewGrievanceStore(client *Client) *GrievanceStore {
	return &GrievanceStore{client: client}
}

// List fetches the whole collection, newest submission first.
func (s *GrievanceStore) List(ctx context.Context) ([]models.Grievance, error) {
	var out []models.Grievance
	if err := s.client.do(ctx, http.MethodGet, "/grievances", nil, &out); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmissionDate.After(out[j].SubmissionDate)
	})
	return out, nil
}

// FindByID fetches a single grievance.
func (s *GrievanceStore) FindByID(ctx context.Context, id string) (*models.Grievance, error) {
	var out models.Grievance
	if err := s.client.do(ctx, http.MethodGet, "/grievances/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create posts a new snapshot. Server-assigned fields returned by the service replace the local ones.
func (s *GrievanceStore) Create(ctx context.Context, g *models.Grievance) error {
	var created models.Grievance
	if err := s.client.do(ctx, http.MethodPost, "/grievances", g, &created); err != nil {
		return err
	}
	mergeServerFields(g, created)
	return nil
}

// Save replaces the stored snapshot with g in one request. Last write wins.
func (s *GrievanceStore) Save(ctx context.Context, g *models.Grievance) error {
	var saved models.Grievance
	if err := s.client.do(ctx, http.MethodPut, "/grievances/"+url.PathEscape(g.ID), g, &saved); err != nil {
		return err
	}
	mergeServerFields(g, saved)
	return nil
}

// mergeServerFields lets the data service own identity and timestamps when it supplies them.
func mergeServerFields(dst *models.Grievance, src models.Grievance) {
	if src.ID != "" {
		dst.ID = src.ID
	}
	if !src.SubmissionDate.IsZero() {
		dst.SubmissionDate = src.SubmissionDate
	}
	if !src.LastUpdated.IsZero() {
		dst.LastUpdated = src.LastUpdated
	}
}
