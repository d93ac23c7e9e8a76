package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

func TestCacheRepositoryRoundTripAndInvalidate(t *testing.T) {
	mr, client := newMiniRedis(t)
	repo := NewCacheRepository(client, "directory", nil)
	ctx := context.Background()

	students := []models.Student{{USN: "1RV21CS001", Name: "Asha", ProctorID: "P001"}}
	require.NoError(t, repo.Set(ctx, "students:all", students, time.Minute))
	require.NoError(t, repo.Set(ctx, "proctors:all", []models.Proctor{{ID: "P001"}}, time.Minute))
	assert.True(t, mr.Exists("directory:students:all"))

	var cached []models.Student
	require.NoError(t, repo.Get(ctx, "students:all", &cached))
	assert.Equal(t, students, cached)

	require.NoError(t, repo.DeleteByPattern(ctx, "students:*"))
	err := repo.Get(ctx, "students:all", &cached)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.True(t, mr.Exists("directory:proctors:all"))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "directory", nil)
	var dest []models.Student
	assert.True(t, errors.Is(repo.Get(context.Background(), "k", &dest), appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Set(context.Background(), "k", dest, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "*"))
}
