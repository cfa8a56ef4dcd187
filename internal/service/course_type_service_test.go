package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradtrack/mentor-api/internal/models"
	appErrors "github.com/gradtrack/mentor-api/pkg/errors"
)

type mockCourseTypeRepo struct {
	types     []models.CourseType
	deletedBy string
}

func (m *mockCourseTypeRepo) List(ctx context.Context) ([]models.CourseType, error) {
	active := make([]models.CourseType, 0, len(m.types))
	for _, ct := range m.types {
		if ct.Active {
			active = append(active, ct)
		}
	}
	return active, nil
}

func (m *mockCourseTypeRepo) FindByID(ctx context.Context, id string) (*models.CourseType, error) {
	for i := range m.types {
		if m.types[i].ID == id && m.types[i].Active {
			return &m.types[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseTypeRepo) Create(ctx context.Context, courseType *models.CourseType) error {
	courseType.ID = "ctype-new"
	m.types = append(m.types, *courseType)
	return nil
}

func (m *mockCourseTypeRepo) Update(ctx context.Context, courseType *models.CourseType) error {
	return nil
}

func (m *mockCourseTypeRepo) SoftDelete(ctx context.Context, id, by string, at time.Time) error {
	m.deletedBy = by
	return nil
}

func TestCourseTypeListReturnsActiveOnly(t *testing.T) {
	repo := &mockCourseTypeRepo{types: []models.CourseType{
		{ID: "ctype-1", Name: "Masters", Active: true},
		{ID: "ctype-2", Name: "Diploma", Active: false},
	}}
	svc := NewCourseTypeService(repo, nil, nil)

	types, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "Masters", types[0].Name)
}

func TestCourseTypeCreateStampsTracking(t *testing.T) {
	repo := &mockCourseTypeRepo{}
	svc := NewCourseTypeService(repo, nil, nil)

	courseType, err := svc.Create(context.Background(), CourseTypeRequest{Name: "PhD"}, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ctype-new", courseType.ID)
	assert.Equal(t, "admin@example.com", courseType.CreatedBy)
	assert.True(t, courseType.Active)
}

func TestCourseTypeCreateRejectsEmptyName(t *testing.T) {
	svc := NewCourseTypeService(&mockCourseTypeRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), CourseTypeRequest{}, "admin@example.com")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCourseTypeGetTreatsInactiveAsMissing(t *testing.T) {
	repo := &mockCourseTypeRepo{types: []models.CourseType{{ID: "ctype-1", Name: "Masters", Active: false}}}
	svc := NewCourseTypeService(repo, nil, nil)

	_, err := svc.Get(context.Background(), "ctype-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseTypeDeleteStampsActor(t *testing.T) {
	repo := &mockCourseTypeRepo{types: []models.CourseType{{ID: "ctype-1", Name: "Masters", Active: true}}}
	svc := NewCourseTypeService(repo, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "ctype-1", "admin@example.com"))
	assert.Equal(t, "admin@example.com", repo.deletedBy)
}
