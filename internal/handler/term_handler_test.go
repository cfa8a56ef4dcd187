package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradtrack/mentor-api/internal/middleware"
	"github.com/gradtrack/mentor-api/internal/models"
	"github.com/gradtrack/mentor-api/internal/service"
)

type termRepoMock struct {
	terms       []models.Term
	courseCount int
	deletedBy   string
	lastFilter  models.TermFilter
}

func (m *termRepoMock) List(ctx context.Context, filter models.TermFilter) ([]models.Term, int, error) {
	m.lastFilter = filter
	return m.terms, len(m.terms), nil
}

func (m *termRepoMock) FindByID(ctx context.Context, id string) (*models.Term, error) {
	for i := range m.terms {
		if m.terms[i].ID == id {
			return &m.terms[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *termRepoMock) Create(ctx context.Context, term *models.Term) error {
	term.ID = "term-new"
	m.terms = append(m.terms, *term)
	return nil
}

func (m *termRepoMock) Update(ctx context.Context, term *models.Term) error { return nil }

func (m *termRepoMock) SoftDelete(ctx context.Context, id, by string, at time.Time) error {
	m.deletedBy = by
	return nil
}

func (m *termRepoMock) CountCourses(ctx context.Context, id string) (int, error) {
	return m.courseCount, nil
}

func newTermHandlerForTest(repo *termRepoMock) *TermHandler {
	return NewTermHandler(service.NewTermService(repo, nil, nil))
}

func testContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Buffer
	if body != nil {
		reader = bytes.NewBuffer(body)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Email: "admin@example.com", Role: models.RoleAdmin})
	return c, w
}

func TestTermHandlerListPassesFilters(t *testing.T) {
	repo := &termRepoMock{terms: []models.Term{{ID: "term-1", Name: "Fall 2026"}}}
	h := newTermHandlerForTest(repo)

	c, w := testContext(t, http.MethodGet, "/terms?universityId=uni-1&active=true", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "uni-1", repo.lastFilter.UniversityID)
	require.NotNil(t, repo.lastFilter.Active)
	assert.True(t, *repo.lastFilter.Active)
	assert.Contains(t, w.Body.String(), "Fall 2026")
}

func TestTermHandlerCreateStampsActor(t *testing.T) {
	repo := &termRepoMock{}
	h := newTermHandlerForTest(repo)

	payload := []byte(`{"name":"Spring 2027","university_id":"uni-1"}`)
	c, w := testContext(t, http.MethodPost, "/terms", payload)
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.terms, 1)
	assert.Equal(t, "admin@example.com", repo.terms[0].CreatedBy)
}

func TestTermHandlerCreateRejectsMalformedBody(t *testing.T) {
	h := newTermHandlerForTest(&termRepoMock{})

	c, w := testContext(t, http.MethodPost, "/terms", []byte(`{"name":`))
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTermHandlerDeleteRefusedWhileCoursesAttached(t *testing.T) {
	repo := &termRepoMock{terms: []models.Term{{ID: "term-1"}}, courseCount: 2}
	h := newTermHandlerForTest(repo)

	c, w := testContext(t, http.MethodDelete, "/terms/term-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "term-1"}}
	h.Delete(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, repo.deletedBy)
}

func TestTermHandlerDeleteSoftDeletes(t *testing.T) {
	repo := &termRepoMock{terms: []models.Term{{ID: "term-1"}}}
	h := newTermHandlerForTest(repo)

	c, w := testContext(t, http.MethodDelete, "/terms/term-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "term-1"}}
	h.Delete(c)
	// c.Status defers the header write until the body is touched.
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "admin@example.com", repo.deletedBy)
}
