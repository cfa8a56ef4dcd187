package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradtrack/mentor-api/internal/models"
	"github.com/gradtrack/mentor-api/internal/service"
)

type userRepoMock struct {
	users      []models.User
	audits     []models.AuditLog
	lastFilter models.UserFilter
}

func (m *userRepoMock) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.lastFilter = filter
	return m.users, len(m.users), nil
}

func (m *userRepoMock) FindByID(ctx context.Context, id string) (*models.User, error) {
	for i := range m.users {
		if m.users[i].ID == id {
			return &m.users[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *userRepoMock) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for i := range m.users {
		if m.users[i].Email == email {
			return &m.users[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *userRepoMock) Create(ctx context.Context, user *models.User) error {
	user.ID = "user-new"
	m.users = append(m.users, *user)
	return nil
}

func (m *userRepoMock) Update(ctx context.Context, user *models.User) error { return nil }

func (m *userRepoMock) Delete(ctx context.Context, id string) error { return nil }

func (m *userRepoMock) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, *log)
	return nil
}

func newUserHandlerForTest(repo *userRepoMock) *UserHandler {
	return NewUserHandler(service.NewUserService(repo, nil, nil))
}

func TestUserHandlerListPassesRoleFilter(t *testing.T) {
	repo := &userRepoMock{users: []models.User{{ID: "user-1", Email: "mentor@example.com", Role: models.RoleMentor}}}
	h := newUserHandlerForTest(repo)

	c, w := testContext(t, http.MethodGet, "/users?role=MENTOR&active=true", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, repo.lastFilter.Role)
	assert.Equal(t, models.RoleMentor, *repo.lastFilter.Role)
	require.NotNil(t, repo.lastFilter.Active)
	assert.True(t, *repo.lastFilter.Active)
	assert.Contains(t, w.Body.String(), "mentor@example.com")
}

func TestUserHandlerCreateRecordsActingUser(t *testing.T) {
	repo := &userRepoMock{}
	h := newUserHandlerForTest(repo)

	payload := []byte(`{"email":"new@example.com","password":"secret1","first_name":"New","last_name":"Mentor","role":"MENTOR"}`)
	c, w := testContext(t, http.MethodPost, "/users", payload)
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.audits, 1)
	require.NotNil(t, repo.audits[0].UserID)
	assert.Equal(t, "admin-1", *repo.audits[0].UserID)
	assert.Equal(t, models.AuditActionUserCreate, repo.audits[0].Action)
}

func TestUserHandlerCreateRequiresClaims(t *testing.T) {
	h := newUserHandlerForTest(&userRepoMock{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/users", nil)
	require.NoError(t, err)
	c.Request = req
	h.Create(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserHandlerDeleteDeactivates(t *testing.T) {
	repo := &userRepoMock{users: []models.User{{ID: "user-1"}}}
	h := newUserHandlerForTest(repo)

	c, w := testContext(t, http.MethodDelete, "/users/user-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "user-1"}}
	h.Delete(c)
	c.Writer.WriteHeaderNow()

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionUserDelete, repo.audits[0].Action)
}
