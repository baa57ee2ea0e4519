package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"amor/internal/config"
	"amor/internal/models"
	"amor/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) SetRole(ctx context.Context, id uint, role models.Role) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

func (m *MockUserRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.User), args.Error(1)
}

func newAuthServer(repo *MockUserRepository, rdb *redis.Client) *Server {
	return &Server{
		config:      &config.Config{JWTSecret: testSecret},
		redis:       rdb,
		userRepo:    repo,
		userService: service.NewUserService(repo),
	}
}

func postJSON(t *testing.T, app *fiber.App, path string, body any, token string) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestSignup(t *testing.T) {
	mockRepo := new(MockUserRepository)
	s := newAuthServer(mockRepo, nil)

	app := fiber.New()
	app.Post("/signup", s.Signup)

	mockRepo.On("GetByEmail", mock.Anything, "test@example.com").Return(nil, nil)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).
		Run(func(args mock.Arguments) { args.Get(1).(*models.User).ID = 7 }).
		Return(nil)
	mockRepo.On("GetByEmail", mock.Anything, "exists@example.com").Return(&models.User{ID: 1}, nil)

	tests := []struct {
		name           string
		body           map[string]string
		expectedStatus int
	}{
		{
			name:           "Success",
			body:           map[string]string{"name": "Test User", "email": "test@example.com", "password": "Str0ng!Passw0rd"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Duplicate User",
			body:           map[string]string{"name": "Test User", "email": "exists@example.com", "password": "Str0ng!Passw0rd"},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "Weak Password",
			body:           map[string]string{"name": "Test User", "email": "weak@example.com", "password": "password"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, app, "/signup", tt.body, "")
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusCreated {
				var body struct {
					Token   string         `json:"token"`
					Session models.Session `json:"session"`
				}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.NotEmpty(t, body.Token)
				assert.Equal(t, uint(7), body.Session.UserID)
				assert.Equal(t, models.RoleUser, body.Session.Role)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("Str0ng!Passw0rd"), bcrypt.MinCost)
	require.NoError(t, err)

	mockRepo := new(MockUserRepository)
	mockRepo.On("GetByEmail", mock.Anything, "ada@example.com").
		Return(&models.User{ID: 3, Name: "Ada", Email: "ada@example.com", Password: string(hash), Role: models.RoleAdmin}, nil)
	mockRepo.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, nil)
	s := newAuthServer(mockRepo, nil)

	app := fiber.New()
	app.Post("/login", s.Login)

	resp := postJSON(t, app, "/login", map[string]string{"email": "ada@example.com", "password": "Str0ng!Passw0rd"}, "")
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Token   string         `json:"token"`
		Session models.Session `json:"session"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, models.RoleAdmin, body.Session.Role)

	userID, _, err := s.parseToken(body.Token)
	require.NoError(t, err)
	assert.Equal(t, uint(3), userID)

	for _, creds := range []map[string]string{
		{"email": "ada@example.com", "password": "Wr0ng!Passw0rd"},
		{"email": "nobody@example.com", "password": "Str0ng!Passw0rd"},
	} {
		resp := postJSON(t, app, "/login", creds, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		_ = resp.Body.Close()
	}
}

func TestSession(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("GetByID", mock.Anything, uint(9)).
		Return(&models.User{ID: 9, Name: "Nia", Image: "/media/nia.jpg", Role: models.RoleUser}, nil)
	s := newAuthServer(mockRepo, nil)

	app := fiber.New()
	app.Get("/session", s.Session)

	t.Run("anonymous", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/session", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		var body any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Nil(t, body)
	})

	t.Run("signed in", func(t *testing.T) {
		token, err := s.generateToken(9)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/session", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		var body models.Session
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, models.Session{UserID: 9, Role: models.RoleUser, Name: "Nia", ImageURL: "/media/nia.jpg"}, body)
	})
}

func TestLogout_RevokesToken(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := newAuthServer(new(MockUserRepository), rdb)
	app := fiber.New()
	app.Post("/logout", s.AuthRequired(), s.Logout)
	app.Get("/me", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": currentUserID(c)})
	})

	token, err := s.generateToken(4)
	require.NoError(t, err)

	resp := postJSON(t, app, "/logout", nil, token)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
