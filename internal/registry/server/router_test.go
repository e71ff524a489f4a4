package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mercury-net/mercury/internal/logging"
	"github.com/mercury-net/mercury/internal/registry/handlers"
	"github.com/mercury-net/mercury/internal/registry/models"
	"github.com/mercury-net/mercury/internal/registry/service"
)

// MockRepository is a mock implementation of repository.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateAntibody(ctx context.Context, a *models.Antibody) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*models.Antibody, error) {
	args := m.Called(ctx, fingerprint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Antibody), args.Error(1)
}

func (m *MockRepository) FingerprintKnown(ctx context.Context, fingerprint string) (bool, error) {
	args := m.Called(ctx, fingerprint)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) ListAntibodies(ctx context.Context, req *models.ListRequest) ([]*models.Antibody, int, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.Antibody), args.Int(1), args.Error(2)
}

func (m *MockRepository) Stats(ctx context.Context) (*models.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Stats), args.Error(1)
}

func (m *MockRepository) CreatePattern(ctx context.Context, p *models.Pattern) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockRepository) ListPatterns(ctx context.Context, req *models.ListPatternsRequest) ([]*models.Pattern, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Pattern), args.Error(1)
}

func (m *MockRepository) ActivePatterns(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRepository) DisablePattern(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockRepository) EnablePattern(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) Close() {
	m.Called()
}

// stubValidator accepts the token "good-token" as Agent-A.
type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (string, error) {
	if token == "good-token" {
		return "Agent-A", nil
	}
	return "", errors.New("invalid token")
}

func newTestRouter(mockRepo *MockRepository) http.Handler {
	logger := logging.New(slog.LevelError, "text")
	svc := service.New(mockRepo, nil, nil, nil, nil, logger, service.Options{})
	h := handlers.NewHandler(svc, nil, logger, nil)
	return NewRouter(h, stubValidator{})
}

func TestRouterAuth(t *testing.T) {
	mockRepo := new(MockRepository)
	mockRepo.On("ActivePatterns", mock.Anything).Return([]string{}, nil)
	mockRepo.On("CreateAntibody", mock.Anything, mock.Anything).Return(nil)
	router := newTestRouter(mockRepo)

	body, _ := json.Marshal(map[string]string{"text": "sudo rm -rf /"})

	t.Run("submit without token is 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/antibodies", bytes.NewReader(body))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("submit with bad token is 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/antibodies", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer wrong")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("submit with valid token creates antibody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/antibodies", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer good-token")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), "Agent-A")
	})

	t.Run("listing needs no token", func(t *testing.T) {
		mockRepo.On("ListAntibodies", mock.Anything, mock.Anything).
			Return([]*models.Antibody{}, 0, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/antibodies", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRouterRouting(t *testing.T) {
	mockRepo := new(MockRepository)
	router := newTestRouter(mockRepo)

	t.Run("healthz", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("method not allowed on detect", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/detect", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("request ID header set", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("match routed through antibody subtree", func(t *testing.T) {
		mockRepo.On("GetByFingerprint", mock.Anything, mock.Anything).
			Return(&models.Antibody{}, nil)

		body, _ := json.Marshal(map[string]string{"text": "probe"})
		req := httptest.NewRequest(http.MethodPost, "/v1/antibodies/match", bytes.NewReader(body))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("pattern enable requires token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/v1/patterns/some-id/enable", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
