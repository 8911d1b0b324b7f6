package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/maintenance-pm/internal/auth"
	"github.com/ukydev/maintenance-pm/internal/models"
)

func newTestMiddleware() (*auth.Service, *AuthMiddleware) {
	authService := auth.NewService("test-secret", time.Hour)
	logger, _ := test.NewNullLogger()
	return authService, NewAuthMiddleware(authService, logger)
}

func tokenFor(t *testing.T, service *auth.Service, role models.Role) string {
	t.Helper()
	token, err := service.GenerateToken(&models.Profile{ID: "u-" + string(role), Role: role, WarehouseID: "w1"})
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	authService, middleware := newTestMiddleware()

	t.Run("valid token", func(t *testing.T) {
		token := tokenFor(t, authService, models.RoleSupervisor)

		req := httptest.NewRequest("GET", "/api/pm-compliance", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
			claims, ok := GetUserFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, "u-supervisor", claims.UserID)
			assert.Equal(t, "w1", claims.WarehouseID)
			assert.Equal(t, models.RoleSupervisor, claims.Role)
		})

		middleware.Authenticate(handler).ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	tests := []struct {
		name   string
		header string
	}{
		{"missing authorization header", ""},
		{"invalid token", "Bearer invalid-token"},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/pm-compliance", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handlerCalled := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
			})

			middleware.Authenticate(handler).ServeHTTP(w, req)
			assert.False(t, handlerCalled)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	t.Run("health skips auth", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		middleware.Authenticate(handler).ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAuthMiddleware_RequireRole(t *testing.T) {
	authService, middleware := newTestMiddleware()

	tests := []struct {
		name    string
		role    models.Role
		allowed []models.Role
		want    int
	}{
		{"admin always passes", models.RoleAdmin, []models.Role{models.RoleManager}, http.StatusOK},
		{"listed role passes", models.RoleSupervisor, []models.Role{models.RoleSupervisor, models.RoleManager}, http.StatusOK},
		{"second listed role passes", models.RoleManager, []models.Role{models.RoleSupervisor, models.RoleManager}, http.StatusOK},
		{"technician is refused", models.RoleTechnician, []models.Role{models.RoleSupervisor, models.RoleManager}, http.StatusForbidden},
		{"manager cannot act as admin", models.RoleManager, []models.Role{models.RoleAdmin}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/escalations/manual", nil)
			req.Header.Set("Authorization", "Bearer "+tokenFor(t, authService, tt.role))
			w := httptest.NewRecorder()

			handlerCalled := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
			})

			middleware.Authenticate(middleware.RequireRole(tt.allowed...)(handler)).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.want == http.StatusOK, handlerCalled)
		})
	}

	t.Run("no claims in context", func(t *testing.T) {
		w := httptest.NewRecorder()
		middleware.RequireRole(models.RoleManager)(http.NotFoundHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/api/policies", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthMiddleware_RequirePermission(t *testing.T) {
	authService, middleware := newTestMiddleware()

	tests := []struct {
		name   string
		role   models.Role
		action string
		want   int
	}{
		{"admin manages profiles", models.RoleAdmin, "manage_profiles", http.StatusOK},
		{"supervisor runs the scheduler", models.RoleSupervisor, "run_pm_scheduler", http.StatusOK},
		{"technician views compliance", models.RoleTechnician, "view_compliance", http.StatusOK},
		{"technician cannot run the scheduler", models.RoleTechnician, "run_pm_scheduler", http.StatusForbidden},
		{"requester cannot view compliance", models.RoleRequester, "view_compliance", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/pm-compliance", nil)
			req.Header.Set("Authorization", "Bearer "+tokenFor(t, authService, tt.role))
			w := httptest.NewRecorder()

			handlerCalled := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
			})

			middleware.Authenticate(middleware.RequirePermission(tt.action)(handler)).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.want == http.StatusOK, handlerCalled)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("rate limit not exceeded", func(t *testing.T) {
		limiter := NewRateLimitMiddleware(5, time.Minute)
		req := httptest.NewRequest("GET", "/api/test", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		limiter.RateLimit(handler).ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rate limit exceeded then window slides", func(t *testing.T) {
		limiter := NewRateLimitMiddleware(1, time.Minute)
		now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
		limiter.now = func() time.Time { return now }

		req := httptest.NewRequest("GET", "/api/test", nil)
		req.RemoteAddr = "192.168.1.2:12345"
		handler := limiter.RateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		other := httptest.NewRequest("GET", "/api/test", nil)
		other.Header.Set("X-Forwarded-For", "10.0.0.9, 192.168.1.2")
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, other)
		assert.Equal(t, http.StatusOK, w.Code)

		now = now.Add(61 * time.Second)
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestGetUserFromContext(t *testing.T) {
	claims := &models.Claims{
		UserID: "test-id",
		Role:   models.RoleAdmin,
	}

	ctx := context.WithValue(context.Background(), UserContextKey, claims)

	retrievedClaims, ok := GetUserFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, claims.UserID, retrievedClaims.UserID)
	assert.Equal(t, claims.Role, retrievedClaims.Role)

	// Test with no user in context
	_, ok = GetUserFromContext(context.Background())
	assert.False(t, ok)
}
