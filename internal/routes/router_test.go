package routes

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waste-fleet-monitor/internal/config"
	"waste-fleet-monitor/internal/delivery/http/handler"
	"waste-fleet-monitor/internal/trashbin"
	"waste-fleet-monitor/pkg/utils"
)

const testSecret = "router-secret"

type fakeDB struct{ err error }

func (f fakeDB) Health() error { return f.err }

func newRouter(db HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}
	return SetupRoutes(cfg, Dependencies{
		DB:        db,
		Auth:      handler.NewAuthHandler(nil),
		Trashbins: trashbin.NewHandler(nil),
		Routes:    handler.NewRouteHandler(nil),
		Sensors:   handler.NewSensorHandler(nil),
	})
}

func tokenFor(t *testing.T, role string) string {
	t.Helper()
	token, err := utils.GenerateToken(uuid.New(), uuid.New(), "user", role, testSecret, 1)
	require.NoError(t, err)
	return token
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"healthy", nil, http.StatusOK},
		{"database down", errors.New("connection refused"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newRouter(fakeDB{err: tt.err}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(fakeDB{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestAccessControl(t *testing.T) {
	routeID := uuid.NewString()
	tests := []struct {
		name   string
		method string
		path   string
		role   string
		want   int
	}{
		{"route without token", http.MethodGet, "/api/v1/routes/" + routeID, "", http.StatusUnauthorized},
		{"route as driver", http.MethodGet, "/api/v1/routes/" + routeID, "driver", http.StatusForbidden},
		{"route as trashbin", http.MethodPost, "/api/v1/routes", "trashbin", http.StatusForbidden},
		{"approve as operator", http.MethodPost, "/api/v1/onboarding/" + routeID + "/approve", "operator", http.StatusForbidden},
		{"bin jobs as operator", http.MethodGet, "/api/v1/trashbins/jobs", "operator", http.StatusForbidden},
		{"profile without token", http.MethodGet, "/api/v1/auth/me", "", http.StatusUnauthorized},
		{"bin data without token", http.MethodPost, "/api/v1/trashbins/data", "", http.StatusUnauthorized},
		{"unknown path", http.MethodGet, "/api/v1/shipments", "admin", http.StatusNotFound},
	}

	router := newRouter(fakeDB{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.role != "" {
				req.Header.Set("Authorization", "Bearer "+tokenFor(t, tt.role))
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
