package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waste-fleet-monitor/internal/config"
	"waste-fleet-monitor/pkg/utils"
)

const testSecret = "middleware-secret"

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":    GetUserID(c).String(),
			"company_id": GetCompanyID(c).String(),
			"request_id": GetRequestID(c),
		})
	})
	router.Any("/probe", handlers...)
	return router
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	userID, companyID := uuid.New(), uuid.New()
	token, err := utils.GenerateToken(userID, companyID, "ops", "operator", testSecret, 1)
	require.NoError(t, err)
	foreign, err := utils.GenerateToken(userID, companyID, "ops", "operator", "other-secret", 1)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"unknown scheme", "Basic " + token, http.StatusUnauthorized},
		{"no token", "Bearer", http.StatusUnauthorized},
		{"foreign signature", "Bearer " + foreign, http.StatusUnauthorized},
		{"bearer", "Bearer " + token, http.StatusOK},
		{"token scheme", "Token " + token, http.StatusOK},
	}

	router := newEngine(AuthMiddleware(testSecret))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/probe", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(router, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Contains(t, w.Body.String(), userID.String())
				assert.Contains(t, w.Body.String(), companyID.String())
			}
		})
	}
}

func TestRoleMiddleware(t *testing.T) {
	tests := []struct {
		role    string
		handler gin.HandlerFunc
		want    int
	}{
		{"admin", OperatorOnly(), http.StatusOK},
		{"operator", OperatorOnly(), http.StatusOK},
		{"driver", OperatorOnly(), http.StatusForbidden},
		{"operator", AdminOnly(), http.StatusForbidden},
		{"trashbin", TrashbinOnly(), http.StatusOK},
		{"admin", TrashbinOnly(), http.StatusForbidden},
	}

	for _, tt := range tests {
		token, err := utils.GenerateToken(uuid.New(), uuid.New(), "x", tt.role, testSecret, 1)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := serve(newEngine(AuthMiddleware(testSecret), tt.handler), req)
		assert.Equal(t, tt.want, w.Code, "role %s", tt.role)
	}

	w := serve(newEngine(AdminOnly()), httptest.NewRequest(http.MethodGet, "/probe", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	router := newEngine(RequestIDMiddleware())

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := serve(router, req)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	assert.Contains(t, w.Body.String(), `"request_id":"req-42"`)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/probe", nil))
	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestRequestSizeLimitMiddleware(t *testing.T) {
	router := newEngine(RequestSizeLimitMiddleware(8))

	w := serve(router, httptest.NewRequest(http.MethodPost, "/probe", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = serve(router, httptest.NewRequest(http.MethodPost, "/probe", strings.NewReader("0123")))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)
	router := newEngine(limiter.Middleware())

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = serve(router, httptest.NewRequest(http.MethodGet, "/probe", nil)).Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestSecurityAndCORSHeaders(t *testing.T) {
	router := newEngine(SecurityHeadersMiddleware(), CORSMiddleware(&config.CORSConfig{
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Authorization"},
	}))

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Origin", "https://dispatch.example.com")
	w := serve(router, req)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggingMiddlewarePassesThrough(t *testing.T) {
	w := serve(newEngine(RequestIDMiddleware(), LoggingMiddleware()), httptest.NewRequest(http.MethodGet, "/probe", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRedactQuery(t *testing.T) {
	assert.Equal(t, "", redactQuery(""))
	assert.Equal(t, "page=2", redactQuery("page=2"))
	assert.Equal(t, "page=2&token=REDACTED", redactQuery("token=abc.def&page=2"))
}
