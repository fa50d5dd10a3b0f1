package trashbin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/job"
	"waste-fleet-monitor/internal/middleware"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(f.svc).RegisterRoutes(router.Group("/api/v1"), middleware.AuthMiddleware("secret"))
	return router
}

func do(router http.Handler, method, path, token string, body []byte) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func login(t *testing.T, router http.Handler) string {
	t.Helper()
	w, env := do(router, http.MethodPost, "/api/v1/trashbins/token", "", []byte(`{"serial":"M-1","password":"bin-pass"}`))
	require.Equal(t, http.StatusOK, w.Code)

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHandlerToken(t *testing.T) {
	router := newRouter(newFixture(t, true))

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty body", ``, http.StatusUnauthorized},
		{"missing password", `{"serial":"M-1"}`, http.StatusUnauthorized},
		{"wrong password", `{"serial":"M-1","password":"x"}`, http.StatusUnauthorized},
		{"valid", `{"serial":"M-1","password":"bin-pass"}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := do(router, http.MethodPost, "/api/v1/trashbins/token", "", []byte(tt.body))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestHandlerData(t *testing.T) {
	f := newFixture(t, true)
	router := newRouter(f)
	token := login(t, router)

	w, _ := do(router, http.MethodPost, "/api/v1/trashbins/data", "", []byte(`{}`))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := do(router, http.MethodPost, "/api/v1/trashbins/data", token, []byte(`{"version":1,"serial":"M-1","data":[{"binFilling":33}]}`))
	require.Equal(t, http.StatusOK, w.Code, env.Error)
	assert.Equal(t, 33, f.bin(t, f.master.ID).Fullness)

	w, env = do(router, http.MethodPost, "/api/v1/trashbins/data", token, []byte(`{"serial":"M-1","data":[]}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Mandatory 'version' field is missing", env.Error)

	w, _ = do(router, http.MethodPost, "/api/v1/trashbins/data", token, []byte(`{"version":1,"serial":"S-1","data":[]}`))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = do(router, http.MethodPost, "/api/v1/trashbins/data", token, []byte(strings.Repeat(" ", MaxBodySize+1)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHandlerJobs(t *testing.T) {
	f := newFixture(t, true)
	router := newRouter(f)
	token := login(t, router)

	j := &job.Job{DeviceKind: device.KindTrashbin, DeviceID: f.master.ID, Type: job.TypePressControl, Payload: `{"force":2}`}
	require.NoError(t, f.store.Jobs().Create(context.Background(), j))

	w, env := do(router, http.MethodGet, "/api/v1/trashbins/jobs", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Jobs []jobResponse `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed.Jobs, 1)
	assert.Equal(t, jobResponse{ID: j.ID.String(), Type: "PRESS_CONTROL", Payload: `{"force":2}`}, listed.Jobs[0])

	w, _ = do(router, http.MethodPost, "/api/v1/trashbins/jobs", token, []byte(`{"jobs":[{"id":"`+j.ID.String()+`","status":"unknown"}]}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(router, http.MethodPost, "/api/v1/trashbins/jobs", token, []byte(`{"jobs":[{"id":"`+j.ID.String()+`","status":"FAILURE","description":"jammed"}]}`))
	require.Equal(t, http.StatusOK, w.Code)

	done, err := f.store.Jobs().GetByID(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StatusFailure, done.Status)
}

func TestHandlerRejectsOtherRoles(t *testing.T) {
	f := newFixture(t, true)
	router := newRouter(f)

	w, _ := do(router, http.MethodGet, "/api/v1/trashbins/jobs", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
