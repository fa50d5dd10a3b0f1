package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainDevice "waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/profile"
	"waste-fleet-monitor/internal/domain/user"
	"waste-fleet-monitor/internal/infrastructure/cache"
	"waste-fleet-monitor/internal/infrastructure/database/memory"
	"waste-fleet-monitor/internal/ingestion"
	"waste-fleet-monitor/internal/jobs"
	"waste-fleet-monitor/internal/middleware"
	"waste-fleet-monitor/internal/notification"
	"waste-fleet-monitor/internal/routing"
	deviceUsecase "waste-fleet-monitor/internal/usecase/device"
	routeUsecase "waste-fleet-monitor/internal/usecase/route"
)

type offlineDrivers struct{}

func (offlineDrivers) Send(uuid.UUID, []byte) bool { return false }
func (offlineDrivers) IsOnline(uuid.UUID) bool { return false }

type noPush struct{}

func (noPush) Push(context.Context, uuid.UUID, notification.PushMessage) error { return nil }

type noEvents struct{}

func (noEvents) Notify(context.Context, notification.Event) (int, error) { return 0, nil }

type env struct {
	store     *memory.Store
	router    *gin.Engine
	companyID uuid.UUID
	driver    *user.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.New()
	e := &env{store: store, companyID: uuid.New()}

	e.driver = &user.User{CompanyID: e.companyID, FullName: "Dana Driver", Role: user.RoleDriver, IsActive: true}
	store.Users().Add(e.driver)

	routeCache, err := cache.NewRouteStore(filepath.Join(t.TempDir(), "routes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { routeCache.Close() })

	routes := routing.NewService(store, store.Routes(), store.Users(),
		routing.NewDispatcher(routeCache, offlineDrivers{}, noPush{}), noEvents{})
	reconciler := jobs.NewReconciler(store, store.Jobs(), 0)
	sensors := deviceUsecase.NewService(store, store.Sensors(), store.Profiles(),
		jobs.NewCommander(store, store.Jobs(), 0),
		reconciler,
		jobs.NewPropagator(store.Sensors(), reconciler, 0),
		ingestion.NewOnboarding(store, store.Onboarding(), store.Sensors(), uuid.New()),
	)

	e.router = gin.New()
	api := e.router.Group("/api/v1", func(c *gin.Context) {
		c.Set(middleware.CompanyIDKey, e.companyID)
		c.Next()
	})
	NewRouteHandler(routeUsecase.NewService(routes, store.Users())).RegisterRoutes(api)
	sensorHandler := NewSensorHandler(sensors)
	sensorHandler.RegisterRoutes(api)
	sensorHandler.RegisterAdminRoutes(api)
	return e
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (e *env) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var out envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w.Code, out
}

func TestRouteEndpoints(t *testing.T) {
	e := newEnv(t)
	container := uuid.New()

	create := gin.H{"routes": []gin.H{{
		"driver_id": e.driver.ID,
		"points":    []gin.H{{"container_id": container, "address": "Main st. 1", "latitude": 55.7, "longitude": 37.6}},
	}}}
	code, resp := e.do(t, http.MethodPost, "/api/v1/routes", create)
	require.Equal(t, http.StatusCreated, code, resp.Error)

	var batch routeUsecase.BatchResponse
	require.NoError(t, json.Unmarshal(resp.Data, &batch))
	require.Len(t, batch.Routes, 1)
	routeID := batch.Routes[0].ID
	assert.Equal(t, "new", batch.Routes[0].Status)
	assert.Equal(t, 120, batch.Routes[0].Points[0].Volume)

	code, _ = e.do(t, http.MethodGet, "/api/v1/routes/"+routeID.String(), nil)
	assert.Equal(t, http.StatusOK, code)

	code, resp = e.do(t, http.MethodPost, "/api/v1/routes/"+routeID.String()+"/resend", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"delivered":false}`, string(resp.Data))

	code, _ = e.do(t, http.MethodPost, "/api/v1/routes/"+routeID.String()+"/abort", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = e.do(t, http.MethodPost, "/api/v1/routes/"+routeID.String()+"/abort", nil)
	assert.Equal(t, http.StatusConflict, code)
	code, _ = e.do(t, http.MethodPost, "/api/v1/routes/"+routeID.String()+"/resend", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = e.do(t, http.MethodGet, "/api/v1/routes/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = e.do(t, http.MethodGet, "/api/v1/routes/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCreateRoutesValidation(t *testing.T) {
	e := newEnv(t)
	operator := &user.User{CompanyID: e.companyID, Role: user.RoleOperator, IsActive: true}
	e.store.Users().Add(operator)
	point := gin.H{"container_id": uuid.New()}

	tests := []struct {
		name string
		body any
		want int
	}{
		{"no routes", gin.H{"routes": []gin.H{}}, http.StatusBadRequest},
		{"unknown driver", gin.H{"routes": []gin.H{{"driver_id": uuid.New(), "points": []gin.H{point}}}}, http.StatusBadRequest},
		{"not a driver", gin.H{"routes": []gin.H{{"driver_id": operator.ID, "points": []gin.H{point}}}}, http.StatusBadRequest},
		{"point without target", gin.H{"routes": []gin.H{{"driver_id": e.driver.ID, "points": []gin.H{{"address": "x"}}}}}, http.StatusBadRequest},
		{"bad latitude", gin.H{"routes": []gin.H{{"driver_id": e.driver.ID, "points": []gin.H{{"container_id": uuid.New(), "latitude": 91}}}}}, http.StatusBadRequest},
		{"duplicate driver", gin.H{"routes": []gin.H{
			{"driver_id": e.driver.ID, "points": []gin.H{point}},
			{"driver_id": e.driver.ID, "points": []gin.H{point}},
		}}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := e.do(t, http.MethodPost, "/api/v1/routes", tt.body)
			assert.Equal(t, tt.want, code, resp.Error)
			assert.False(t, resp.Success)
		})
	}
}

func TestSensorEndpoints(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p := profile.New("district")
	p.CompanyID = &e.companyID
	require.NoError(t, e.store.Profiles().Create(ctx, p))
	shared := profile.New("shared")
	require.NoError(t, e.store.Profiles().Create(ctx, shared))

	sensor := &domainDevice.Sensor{ID: uuid.New(), CompanyID: e.companyID, SerialNumber: "BWSF2G-000001", HardwareIdentity: "hw-1", ProfileID: &p.ID, Profile: p.Clone()}
	require.NoError(t, e.store.Sensors().Create(ctx, sensor))
	jobsPath := "/api/v1/sensors/" + sensor.ID.String() + "/jobs"

	code, _ := e.do(t, http.MethodPost, jobsPath, gin.H{"type": "GET_LOCATION"})
	assert.Equal(t, http.StatusCreated, code)
	code, _ = e.do(t, http.MethodPost, jobsPath, gin.H{"type": "GET_LOCATION"})
	assert.Equal(t, http.StatusOK, code)
	code, _ = e.do(t, http.MethodPost, jobsPath, gin.H{"type": "GET_PHONE_NUMBER"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = e.do(t, http.MethodPost, "/api/v1/sensors/"+uuid.NewString()+"/jobs", gin.H{"type": "ORIENT"})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = e.do(t, http.MethodPost, "/api/v1/sensors/"+sensor.ID.String()+"/fetch", gin.H{"fields": []string{"gps_timeout"}})
	assert.Equal(t, http.StatusAccepted, code)

	code, resp := e.do(t, http.MethodPut, "/api/v1/profiles/"+p.ID.String(), gin.H{"values": gin.H{"gps_timeout": "90"}})
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Contains(t, string(resp.Data), `"sensors":1`)

	code, _ = e.do(t, http.MethodPut, "/api/v1/profiles/"+shared.ID.String(), gin.H{"values": gin.H{"gps_timeout": "90"}})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestApproveOnboardingEndpoint(t *testing.T) {
	e := newEnv(t)
	_, err := e.store.Onboarding().CreateIfAbsent(context.Background(), "hw-new")
	require.NoError(t, err)
	requestID := e.store.Onboarding().All()[0].ID.String()

	body := gin.H{"install_type": "FRONT", "network_type": "2G"}
	code, resp := e.do(t, http.MethodPost, "/api/v1/onboarding/"+requestID+"/approve", body)
	require.Equal(t, http.StatusCreated, code, resp.Error)
	assert.Contains(t, string(resp.Data), `"hardware_identity":"hw-new"`)

	code, _ = e.do(t, http.MethodPost, "/api/v1/onboarding/"+requestID+"/approve", body)
	assert.Equal(t, http.StatusConflict, code)
	code, _ = e.do(t, http.MethodPost, "/api/v1/onboarding/"+uuid.NewString()+"/approve", body)
	assert.Equal(t, http.StatusNotFound, code)
}
