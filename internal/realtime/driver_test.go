package realtime

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waste-fleet-monitor/internal/domain/route"
	"waste-fleet-monitor/internal/routing"
)

type call struct {
	op      string
	driver  uuid.UUID
	routeID uuid.UUID
	track   float64
	token   string
	coll    routing.Collection
}

type fakeRoutes struct {
	calls []call
	err   error
}

func (f *fakeRoutes) record(c call) error {
	f.calls = append(f.calls, c)
	return f.err
}

func (f *fakeRoutes) StartRoute(_ context.Context, d, r uuid.UUID) error {
	return f.record(call{op: "start", driver: d, routeID: r})
}

func (f *fakeRoutes) CollectPoint(_ context.Context, d uuid.UUID, c routing.Collection) error {
	return f.record(call{op: "collect", driver: d, routeID: c.RouteID, coll: c})
}

func (f *fakeRoutes) MovingHome(_ context.Context, d, r uuid.UUID, track float64) error {
	return f.record(call{op: "moving_home", driver: d, routeID: r, track: track})
}

func (f *fakeRoutes) CompleteRoute(_ context.Context, d, r uuid.UUID, track float64) error {
	return f.record(call{op: "complete", driver: d, routeID: r, track: track})
}

func (f *fakeRoutes) AbortByDriver(_ context.Context, d, r uuid.UUID) error {
	return f.record(call{op: "abort", driver: d, routeID: r})
}

func (f *fakeRoutes) UpdatePushToken(_ context.Context, d uuid.UUID, token string) error {
	return f.record(call{op: "token", driver: d, token: token})
}

func TestDriverHandlerDispatch(t *testing.T) {
	driver, routeID := uuid.New(), uuid.New()

	tests := []struct {
		name  string
		frame string
		want  call
	}{
		{"start", `{"action":"start_route","route_id":"` + routeID.String() + `"}`, call{op: "start", driver: driver, routeID: routeID}},
		{"stop", `{"action":"route_stop","route_id":"` + routeID.String() + `"}`, call{op: "abort", driver: driver, routeID: routeID}},
		{"moving home", `{"action":"moving_home","route_id":"` + routeID.String() + `","track":10.4}`, call{op: "moving_home", driver: driver, routeID: routeID, track: 10.4}},
		{"complete", `{"action":"route_complete","route_id":"` + routeID.String() + `","track":21}`, call{op: "complete", driver: driver, routeID: routeID, track: 21}},
		{"token", `{"action":"update_token","token":"fcm-1"}`, call{op: "token", driver: driver, token: "fcm-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			routes := &fakeRoutes{}
			h := NewDriverHandler(routes)

			require.NoError(t, h.HandleMessage(context.Background(), driver, []byte(tt.frame)))
			require.Len(t, routes.calls, 1)
			assert.Equal(t, tt.want, routes.calls[0])
		})
	}
}

func TestDriverHandlerCollection(t *testing.T) {
	routes := &fakeRoutes{}
	h := NewDriverHandler(routes)
	driver, routeID, container := uuid.New(), uuid.New(), uuid.New()

	frame := `{"action":"collection","route_id":"` + routeID.String() + `","container_id":"` + container.String() +
		`","unloaded_ok":false,"comment":"locked gate","fullness":40,"track":3.2}`
	require.NoError(t, h.HandleMessage(context.Background(), driver, []byte(frame)))

	require.Len(t, routes.calls, 1)
	c := routes.calls[0].coll
	assert.Equal(t, routeID, c.RouteID)
	assert.Equal(t, container, c.DeviceID)
	assert.False(t, c.UnloadedOK)
	assert.Equal(t, "locked gate", c.Comment)
	require.NotNil(t, c.Fullness)
	assert.Equal(t, 40, *c.Fullness)
	assert.Equal(t, 3.2, c.Track)
}

func TestDriverHandlerUnknownActionKeepsConnection(t *testing.T) {
	routes := &fakeRoutes{}
	h := NewDriverHandler(routes)

	assert.NoError(t, h.HandleMessage(context.Background(), uuid.New(), []byte(`{"action":"dance"}`)))
	assert.NoError(t, h.HandleMessage(context.Background(), uuid.New(), []byte(`{}`)))
	assert.Empty(t, routes.calls)
}

func TestDriverHandlerFailures(t *testing.T) {
	h := NewDriverHandler(&fakeRoutes{err: route.ErrNotRouteDriver})

	err := h.HandleMessage(context.Background(), uuid.New(), []byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedFrame)

	err = h.HandleMessage(context.Background(), uuid.New(), []byte(`{"action":"start_route","route_id":"`+uuid.NewString()+`"}`))
	assert.True(t, errors.Is(err, route.ErrNotRouteDriver))
}
