package routing

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainNotification "waste-fleet-monitor/internal/domain/notification"
	"waste-fleet-monitor/internal/domain/route"
	"waste-fleet-monitor/internal/domain/user"
	"waste-fleet-monitor/internal/infrastructure/cache"
	"waste-fleet-monitor/internal/infrastructure/database/memory"
	"waste-fleet-monitor/internal/notification"
)

type fakeDrivers struct {
	mu     sync.Mutex
	online map[uuid.UUID]bool
	sent   map[uuid.UUID][][]byte
}

func newFakeDrivers() *fakeDrivers {
	return &fakeDrivers{online: map[uuid.UUID]bool{}, sent: map[uuid.UUID][][]byte{}}
}

func (d *fakeDrivers) Send(id uuid.UUID, payload []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.online[id] {
		return false
	}
	d.sent[id] = append(d.sent[id], payload)
	return true
}

func (d *fakeDrivers) IsOnline(id uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.online[id]
}

func (d *fakeDrivers) actions(id uuid.UUID) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, p := range d.sent[id] {
		var env struct {
			Action string `json:"action"`
		}
		if json.Unmarshal(p, &env) == nil {
			out = append(out, env.Action)
		}
	}
	return out
}

type fakePush struct {
	users []uuid.UUID
	codes []string
}

func (p *fakePush) Push(_ context.Context, userID uuid.UUID, msg notification.PushMessage) error {
	p.users = append(p.users, userID)
	p.codes = append(p.codes, msg.Data["code"])
	return nil
}

type eventRecorder struct {
	events []notification.Event
}

func (r *eventRecorder) Notify(_ context.Context, ev notification.Event) (int, error) {
	r.events = append(r.events, ev)
	return 1, nil
}

type fixture struct {
	store   *memory.Store
	cache   *cache.RouteStore
	drivers *fakeDrivers
	push    *fakePush
	events  *eventRecorder
	svc     *Service
	company uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	routes, err := cache.NewRouteStore(filepath.Join(t.TempDir(), "routes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { routes.Close() })

	f := &fixture{
		store:   memory.New(),
		cache:   routes,
		drivers: newFakeDrivers(),
		push:    &fakePush{},
		events:  &eventRecorder{},
		company: uuid.New(),
	}
	dispatcher := NewDispatcher(routes, f.drivers, f.push)
	f.svc = NewService(f.store, f.store.Routes(), f.store.Users(), dispatcher, f.events)
	return f
}

func (f *fixture) driver(t *testing.T, name string) uuid.UUID {
	t.Helper()
	u := &user.User{CompanyID: f.company, Email: name + "@example.com", FullName: name, Role: user.RoleDriver, IsActive: true}
	f.store.Users().Add(u)
	return u.ID
}

func points(addresses ...string) []*route.Point {
	out := make([]*route.Point, len(addresses))
	for i, a := range addresses {
		id := uuid.New()
		out[i] = &route.Point{SensorID: &id, Address: a, Latitude: 55.75, Longitude: 37.61}
	}
	return out
}

func (f *fixture) create(t *testing.T, specs ...RouteSpec) []*route.Route {
	t.Helper()
	_, created, err := f.svc.CreateRoutes(context.Background(), f.company, specs)
	require.NoError(t, err)
	return created
}

func (f *fixture) route(t *testing.T, id uuid.UUID) *route.Route {
	t.Helper()
	rt, err := f.store.Routes().GetRoute(context.Background(), id)
	require.NoError(t, err)
	return rt
}

func TestCreateRoutesDeliversToOnlineDriver(t *testing.T) {
	f := newFixture(t)
	driver := f.driver(t, "anna")
	f.drivers.online[driver] = true

	rt := f.create(t, RouteSpec{DriverID: driver, Points: points("Main st 1", "Main st 2")})[0]

	assert.Equal(t, []string{ActionNewRoute}, f.drivers.actions(driver))
	_, err := f.cache.Get(driver)
	assert.ErrorIs(t, err, cache.ErrNotFound)
	assert.Empty(t, f.push.users)

	var cmd NewRouteCommand
	require.NoError(t, json.Unmarshal(f.drivers.sent[driver][0], &cmd))
	assert.Equal(t, rt.ID, cmd.ID)
	require.Len(t, cmd.Points, 2)
	assert.Equal(t, 120, cmd.Points[0].Volume)
}

func TestCreateRoutesCachesForOfflineDriver(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	driver := f.driver(t, "boris")

	rt := f.create(t, RouteSpec{DriverID: driver, Points: points("Main st 1")})[0]

	entry, err := f.cache.Get(driver)
	require.NoError(t, err)
	assert.Equal(t, rt.ID, entry.RouteID)
	assert.Equal(t, []uuid.UUID{driver}, f.push.users)
	assert.Equal(t, []string{NewRoutePushCode}, f.push.codes)

	f.drivers.online[driver] = true
	require.NoError(t, f.svc.DriverConnected(ctx, driver))
	assert.Equal(t, []string{ActionNewRoute}, f.drivers.actions(driver))
	_, err = f.cache.Get(driver)
	assert.ErrorIs(t, err, cache.ErrNotFound)

	require.NoError(t, f.svc.DriverConnected(ctx, driver))
	assert.Len(t, f.drivers.actions(driver), 1)
}

func TestCreateRoutesAbortsPreviousRoute(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	driver := f.driver(t, "anna")

	first := f.create(t, RouteSpec{DriverID: driver, Points: points("Main st 1")})[0]
	require.NoError(t, f.svc.StartRoute(ctx, driver, first.ID))
	second := f.create(t, RouteSpec{DriverID: driver, Points: points("Main st 2")})[0]

	old := f.route(t, first.ID)
	assert.Equal(t, route.StatusAbortedByOperator, old.Status)
	assert.Equal(t, route.PointStatus(route.StatusAbortedByOperator), old.Points[0].Status)

	open, err := f.store.Routes().UnfinishedRoutes(ctx, driver)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)

	batch, err := f.store.Routes().GetBatch(ctx, first.BatchID)
	require.NoError(t, err)
	assert.True(t, batch.IsClosed())

	entry, err := f.cache.Get(driver)
	require.NoError(t, err)
	assert.Equal(t, second.ID, entry.RouteID)
}

func TestCreateRoutesValidation(t *testing.T) {
	f := newFixture(t)
	driver := f.driver(t, "anna")
	id := uuid.New()

	tests := []struct {
		name  string
		specs []RouteSpec
		want  error
	}{
		{"no routes", nil, route.ErrNoPoints},
		{"no points", []RouteSpec{{DriverID: driver}}, route.ErrNoPoints},
		{"point without target", []RouteSpec{{DriverID: driver, Points: []*route.Point{{}}}}, route.ErrPointTarget},
		{"point with two targets", []RouteSpec{{DriverID: driver, Points: []*route.Point{{SensorID: &id, ContainerID: &id}}}}, route.ErrPointTarget},
		{"same driver twice", []RouteSpec{{DriverID: driver, Points: points("a")}, {DriverID: driver, Points: points("b")}}, ErrDuplicateDriver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.CreateRoutes(context.Background(), f.company, tt.specs)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBatchClosesAfterLastDriver(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	anna, boris := f.driver(t, "anna"), f.driver(t, "boris")

	created := f.create(t,
		RouteSpec{DriverID: anna, Points: points("a")},
		RouteSpec{DriverID: boris, Points: points("b")},
	)
	for i, d := range []uuid.UUID{anna, boris} {
		require.NoError(t, f.svc.StartRoute(ctx, d, created[i].ID))
	}

	require.NoError(t, f.svc.CompleteRoute(ctx, anna, created[0].ID, 12.6))
	batch, err := f.store.Routes().GetBatch(ctx, created[0].BatchID)
	require.NoError(t, err)
	assert.False(t, batch.IsClosed())

	require.NoError(t, f.svc.CompleteRoute(ctx, boris, created[1].ID, 3))
	batch, err = f.store.Routes().GetBatch(ctx, created[0].BatchID)
	require.NoError(t, err)
	assert.True(t, batch.IsClosed())

	assignments := f.store.Routes().Assignments(anna)
	require.Len(t, assignments, 1)
	assert.Equal(t, 13, assignments[0].TrackFull)
	assert.NotNil(t, assignments[0].FinishTime)
	assert.Equal(t, route.StatusCompleted, f.route(t, created[0].ID).Status)
}

func TestCollectPoint(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	driver := f.driver(t, "anna")
	rt := f.create(t, RouteSpec{DriverID: driver, Points: points("Main st 1", "Main st 2")})[0]
	require.NoError(t, f.svc.StartRoute(ctx, driver, rt.ID))

	fullness := 80
	require.NoError(t, f.svc.CollectPoint(ctx, driver, Collection{
		RouteID: rt.ID, DeviceID: *rt.Points[0].SensorID, UnloadedOK: true, Fullness: &fullness, Track: 4.4,
	}))
	assert.Empty(t, f.events.events)

	require.NoError(t, f.svc.CollectPoint(ctx, driver, Collection{
		RouteID: rt.ID, DeviceID: *rt.Points[1].SensorID, Comment: "blocked by a car", Track: 7.5,
	}))

	stored := f.route(t, rt.ID)
	assert.Equal(t, route.PointCollected, stored.Points[0].Status)
	assert.Equal(t, 80, *stored.Points[0].Fullness)
	assert.Equal(t, route.PointError, stored.Points[1].Status)
	assert.Equal(t, "blocked by a car", stored.Points[1].Comment)
	assert.Equal(t, 8, f.store.Routes().Assignments(driver)[0].Track)

	require.Len(t, f.events.events, 1)
	ev := f.events.events[0]
	assert.Equal(t, domainNotification.RoutePointCollectionIssue, ev.Kind)
	assert.Equal(t, domainNotification.PriorityMedium, ev.Priority)
	assert.Equal(t, "blocked by a car", ev.Params[notification.ParamComment])
	assert.Equal(t, "Main st 2", ev.Params[notification.ParamAddress])
	assert.Equal(t, "anna", ev.Params[notification.ParamDriver])
}

func TestCollectPointWithoutAssignment(t *testing.T) {
	tests := []struct {
		name       string
		unloadedOK bool
		want       route.PointStatus
		events     int
	}{
		{"collected", true, route.PointCollected, 0},
		{"failed", false, route.PointError, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			driver := f.driver(t, "boris")
			rt := f.create(t, RouteSpec{DriverID: driver, Points: points("Park ave 3")})[0]

			require.NoError(t, f.svc.CollectPoint(ctx, driver, Collection{
				RouteID: rt.ID, DeviceID: *rt.Points[0].SensorID, UnloadedOK: tt.unloadedOK, Track: 2.2,
			}))

			assert.Equal(t, tt.want, f.route(t, rt.ID).Points[0].Status)
			assert.Empty(t, f.store.Routes().Assignments(driver))
			assert.Len(t, f.events.events, tt.events)
		})
	}
}

func TestDriverClosures(t *testing.T) {
	tests := []struct {
		name     string
		close    func(ctx context.Context, s *Service, driver, routeID uuid.UUID) error
		status   route.Status
		kind     domainNotification.Kind
		priority domainNotification.Priority
	}{
		{
			name:   "moving home",
			close:  func(ctx context.Context, s *Service, d, r uuid.UUID) error { return s.MovingHome(ctx, d, r, 2) },
			status: route.StatusMovingHome,
		},
		{
			name:     "complete",
			close:    func(ctx context.Context, s *Service, d, r uuid.UUID) error { return s.CompleteRoute(ctx, d, r, 2) },
			status:   route.StatusCompleted,
			kind:     domainNotification.RouteCompleted,
			priority: domainNotification.PriorityLow,
		},
		{
			name:     "abort by driver",
			close:    func(ctx context.Context, s *Service, d, r uuid.UUID) error { return s.AbortByDriver(ctx, d, r) },
			status:   route.StatusAbortedByDriver,
			kind:     domainNotification.RouteAbortedByUser,
			priority: domainNotification.PriorityMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			driver := f.driver(t, "anna")
			rt := f.create(t, RouteSpec{DriverID: driver, Points: points("a", "b")})[0]
			require.NoError(t, f.svc.StartRoute(ctx, driver, rt.ID))

			require.NoError(t, tt.close(ctx, f.svc, driver, rt.ID))

			stored := f.route(t, rt.ID)
			assert.Equal(t, tt.status, stored.Status)
			for _, p := range stored.Points {
				assert.Equal(t, route.ClosingPointStatus(tt.status), p.Status)
			}
			if tt.kind == "" {
				assert.Empty(t, f.events.events)
				return
			}
			require.Len(t, f.events.events, 1)
			assert.Equal(t, tt.kind, f.events.events[0].Kind)
			assert.Equal(t, tt.priority, f.events.events[0].Priority)
			assert.Equal(t, rt.ID.String(), f.events.events[0].Params[notification.ParamRouteID])
		})
	}
}

func TestStartRouteRejectsOtherDriver(t *testing.T) {
	f := newFixture(t)
	anna, boris := f.driver(t, "anna"), f.driver(t, "boris")
	rt := f.create(t, RouteSpec{DriverID: anna, Points: points("a")})[0]

	err := f.svc.StartRoute(context.Background(), boris, rt.ID)
	assert.ErrorIs(t, err, route.ErrNotRouteDriver)
}

func TestAbortByOperator(t *testing.T) {
	ctx := context.Background()

	t.Run("offline driver loses cached route", func(t *testing.T) {
		f := newFixture(t)
		driver := f.driver(t, "anna")
		rt := f.create(t, RouteSpec{DriverID: driver, Points: points("a")})[0]

		require.NoError(t, f.svc.AbortByOperator(ctx, f.company, rt.ID))
		assert.Equal(t, route.StatusAbortedByOperator, f.route(t, rt.ID).Status)
		_, err := f.cache.Get(driver)
		assert.ErrorIs(t, err, cache.ErrNotFound)

		err = f.svc.AbortByOperator(ctx, f.company, rt.ID)
		assert.ErrorIs(t, err, route.ErrRouteFinished)
	})

	t.Run("online driver is told", func(t *testing.T) {
		f := newFixture(t)
		driver := f.driver(t, "anna")
		f.drivers.online[driver] = true
		rt := f.create(t, RouteSpec{DriverID: driver, Points: points("a")})[0]

		require.NoError(t, f.svc.AbortByOperator(ctx, f.company, rt.ID))
		assert.Equal(t, []string{ActionNewRoute, ActionAbortRoute}, f.drivers.actions(driver))
	})

	t.Run("other company", func(t *testing.T) {
		f := newFixture(t)
		rt := f.create(t, RouteSpec{DriverID: f.driver(t, "anna"), Points: points("a")})[0]
		err := f.svc.AbortByOperator(ctx, uuid.New(), rt.ID)
		assert.ErrorIs(t, err, route.ErrRouteNotFound)
	})
}

func TestResend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	driver := f.driver(t, "anna")
	rt := f.create(t, RouteSpec{DriverID: driver, Points: points("a")})[0]

	f.drivers.online[driver] = true
	delivered, err := f.svc.Resend(ctx, f.company, rt.ID)
	require.NoError(t, err)
	assert.True(t, delivered)

	require.NoError(t, f.svc.StartRoute(ctx, driver, rt.ID))
	_, err = f.svc.Resend(ctx, f.company, rt.ID)
	assert.ErrorIs(t, err, route.ErrRouteNotNew)
}

func TestUpdatePushToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	driver := f.driver(t, "anna")

	require.NoError(t, f.svc.UpdatePushToken(ctx, driver, "fcm-token"))
	assert.Error(t, f.svc.UpdatePushToken(ctx, driver, ""))

	tokens, err := f.store.Routes().PushTokens(ctx, []uuid.UUID{driver})
	require.NoError(t, err)
	assert.Equal(t, []string{"fcm-token"}, tokens[driver])
}
