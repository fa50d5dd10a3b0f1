package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"waste-fleet-monitor/internal/domain/route"
)

type RouteRepository struct{ s *Store }

func copyRoute(rt *route.Route) *route.Route {
	c := *rt
	c.Points = make([]*route.Point, len(rt.Points))
	for i, p := range rt.Points {
		c.Points[i] = copyPoint(p)
	}
	return &c
}

func copyPoint(p *route.Point) *route.Point {
	c := *p
	if p.UpdatedAt != nil {
		at := *p.UpdatedAt
		c.UpdatedAt = &at
	}
	if p.Fullness != nil {
		f := *p.Fullness
		c.Fullness = &f
	}
	return &c
}

func (r *RouteRepository) CreateBatch(_ context.Context, b *route.Batch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	c := *b
	r.s.batches[b.ID] = &c
	return nil
}

func (r *RouteRepository) GetBatch(_ context.Context, id uuid.UUID) (*route.Batch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.batches[id]
	if !ok {
		return nil, route.ErrRouteNotFound
	}
	c := *b
	return &c, nil
}

func (r *RouteRepository) CreateRoute(_ context.Context, rt *route.Route) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rt.ID == uuid.Nil {
		rt.ID = uuid.New()
	}
	if rt.CreatedAt.IsZero() {
		rt.CreatedAt = time.Now().UTC()
	}
	for _, p := range rt.Points {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.Status == "" {
			p.Status = route.PointNotCollected
		}
		p.RouteID = rt.ID
		p.BatchID = rt.BatchID
		p.DriverID = rt.DriverID
		p.CreatedAt = rt.CreatedAt
	}
	r.s.routes = append(r.s.routes, copyRoute(rt))
	return nil
}

func (r *RouteRepository) find(id uuid.UUID) *route.Route {
	for _, rt := range r.s.routes {
		if rt.ID == id {
			return rt
		}
	}
	return nil
}

func (r *RouteRepository) GetRoute(_ context.Context, id uuid.UUID) (*route.Route, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rt := r.find(id)
	if rt == nil {
		return nil, route.ErrRouteNotFound
	}
	return copyRoute(rt), nil
}

func (r *RouteRepository) UpdateRouteStatus(_ context.Context, id uuid.UUID, status route.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rt := r.find(id)
	if rt == nil {
		return route.ErrRouteNotFound
	}
	rt.Status = status
	return nil
}

func (r *RouteRepository) UnfinishedRoutes(_ context.Context, driverID uuid.UUID) ([]*route.Route, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*route.Route
	for _, rt := range r.s.routes {
		if rt.DriverID == driverID && !rt.Status.IsFinished() {
			out = append(out, copyRoute(rt))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *RouteRepository) FinishAssignments(_ context.Context, driverID uuid.UUID, routeID *uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.assignments {
		if a.DriverID != driverID || a.FinishTime != nil {
			continue
		}
		if routeID != nil && a.RouteID != *routeID {
			continue
		}
		finished := at
		a.FinishTime = &finished
		a.IsActive = false
	}
	return nil
}

func (r *RouteRepository) ClosePoints(_ context.Context, driverID uuid.UUID, status route.PointStatus, routeID *uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rt := range r.s.routes {
		if routeID != nil && rt.ID != *routeID {
			continue
		}
		for _, p := range rt.Points {
			if p.DriverID != driverID || p.UpdatedAt != nil {
				continue
			}
			stamped := at
			p.Status = status
			p.UpdatedAt = &stamped
		}
	}
	return nil
}

func (r *RouteRepository) OpenBatchesOfDriver(_ context.Context, driverID uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, rt := range r.s.routes {
		if rt.DriverID != driverID || seen[rt.BatchID] {
			continue
		}
		if b, ok := r.s.batches[rt.BatchID]; ok && !b.IsClosed() {
			seen[rt.BatchID] = true
			ids = append(ids, rt.BatchID)
		}
	}
	return ids, nil
}

func (r *RouteRepository) CountUnfinishedAssignments(_ context.Context, batchID, exceptDriverID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, a := range r.s.assignments {
		if a.BatchID == batchID && a.DriverID != exceptDriverID && a.FinishTime == nil {
			n++
		}
	}
	return n, nil
}

func (r *RouteRepository) FinishBatch(_ context.Context, batchID uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b, ok := r.s.batches[batchID]; ok && b.FinishTime == nil {
		finished := at
		b.FinishTime = &finished
	}
	return nil
}

func (r *RouteRepository) StartAssignment(_ context.Context, rt *route.Route, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	started := at
	for _, a := range r.s.assignments {
		if a.RouteID == rt.ID && a.DriverID == rt.DriverID {
			a.StartTime = &started
			a.IsActive = true
			return nil
		}
	}
	r.s.assignments = append(r.s.assignments, &route.Assignment{
		ID:        uuid.New(),
		BatchID:   rt.BatchID,
		RouteID:   rt.ID,
		DriverID:  rt.DriverID,
		CompanyID: rt.CompanyID,
		IsActive:  true,
		StartTime: &started,
	})
	return nil
}

func (r *RouteRepository) UpdateTrack(_ context.Context, routeID, driverID uuid.UUID, track int, full bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.assignments {
		if a.RouteID == routeID && a.DriverID == driverID {
			if full {
				a.TrackFull = track
			} else {
				a.Track = track
			}
			return nil
		}
	}
	return route.ErrAssignmentNotFound
}

func (r *RouteRepository) CollectPoints(_ context.Context, driverID, routeID, deviceID uuid.UUID, status route.PointStatus, comment string, fullness *int, at time.Time) ([]*route.Point, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rt := r.find(routeID)
	if rt == nil {
		return nil, nil
	}
	var out []*route.Point
	for _, p := range rt.Points {
		if p.DriverID != driverID || p.DeviceID() != deviceID {
			continue
		}
		stamped := at
		p.Status = status
		p.Comment = comment
		if fullness != nil {
			f := *fullness
			p.Fullness = &f
		}
		p.UpdatedAt = &stamped
		out = append(out, copyPoint(p))
	}
	return out, nil
}

func (r *RouteRepository) UpsertPushToken(_ context.Context, token *route.PushToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if token.UpdatedAt.IsZero() {
		token.UpdatedAt = time.Now().UTC()
	}
	for _, t := range r.s.pushTokens {
		if t.UserID == token.UserID && t.Token == token.Token {
			t.UpdatedAt = token.UpdatedAt
			return nil
		}
	}
	c := *token
	r.s.pushTokens = append(r.s.pushTokens, &c)
	return nil
}

func (r *RouteRepository) PushTokens(_ context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		want[id] = true
	}
	var matched []*route.PushToken
	for _, t := range r.s.pushTokens {
		if want[t.UserID] {
			matched = append(matched, t)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].UpdatedAt.After(matched[j].UpdatedAt) })
	tokens := make(map[uuid.UUID][]string)
	for _, t := range matched {
		tokens[t.UserID] = append(tokens[t.UserID], t.Token)
	}
	return tokens, nil
}

// Assignments returns the driver's assignments.
func (r *RouteRepository) Assignments(driverID uuid.UUID) []route.Assignment {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []route.Assignment
	for _, a := range r.s.assignments {
		if a.DriverID == driverID {
			out = append(out, *a)
		}
	}
	return out
}
