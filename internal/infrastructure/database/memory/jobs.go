package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/job"
)

type JobRepository struct{ s *Store }

func (r *JobRepository) Create(_ context.Context, j *job.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	c := *j
	r.s.jobs = append(r.s.jobs, &c)
	return nil
}

func (r *JobRepository) find(id uuid.UUID) *job.Job {
	for _, j := range r.s.jobs {
		if j.ID == id {
			return j
		}
	}
	return nil
}

func (r *JobRepository) GetByID(_ context.Context, id uuid.UUID) (*job.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j := r.find(id)
	if j == nil {
		return nil, job.ErrJobNotFound
	}
	c := *j
	return &c, nil
}

func (r *JobRepository) UpdatePayloadIfPending(_ context.Context, id uuid.UUID, payload string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j := r.find(id)
	if j == nil || !j.IsPending() {
		return false, nil
	}
	j.Payload = payload
	return true, nil
}

// ListPending orders newest first; jobs created at the same instant keep
// reverse insertion order.
func (r *JobRepository) ListPending(_ context.Context, kind device.Kind, deviceID uuid.UUID, types ...job.Type) ([]*job.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := make(map[job.Type]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}

	var out []*job.Job
	for i := len(r.s.jobs) - 1; i >= 0; i-- {
		j := r.s.jobs[i]
		if j.DeviceKind != kind || j.DeviceID != deviceID || !j.IsPending() {
			continue
		}
		if len(wanted) > 0 && !wanted[j.Type] {
			continue
		}
		c := *j
		out = append(out, &c)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

func (r *JobRepository) ListAllPending(_ context.Context, kind device.Kind, offset, limit int) ([]*job.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*job.Job
	for _, j := range r.s.jobs {
		if j.DeviceKind == kind && j.IsPending() {
			c := *j
			all = append(all, &c)
		}
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].CreatedAt.Before(all[b].CreatedAt) })
	return page(all, offset, limit), nil
}

func (r *JobRepository) Complete(_ context.Context, id uuid.UUID, status job.Status, result string, at time.Time) (bool, error) {
	if status == job.StatusPending {
		return false, job.ErrInvalidStatus
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j := r.find(id)
	if j == nil || !j.IsPending() {
		return false, nil
	}
	j.Status = status
	j.Result = result
	j.CompletedAt = &at
	return true, nil
}

func (r *JobRepository) DevicesWithPending(_ context.Context, kind device.Kind, t job.Type, deviceIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(deviceIDs))
	for _, id := range deviceIDs {
		wanted[id] = true
	}
	found := make(map[uuid.UUID]bool)
	for _, j := range r.s.jobs {
		if j.DeviceKind == kind && j.Type == t && j.IsPending() && wanted[j.DeviceID] {
			found[j.DeviceID] = true
		}
	}
	return found, nil
}

// All returns every job of a device in insertion order.
func (r *JobRepository) All(deviceID uuid.UUID) []*job.Job {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*job.Job
	for _, j := range r.s.jobs {
		if j.DeviceID == deviceID {
			c := *j
			out = append(out, &c)
		}
	}
	return out
}

// Force replaces the stored status of a job, bypassing the pending guard.
func (r *JobRepository) Force(id uuid.UUID, status job.Status) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if j := r.find(id); j != nil {
		j.Status = status
	}
}
