package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/profile"
)

type ProfileRepository struct{ s *Store }

func (r *ProfileRepository) Create(_ context.Context, p *profile.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.s.profiles[p.ID] = p.Clone()
	return nil
}

func (r *ProfileRepository) GetByID(_ context.Context, id uuid.UUID) (*profile.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[id]
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	return p.Clone(), nil
}

func (r *ProfileRepository) Update(_ context.Context, p *profile.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.profiles[p.ID]; !ok {
		return profile.ErrProfileNotFound
	}
	r.s.profiles[p.ID] = p.Clone()
	for _, sensor := range r.s.sensors {
		if sensor.ProfileID != nil && *sensor.ProfileID == p.ID {
			sensor.Profile = p.Clone()
		}
	}
	return nil
}

type SensorRepository struct{ s *Store }

func copySensor(s *device.Sensor) *device.Sensor {
	c := *s
	if s.Location != nil {
		loc := *s.Location
		c.Location = &loc
	}
	if s.Profile != nil {
		c.Profile = s.Profile.Clone()
	}
	return &c
}

func (r *SensorRepository) Create(_ context.Context, s *device.Sensor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.sensors {
		if existing.HardwareIdentity == s.HardwareIdentity || existing.SerialNumber == s.SerialNumber {
			return device.ErrSensorAlreadyExists
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.ProfileID != nil && s.Profile == nil {
		if p, ok := r.s.profiles[*s.ProfileID]; ok {
			s.Profile = p.Clone()
		}
	}
	r.s.sensors[s.ID] = copySensor(s)
	return nil
}

func (r *SensorRepository) GetByID(_ context.Context, id uuid.UUID) (*device.Sensor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	s, ok := r.s.sensors[id]
	if !ok {
		return nil, device.ErrSensorNotFound
	}
	return copySensor(s), nil
}

func (r *SensorRepository) GetByHardwareIdentity(_ context.Context, hwid string) (*device.Sensor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, s := range r.s.sensors {
		if s.HardwareIdentity == hwid {
			return copySensor(s), nil
		}
	}
	return nil, device.ErrSensorNotFound
}

func (r *SensorRepository) Save(_ context.Context, s *device.Sensor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sensors[s.ID]; !ok {
		return device.ErrSensorNotFound
	}
	s.UpdatedAt = time.Now().UTC()
	r.s.sensors[s.ID] = copySensor(s)
	return nil
}

func (r *SensorRepository) DisableByCompany(_ context.Context, companyID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, s := range r.s.sensors {
		if s.CompanyID == companyID && !s.Disabled {
			s.Disabled = true
			n++
		}
	}
	return n, nil
}

func (r *SensorRepository) sorted(match func(*device.Sensor) bool) []*device.Sensor {
	var out []*device.Sensor
	for _, s := range r.s.sensors {
		if match(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func (r *SensorRepository) ListEnabled(_ context.Context, offset, limit int) ([]*device.Sensor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*device.Sensor
	for _, s := range page(r.sorted(func(s *device.Sensor) bool { return !s.Disabled }), offset, limit) {
		out = append(out, copySensor(s))
	}
	return out, nil
}

func (r *SensorRepository) ListByProfile(_ context.Context, profileID uuid.UUID, offset, limit int) ([]*device.Sensor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	match := func(s *device.Sensor) bool { return s.ProfileID != nil && *s.ProfileID == profileID }
	var out []*device.Sensor
	for _, s := range page(r.sorted(match), offset, limit) {
		out = append(out, copySensor(s))
	}
	return out, nil
}

func (r *SensorRepository) CountActiveByCompany(_ context.Context) (map[uuid.UUID]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := make(map[uuid.UUID]int64)
	for _, s := range r.s.sensors {
		if !s.Disabled {
			counts[s.CompanyID]++
		}
	}
	return counts, nil
}

type TrashbinRepository struct{ s *Store }

func copyTrashbin(t *device.Trashbin) *device.Trashbin {
	c := *t
	if t.Location != nil {
		loc := *t.Location
		c.Location = &loc
	}
	return &c
}

// Add registers a trashbin.
func (r *TrashbinRepository) Add(t *device.Trashbin) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	r.s.trashbins[t.ID] = copyTrashbin(t)
}

func (r *TrashbinRepository) GetByID(_ context.Context, id uuid.UUID) (*device.Trashbin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.trashbins[id]
	if !ok {
		return nil, device.ErrTrashbinNotFound
	}
	return copyTrashbin(t), nil
}

func (r *TrashbinRepository) GetBySerial(_ context.Context, serial string) (*device.Trashbin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.trashbins {
		if t.SerialNumber == serial {
			return copyTrashbin(t), nil
		}
	}
	return nil, device.ErrTrashbinNotFound
}

func (r *TrashbinRepository) Satellites(_ context.Context, masterID uuid.UUID) ([]*device.Trashbin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*device.Trashbin
	for _, t := range r.s.trashbins {
		if !t.IsMaster && t.MasterID != nil && *t.MasterID == masterID {
			out = append(out, copyTrashbin(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SerialNumber < out[j].SerialNumber })
	return out, nil
}

func (r *TrashbinRepository) Save(_ context.Context, t *device.Trashbin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.trashbins[t.ID]; !ok {
		return device.ErrTrashbinNotFound
	}
	r.s.trashbins[t.ID] = copyTrashbin(t)
	return nil
}

func (r *TrashbinRepository) DisableByCompany(_ context.Context, companyID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, t := range r.s.trashbins {
		if t.CompanyID == companyID && !t.Disabled {
			t.Disabled = true
			n++
		}
	}
	return n, nil
}

type OnboardingRepository struct{ s *Store }

func (r *OnboardingRepository) CreateIfAbsent(_ context.Context, hwid string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, req := range r.s.onboarding {
		if req.HardwareIdentity == hwid {
			return false, nil
		}
	}
	r.s.onboarding = append(r.s.onboarding, &device.OnboardingRequest{
		ID:               uuid.New(),
		Number:           int64(len(r.s.onboarding) + 1),
		HardwareIdentity: hwid,
		CreatedAt:        time.Now().UTC(),
	})
	return true, nil
}

func (r *OnboardingRepository) GetByID(_ context.Context, id uuid.UUID) (*device.OnboardingRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, req := range r.s.onboarding {
		if req.ID == id {
			c := *req
			return &c, nil
		}
	}
	return nil, device.ErrOnboardingNotFound
}

func (r *OnboardingRepository) MarkApproved(_ context.Context, id, sensorID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, req := range r.s.onboarding {
		if req.ID == id {
			if req.ApprovedAt != nil {
				return device.ErrAlreadyApproved
			}
			now := time.Now().UTC()
			req.ApprovedAt = &now
			req.SensorID = &sensorID
			return nil
		}
	}
	return device.ErrAlreadyApproved
}

// All returns every onboarding request in creation order.
func (r *OnboardingRepository) All() []*device.OnboardingRequest {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*device.OnboardingRequest, len(r.s.onboarding))
	copy(out, r.s.onboarding)
	return out
}
