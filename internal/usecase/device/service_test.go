package device

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainDevice "waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/job"
	"waste-fleet-monitor/internal/domain/profile"
	"waste-fleet-monitor/internal/infrastructure/database/memory"
	"waste-fleet-monitor/internal/ingestion"
	"waste-fleet-monitor/internal/jobs"
	appErrors "waste-fleet-monitor/pkg/errors"
)

type fixture struct {
	store     *memory.Store
	svc       *Service
	companyID uuid.UUID
	holderID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{store: store, companyID: uuid.New(), holderID: uuid.New()}

	reconciler := jobs.NewReconciler(store, store.Jobs(), 0)
	f.svc = NewService(store, store.Sensors(), store.Profiles(),
		jobs.NewCommander(store, store.Jobs(), 0),
		reconciler,
		jobs.NewPropagator(store.Sensors(), reconciler, 0),
		ingestion.NewOnboarding(store, store.Onboarding(), store.Sensors(), f.holderID),
	)
	return f
}

func (f *fixture) sensor(t *testing.T, companyID uuid.UUID, p *profile.Profile) *domainDevice.Sensor {
	t.Helper()
	id := uuid.New()
	s := &domainDevice.Sensor{
		ID:               id,
		CompanyID:        companyID,
		SerialNumber:     "BWSR2G-" + id.String()[:8],
		HardwareIdentity: id.String(),
		MountType:        domainDevice.MountVertical,
	}
	if p != nil {
		s.ProfileID = &p.ID
		s.Profile = p.Clone()
	}
	require.NoError(t, f.store.Sensors().Create(context.Background(), s))
	return s
}

func (f *fixture) profile(t *testing.T, companyID *uuid.UUID) *profile.Profile {
	t.Helper()
	p := profile.New("district")
	p.CompanyID = companyID
	require.NoError(t, f.store.Profiles().Create(context.Background(), p))
	return p
}

func TestUpdateProfilePropagates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, &f.companyID)
	first := f.sensor(t, f.companyID, p)
	second := f.sensor(t, f.companyID, p)
	unrelated := f.sensor(t, f.companyID, nil)

	name := "  Night shift  "
	resp, err := f.svc.UpdateProfile(ctx, f.companyID, p.ID, &UpdateProfileRequest{
		Name:   &name,
		Values: map[string]string{"gps_timeout": "60"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Night shift", resp.Name)
	assert.Equal(t, 2, resp.Sensors)
	assert.Equal(t, "60", resp.Values["gps_timeout"])

	stored, err := f.store.Profiles().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "60", stored.Value("gps_timeout"))

	for _, s := range []*domainDevice.Sensor{first, second} {
		all := f.store.Jobs().All(s.ID)
		require.Len(t, all, 1)
		assert.Equal(t, job.TypeUpdateConfig, all[0].Type)
		assert.Equal(t, "s/tGps:60", all[0].Payload)
	}
	assert.Empty(t, f.store.Jobs().All(unrelated.ID))
	assert.Equal(t, 1, f.store.Transactions)
}

func TestUpdateProfileRejections(t *testing.T) {
	f := newFixture(t)
	other := uuid.New()
	own := f.profile(t, &f.companyID)
	foreign := f.profile(t, &other)
	shared := f.profile(t, nil)

	tests := []struct {
		name      string
		profileID uuid.UUID
		values    map[string]string
		want      error
		wantCode  string
	}{
		{"foreign profile", foreign.ID, map[string]string{"gps_timeout": "60"}, profile.ErrProfileNotFound, ""},
		{"shared profile", shared.ID, map[string]string{"gps_timeout": "60"}, profile.ErrProfileReadOnly, ""},
		{"missing profile", uuid.New(), map[string]string{"gps_timeout": "60"}, profile.ErrProfileNotFound, ""},
		{"no values", own.ID, nil, nil, "VALIDATION_ERROR"},
		{"unknown field", own.ID, map[string]string{"warp_speed": "9"}, nil, "VALIDATION_ERROR"},
		{"bad value", own.ID, map[string]string{"gps_timeout": "soon"}, nil, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.UpdateProfile(context.Background(), f.companyID, tt.profileID, &UpdateProfileRequest{Values: tt.values})
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, appErrors.Code(err))
			}
		})
	}

	stored, err := f.store.Profiles().GetByID(context.Background(), own.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Values)
}

func TestEnqueueJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sensor := f.sensor(t, f.companyID, nil)

	first, err := f.svc.EnqueueJob(ctx, f.companyID, sensor.ID, &EnqueueJobRequest{Type: "GET_LOCATION"})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "PENDING", first.Status)

	again, err := f.svc.EnqueueJob(ctx, f.companyID, sensor.ID, &EnqueueJobRequest{Type: "GET_LOCATION"})
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, first.ID, again.ID)

	_, err = f.svc.EnqueueJob(ctx, f.companyID, sensor.ID, &EnqueueJobRequest{Type: "UPDATE_CONFIG"})
	assert.Equal(t, "VALIDATION_ERROR", appErrors.Code(err))

	_, err = f.svc.EnqueueJob(ctx, f.companyID, sensor.ID, &EnqueueJobRequest{Type: "GET_SIM_BALANCE"})
	assert.ErrorIs(t, err, jobs.ErrPayloadRequired)

	_, err = f.svc.EnqueueJob(ctx, uuid.New(), sensor.ID, &EnqueueJobRequest{Type: "CALIBRATE"})
	assert.ErrorIs(t, err, domainDevice.ErrSensorNotFound)
}

func TestFetchFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sensor := f.sensor(t, f.companyID, nil)

	require.NoError(t, f.svc.FetchFields(ctx, f.companyID, sensor.ID, &FetchFieldsRequest{Fields: []string{"gps_timeout"}}))
	all := f.store.Jobs().All(sensor.ID)
	require.Len(t, all, 1)
	assert.Equal(t, job.TypeFetchConfig, all[0].Type)

	err := f.svc.FetchFields(ctx, f.companyID, sensor.ID, &FetchFieldsRequest{})
	assert.Equal(t, "VALIDATION_ERROR", appErrors.Code(err))
}

func TestApproveOnboarding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.store.Onboarding().CreateIfAbsent(ctx, "hw-77")
	require.NoError(t, err)
	require.True(t, created)
	req := f.store.Onboarding().All()[0]

	resp, err := f.svc.ApproveOnboarding(ctx, req.ID, &ApproveOnboardingRequest{InstallType: "REAR", NetworkType: "NB_IOT"})
	require.NoError(t, err)
	assert.Equal(t, f.holderID, resp.CompanyID)
	assert.Equal(t, "hw-77", resp.HardwareIdentity)
	assert.Regexp(t, `^BWSRNB-0\d{2}00001$`, resp.SerialNumber)

	_, err = f.svc.ApproveOnboarding(ctx, req.ID, &ApproveOnboardingRequest{InstallType: "REAR", NetworkType: "NB_IOT"})
	assert.ErrorIs(t, err, domainDevice.ErrAlreadyApproved)

	_, err = f.svc.ApproveOnboarding(ctx, req.ID, &ApproveOnboardingRequest{InstallType: "SIDE", NetworkType: "2G"})
	assert.Equal(t, "VALIDATION_ERROR", appErrors.Code(err))
}
