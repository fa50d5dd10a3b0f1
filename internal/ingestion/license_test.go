package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waste-fleet-monitor/internal/domain/company"
	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/infrastructure/database/memory"
)

func addActiveSensors(t *testing.T, store *memory.Store, companyID uuid.UUID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		id := uuid.New()
		require.NoError(t, store.Sensors().Create(context.Background(), &device.Sensor{
			ID:               id,
			CompanyID:        companyID,
			SerialNumber:     "S-" + id.String(),
			HardwareIdentity: id.String(),
		}))
	}
}

func TestWithdrawDailyUsage(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
	store := memory.New()

	holder := &company.Company{ID: uuid.New(), Name: "Stock"}
	valid := &company.Company{ID: uuid.New(), Name: "Valid"}
	expired := &company.Company{ID: uuid.New(), Name: "Expired"}
	unlicensed := &company.Company{ID: uuid.New(), Name: "Unlicensed"}

	validLicense := &company.License{Begin: now.AddDate(0, -1, 0), End: now.AddDate(0, 1, 0), UsageBalance: 10}
	expiredLicense := &company.License{Begin: now.AddDate(-1, 0, 0), End: now.AddDate(0, 0, -2), UsageBalance: 10}
	holderLicense := &company.License{Begin: now.AddDate(0, -1, 0), End: now.AddDate(0, 1, 0), UsageBalance: 10}
	store.Companies().Add(holder, holderLicense)
	store.Companies().Add(valid, validLicense)
	store.Companies().Add(expired, expiredLicense)
	store.Companies().Add(unlicensed)

	addActiveSensors(t, store, holder.ID, 4)
	addActiveSensors(t, store, valid.ID, 3)
	addActiveSensors(t, store, expired.ID, 2)
	addActiveSensors(t, store, unlicensed.ID, 1)

	svc := NewLicenseService(store.Companies(), store.Sensors(), store.Trashbins(), holder.ID)
	charged, err := svc.WithdrawDailyUsage(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, charged)

	require.Len(t, store.LicenseLog, 1)
	assert.Equal(t, validLicense.ID, store.LicenseLog[0].LicenseID)
	assert.Equal(t, int64(-3), store.LicenseLog[0].Amount)
	assert.Equal(t, UsageWithdrawalComment, store.LicenseLog[0].Comment)

	lic, err := store.Companies().LatestLicense(ctx, valid.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), lic.UsageBalance)
}

func TestLicenseCheck(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
	store := memory.New()
	holder := uuid.New()
	svc := NewLicenseService(store.Companies(), store.Sensors(), store.Trashbins(), holder)

	valid := &company.Company{ID: uuid.New(), Name: "Valid"}
	store.Companies().Add(valid, &company.License{Begin: now, End: now, UsageBalance: 0})
	assert.NoError(t, svc.Check(ctx, valid.ID, now))
	assert.NoError(t, svc.Check(ctx, holder, now))

	missing := uuid.New()
	store.Trashbins().Add(&device.Trashbin{ID: uuid.New(), CompanyID: missing, SerialNumber: "TB-1"})
	addActiveSensors(t, store, missing, 1)

	assert.ErrorIs(t, svc.Check(ctx, missing, now), ErrLicenseInvalid)
	counts, err := store.Sensors().CountActiveByCompany(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts[missing])
	bin, err := store.Trashbins().GetBySerial(ctx, "TB-1")
	require.NoError(t, err)
	assert.True(t, bin.Disabled)
}
