package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waste-fleet-monitor/internal/domain/job"
	"waste-fleet-monitor/internal/infrastructure/database/memory"
)

func TestLocationSchedulerSkipsSensorsWithPendingRequest(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		ids = append(ids, addSensor(t, store, nil).ID)
	}
	addJob(t, store, ids[1], job.TypeGetLocation, "", time.Now().UTC())

	s := NewLocationScheduler(store.Sensors(), store.Jobs(), 2)
	created, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, created)

	for _, id := range ids {
		all := store.Jobs().All(id)
		require.Len(t, all, 1)
		assert.Equal(t, job.TypeGetLocation, all[0].Type)
	}

	created, err = s.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestLocationSchedulerWithoutSensors(t *testing.T) {
	store := memory.New()
	created, err := NewLocationScheduler(store.Sensors(), store.Jobs(), 0).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, created)
}
