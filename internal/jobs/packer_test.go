package jobs

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waste-fleet-monitor/internal/domain/job"
)

func pendingJob(payload string) *job.Job {
	return &job.Job{ID: uuid.New(), Type: job.TypeUpdateConfig, Payload: payload}
}

func TestPackerSplitsOnCapacity(t *testing.T) {
	p := NewPacker(20, nil)
	for _, key := range []string{"s/aaaa", "s/bbbb", "s/cccc"} {
		require.NoError(t, p.Put(key, "1111111"))
	}

	created := p.Created()
	assert.GreaterOrEqual(t, len(created), 2)
	for _, d := range created {
		assert.LessOrEqual(t, len(d.Payload()), 20)
		assert.True(t, d.IsNew())
	}
	assert.Empty(t, p.Changed())
}

func TestPackerFillsTheLastNewDraft(t *testing.T) {
	p := NewPacker(32, nil)
	require.NoError(t, p.Put("s/a", "1"))
	require.NoError(t, p.Put("s/b", "2"))
	require.NoError(t, p.Put("g/c", ""))

	require.Len(t, p.Created(), 1)
	assert.Equal(t, "s/a:1`s/b:2`g/c", p.Created()[0].Payload())
}

func TestPackerOverwritesInPlace(t *testing.T) {
	existing := pendingJob("s/on_time:5`s/off_time:20")
	p := NewPacker(128, []*job.Job{existing})

	require.NoError(t, p.Put("s/on_time", "7"))

	changed := p.Changed()
	require.Len(t, changed, 1)
	assert.Equal(t, existing.ID, changed[0].JobID)
	assert.Equal(t, "s/on_time:7`s/off_time:20", changed[0].Payload())
	assert.Empty(t, p.Created())
}

func TestPackerSameValueIsNoop(t *testing.T) {
	p := NewPacker(128, []*job.Job{pendingJob("s/on_time:5")})

	require.NoError(t, p.Put("s/on_time", "5"))

	assert.Empty(t, p.Changed())
	assert.Empty(t, p.Created())
}

func TestPackerEvictsWhenDeltaDoesNotFit(t *testing.T) {
	existing := pendingJob("s/a:1`s/bbbbbbbbbb:2")
	require.Len(t, existing.Payload, 20)
	p := NewPacker(20, []*job.Job{existing})

	require.NoError(t, p.Put("s/a", "123456"))

	changed := p.Changed()
	require.Len(t, changed, 1)
	assert.Equal(t, "s/bbbbbbbbbb:2", changed[0].Payload())
	require.Len(t, p.Created(), 1)
	assert.Equal(t, "s/a:123456", p.Created()[0].Payload())
}

func TestPackerAppendsToNewestJobWithRoom(t *testing.T) {
	newest := pendingJob("s/x:1")
	older := pendingJob("s/y:2")
	p := NewPacker(128, []*job.Job{newest, older})

	require.NoError(t, p.Put("s/z", "3"))

	changed := p.Changed()
	require.Len(t, changed, 1)
	assert.Equal(t, newest.ID, changed[0].JobID)
	assert.Equal(t, "s/x:1`s/z:3", changed[0].Payload())
}

func TestPackerSkipsFullJobs(t *testing.T) {
	full := pendingJob("s/" + strings.Repeat("a", 10) + ":1")
	p := NewPacker(15, []*job.Job{full})

	require.NoError(t, p.Put("s/b", "2"))

	assert.Empty(t, p.Changed())
	require.Len(t, p.Created(), 1)
	assert.Equal(t, "s/b:2", p.Created()[0].Payload())
}

func TestPackerRejectsOversizedPair(t *testing.T) {
	p := NewPacker(20, nil)

	err := p.Put("s/"+strings.Repeat("k", 10), strings.Repeat("v", 10))
	assert.ErrorIs(t, err, ErrPayloadOverflow)
}

func TestPackerExactFit(t *testing.T) {
	p := NewPacker(10, nil)

	require.NoError(t, p.Put("s/abc", "1234"))
	require.Len(t, p.Created(), 1)
	assert.Len(t, p.Created()[0].Payload(), 10)
}

func TestPackerReportsEmptiedJobs(t *testing.T) {
	tests := []struct {
		name    string
		limit   int
		pending []string
		key     string
		value   string
		changed []string
		emptied int
	}{
		{
			name:    "duplicate key evicted from oversized job",
			limit:   14,
			pending: []string{"s/b:1", "s/a:1`s/a:2222"},
			key:     "s/a",
			value:   "123",
			changed: []string{"s/b:1`s/a:123"},
			emptied: 1,
		},
		{
			name:    "single pair grows in place",
			limit:   9,
			pending: []string{"s/a:1"},
			key:     "s/a",
			value:   "12345",
			changed: []string{"s/a:12345"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var pending []*job.Job
			for _, payload := range tt.pending {
				pending = append(pending, pendingJob(payload))
			}
			p := NewPacker(tt.limit, pending)

			require.NoError(t, p.Put(tt.key, tt.value))

			var changed []string
			for _, d := range p.Changed() {
				changed = append(changed, d.Payload())
			}
			assert.Equal(t, tt.changed, changed)
			assert.Len(t, p.Emptied(), tt.emptied)
			for _, d := range p.Emptied() {
				assert.False(t, d.IsNew())
				assert.Empty(t, d.Payload())
			}
			assert.Empty(t, p.Created())
		})
	}
}
