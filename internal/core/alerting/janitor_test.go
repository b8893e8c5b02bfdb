package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetentionStore struct {
	alertCutoff  time.Time
	sampleCutoff time.Time
}

func (s *fakeRetentionStore) DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.alertCutoff = cutoff
	return 3, nil
}

func (s *fakeRetentionStore) DeleteSamplesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.sampleCutoff = cutoff
	return 10, nil
}

func TestJanitorCleanupUsesConfiguredAges(t *testing.T) {
	store := &fakeRetentionStore{}
	j := NewJanitor(store, quietLogger(), 168*time.Hour, 72*time.Hour)
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	j.clock = clock

	j.runCleanup()

	assert.Equal(t, clock.Now().Add(-168*time.Hour), store.alertCutoff)
	assert.Equal(t, clock.Now().Add(-72*time.Hour), store.sampleCutoff)
}

func TestJanitorRejectsInvalidSchedule(t *testing.T) {
	j := NewJanitor(&fakeRetentionStore{}, quietLogger(), time.Hour, time.Hour)
	require.Error(t, j.Start("not a cron spec"))

	require.NoError(t, j.Start("@hourly"))
	j.Stop()
}
