package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronSchedulerRejectsBadExpression(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("not a schedule", nil, nil)
	err := s.Start(context.Background(), func(time.Time) {})
	require.Error(t, err)
	assert.True(t, s.Next().IsZero())
}

func TestCronSchedulerNextTrigger(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("IST", 2*60*60)
	s := NewCronScheduler("0 6 * * *", loc, nil)
	require.NoError(t, s.Start(context.Background(), func(time.Time) {}))
	defer func() { require.NoError(t, s.Stop(context.Background())) }()

	next := s.Next().In(loc)
	require.False(t, next.IsZero())
	assert.Equal(t, 6, next.Hour())
	assert.Equal(t, 0, next.Minute())
	assert.True(t, next.After(time.Now()))
}

func TestCronSchedulerRunsJob(t *testing.T) {
	t.Parallel()

	fired := make(chan time.Time, 4)
	s := NewCronScheduler("@every 1s", time.UTC, nil)
	require.NoError(t, s.Start(context.Background(), func(at time.Time) { fired <- at }))

	select {
	case at := <-fired:
		assert.Equal(t, time.UTC, at.Location())
	case <-time.After(3 * time.Second):
		t.Fatal("job did not fire")
	}

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()), "stopping twice is harmless")
}

func TestCronSchedulerNilJob(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("0 6 * * *", nil, nil)
	require.NoError(t, s.Start(context.Background(), nil))
	assert.True(t, s.Next().IsZero())
}
