package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_RejectsBadSpec(t *testing.T) {
	s := New(context.Background(), nil)
	err := s.Add("sweep", "every now and then", func(context.Context) {})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.Add("sweep", "*/5 * * * *", func(context.Context) {}))
	assert.Equal(t, 1, s.Len())
}

func TestScheduler_RunsJobsAndRecoversPanics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, time.UTC)
	var runs atomic.Int32
	require.NoError(t, s.Add("count", "@every 1s", func(jobCtx context.Context) {
		assert.NotNil(t, jobCtx)
		runs.Add(1)
	}))
	require.NoError(t, s.Add("explode", "@every 1s", func(context.Context) {
		panic("boom")
	}))

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	s.Stop(stopCtx)
}
