package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type countingSyncer struct {
	calls atomic.Int32
}

func (s *countingSyncer) Trigger(ctx context.Context) {
	s.calls.Add(1)
}

func TestSchedulerTriggersPeriodically(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	syncer := &countingSyncer{}
	s := NewSyncScheduler(syncer, SchedulerConfig{Interval: 5 * time.Millisecond})
	s.Start()
	s.Start()

	require.Eventually(t, func() bool { return syncer.calls.Load() >= 2 }, time.Second, time.Millisecond)
	s.Stop()
	s.Stop()

	n := syncer.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, syncer.calls.Load())
}

func TestSchedulerDefaults(t *testing.T) {
	s := NewSyncScheduler(&countingSyncer{}, SchedulerConfig{})
	assert.Equal(t, DefaultSchedulerConfig(), s.config)

	s.RunNow()
	assert.Equal(t, int32(1), s.engine.(*countingSyncer).calls.Load())
	s.Stop()
}
