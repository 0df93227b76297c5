package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReconciler struct {
	calls atomic.Int32
	err   error
}

func (r *countingReconciler) Reconcile(context.Context) (int, error) {
	r.calls.Add(1)
	return 2, r.err
}

type countingPurger struct {
	calls atomic.Int32
}

func (p *countingPurger) PurgeStale(context.Context) (int64, error) {
	p.calls.Add(1)
	return 0, nil
}

func TestSchedulerRunsJobs(t *testing.T) {
	rec := &countingReconciler{}
	pur := &countingPurger{}
	s := NewScheduler(rec, pur, Schedules{Reconcile: "@every 1s", Purge: "@every 1s"}, time.UTC)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return rec.calls.Load() > 0 && pur.calls.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)
}

func TestSchedulerSurvivesJobError(t *testing.T) {
	rec := &countingReconciler{err: errors.New("db down")}
	s := NewScheduler(rec, nil, Schedules{Reconcile: "@every 1s", Purge: "@every 1s"}, time.UTC)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return rec.calls.Load() >= 2 }, 4*time.Second, 50*time.Millisecond)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(&countingReconciler{}, nil, Schedules{Reconcile: "every minute"}, time.UTC)
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every minute")
}
