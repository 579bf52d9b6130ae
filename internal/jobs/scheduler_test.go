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

type countingAuditor struct {
	calls atomic.Int32
	err   error
}

func (a *countingAuditor) Audit(context.Context) (int, error) {
	a.calls.Add(1)
	return 1, a.err
}

func TestScheduler_RunsAudit(t *testing.T) {
	a := &countingAuditor{}
	s := NewScheduler(a, "@every 1s")

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return a.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_BadSpec(t *testing.T) {
	s := NewScheduler(&countingAuditor{}, "whenever")
	assert.Error(t, s.Start(context.Background()))
}

func TestScheduler_Disabled(t *testing.T) {
	a := &countingAuditor{}
	s := NewScheduler(a, "")
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	assert.Zero(t, a.calls.Load())
}

func TestRunAudit_SurvivesErrors(t *testing.T) {
	a := &countingAuditor{err: errors.New("db gone")}
	NewScheduler(a, "").RunAudit(context.Background())
	assert.Equal(t, int32(1), a.calls.Load())
}
