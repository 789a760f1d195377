package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	calls atomic.Int32
	fail  int32
}

func (f *fakeTarget) RefreshStale(ctx context.Context) (int, error) {
	n := f.calls.Add(1)
	if n <= f.fail {
		return 0, errors.New("database unavailable")
	}
	return 2, nil
}

func TestRunOnceRetries(t *testing.T) {
	target := &fakeTarget{fail: 1}
	r := NewRefresher(target, RefresherConfig{RetryAttempts: 3, RetryDelay: time.Millisecond}, nil, nil)

	require.NoError(t, r.RunOnce(context.Background()))
	assert.Equal(t, int32(2), target.calls.Load())
}

func TestRunOnceGivesUp(t *testing.T) {
	target := &fakeTarget{fail: 10}
	r := NewRefresher(target, RefresherConfig{RetryAttempts: 2, RetryDelay: time.Millisecond}, nil, nil)

	assert.Error(t, r.RunOnce(context.Background()))
	assert.Equal(t, int32(2), target.calls.Load())
}

func TestStartTicksUntilCancelled(t *testing.T) {
	target := &fakeTarget{}
	r := NewRefresher(target, RefresherConfig{Interval: 5 * time.Millisecond}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return target.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
}

func TestStartDisabled(t *testing.T) {
	target := &fakeTarget{}
	r := NewRefresher(target, RefresherConfig{}, nil, nil)
	r.Start(context.Background())
	assert.Equal(t, int32(0), target.calls.Load())
}
