package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"modbusgw/pkg/bridge"
	"modbusgw/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoker struct {
	fn       func(ctx context.Context, payload string) (*bridge.Result, error)
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeInvoker) Invoke(ctx context.Context, payload string) (*bridge.Result, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	return f.fn(ctx, payload)
}

type fakeRecorder struct {
	mu       sync.Mutex
	statuses []string
}

func (r *fakeRecorder) ObserveInvocation(status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func echoResult(payload string) *bridge.Result {
	return &bridge.Result{Record: map[string]any{"config": payload}, Outcome: bridge.Outcome{Stdout: payload}}
}

func TestPool_InvokeReturnsResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inv := &fakeInvoker{fn: func(_ context.Context, payload string) (*bridge.Result, error) {
		return echoResult(payload), nil
	}}
	history := make(chan models.Invocation, 10)
	rec := &fakeRecorder{}

	pool := NewPool(2, "TestPool", 10, inv).WithHistory(history).WithRecorder(rec)
	pool.Start(ctx)

	result, err := pool.Invoke(ctx, "req-1", `{"points":[]}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"config": `{"points":[]}`}, result.Record)

	select {
	case entry := <-history:
		assert.Equal(t, "req-1", entry.RequestID)
		assert.Equal(t, models.StatusOK, entry.Status)
		assert.Equal(t, `{"points":[]}`, entry.Payload)
		assert.JSONEq(t, `{"config":"{\"points\":[]}"}`, string(entry.Record))
	case <-time.After(time.Second):
		t.Fatal("expected history entry")
	}

	rec.mu.Lock()
	assert.Equal(t, []string{models.StatusOK}, rec.statuses)
	rec.mu.Unlock()
}

func TestPool_FallbackAndErrorStatus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inv := &fakeInvoker{fn: func(_ context.Context, payload string) (*bridge.Result, error) {
		switch payload {
		case "raw":
			return &bridge.Result{Record: map[string]any{"raw": "text"}, Fallback: true}, nil
		default:
			return nil, &bridge.InvocationError{Kind: bridge.KindProcessError, Message: "device timeout", ExitCode: 1}
		}
	}}
	history := make(chan models.Invocation, 10)
	pool := NewPool(1, "TestPool", 10, inv).WithHistory(history)
	pool.Start(ctx)

	_, err := pool.Invoke(ctx, "req-raw", "raw")
	require.NoError(t, err)
	entry := <-history
	assert.Equal(t, models.StatusFallback, entry.Status)

	_, err = pool.Invoke(ctx, "req-fail", "fail")
	var invErr *bridge.InvocationError
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, "device timeout", invErr.Message)

	entry = <-history
	assert.Equal(t, models.StatusError, entry.Status)
	assert.Equal(t, "device timeout", entry.Error)
	assert.Equal(t, 1, entry.ExitCode)
	assert.Empty(t, entry.Record)
}

func TestPool_BoundsConcurrency(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inv := &fakeInvoker{fn: func(_ context.Context, payload string) (*bridge.Result, error) {
		time.Sleep(20 * time.Millisecond)
		return echoResult(payload), nil
	}}
	pool := NewPool(3, "TestPool", 0, inv)
	pool.Start(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pool.Invoke(ctx, "req", "{}")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, inv.peak.Load(), int32(3))
}

func TestPool_CallerCancellationReachesInvoker(t *testing.T) {
	poolCtx, stop := context.WithCancel(context.Background())
	defer stop()

	started := make(chan struct{})
	inv := &fakeInvoker{fn: func(ctx context.Context, _ string) (*bridge.Result, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	pool := NewPool(1, "TestPool", 1, inv)
	pool.Start(poolCtx)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := pool.Invoke(ctx, "req", "{}")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPool_StoppedPool(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inv := &fakeInvoker{fn: func(_ context.Context, payload string) (*bridge.Result, error) {
		return echoResult(payload), nil
	}}
	pool := NewPool(1, "TestPool", 0, inv)
	pool.Start(ctx)
	cancel()

	<-pool.done

	_, err := pool.Invoke(context.Background(), "req", "{}")
	assert.ErrorIs(t, err, ErrPoolStopped)
}

func TestPool_FullHistoryDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inv := &fakeInvoker{fn: func(_ context.Context, payload string) (*bridge.Result, error) {
		return echoResult(payload), nil
	}}
	history := make(chan models.Invocation) // unbuffered, never read
	pool := NewPool(1, "TestPool", 0, inv).WithHistory(history)
	pool.Start(ctx)

	for i := 0; i < 3; i++ {
		_, err := pool.Invoke(ctx, "req", "{}")
		require.NoError(t, err)
	}
}

func TestPool_RepeatedRequestIDPublishesEveryAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempt := atomic.Int32{}
	inv := &fakeInvoker{fn: func(_ context.Context, _ string) (*bridge.Result, error) {
		if attempt.Add(1) == 1 {
			return nil, &bridge.InvocationError{Kind: bridge.KindProcessError, Message: "device timeout", ExitCode: 1}
		}
		return echoResult("{}"), nil
	}}
	history := make(chan models.Invocation, 10)
	pool := NewPool(1, "TestPool", 10, inv).WithHistory(history)
	pool.Start(ctx)

	_, err := pool.Invoke(ctx, "wf-42", "{}")
	require.Error(t, err)
	_, err = pool.Invoke(ctx, "wf-42", "{}")
	require.NoError(t, err)

	cancel()
	<-pool.Done()
	close(history)

	var statuses []string
	for entry := range history {
		assert.Equal(t, "wf-42", entry.RequestID)
		statuses = append(statuses, entry.Status)
	}
	assert.Equal(t, []string{models.StatusError, models.StatusOK}, statuses)
}
