package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"modbusgw/pkg/bridge"
	"modbusgw/pkg/models"
)

// ErrPoolStopped is returned when a job is submitted after the pool shut down.
var ErrPoolStopped = errors.New("worker pool stopped")

// Invoker runs one gateway invocation.
type Invoker interface {
	Invoke(ctx context.Context, payload string) (*bridge.Result, error)
}

// Recorder observes finished invocations.
type Recorder interface {
	ObserveInvocation(status string, duration time.Duration)
}

// Pool is a worker pool that executes gateway invocations concurrently
type Pool struct {
	workerCount int
	poolName    string // For logging

	invoker   Invoker
	recorders []Recorder

	jobChan     chan models.InvokeRequest
	historyChan chan<- models.Invocation
	done        chan struct{}
}

// NewPool creates a new worker pool
func NewPool(workerCount int, poolName string, bufferSize int, invoker Invoker) *Pool {
	return &Pool{
		workerCount: workerCount,
		poolName:    poolName,
		invoker:     invoker,
		jobChan:     make(chan models.InvokeRequest, bufferSize),
		done:        make(chan struct{}),
	}
}

// WithRecorder attaches a recorder; every attached recorder sees every job.
func (pool *Pool) WithRecorder(recorder Recorder) *Pool {
	pool.recorders = append(pool.recorders, recorder)
	return pool
}

// WithHistory attaches a channel receiving one Invocation per finished job.
func (pool *Pool) WithHistory(historyChan chan<- models.Invocation) *Pool {
	pool.historyChan = historyChan
	return pool
}

// Start begins the worker pool (call once at startup)
func (pool *Pool) Start(ctx context.Context) {
	slog.Info("Starting worker pool", "component", pool.poolName, "worker_count", pool.workerCount)

	var wg sync.WaitGroup
	for i := 0; i < pool.workerCount; i++ {
		wg.Add(1)
		go pool.worker(ctx, i, &wg)
	}

	// Wait for all workers to finish when context is done
	go func() {
		wg.Wait()
		close(pool.done)
		slog.Info("All workers stopped", "component", pool.poolName)
	}()
}

// Done is closed once every worker has returned after Start's context ended.
// No history entry is published after that.
func (pool *Pool) Done() <-chan struct{} {
	return pool.done
}

// Invoke submits a payload and waits for its result. Cancelling ctx abandons
// the wait and, if the job is already running, terminates the gateway process.
func (pool *Pool) Invoke(ctx context.Context, requestID string, payload string) (*bridge.Result, error) {
	replyCh := make(chan models.Response, 1)
	req := models.InvokeRequest{
		Ctx:       ctx,
		RequestID: requestID,
		Payload:   payload,
		ReplyCh:   replyCh,
	}

	select {
	case pool.jobChan <- req:
	case <-pool.done:
		return nil, ErrPoolStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case resp := <-replyCh:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Data.(*bridge.Result), nil
	case <-pool.done:
		return nil, ErrPoolStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// worker processes jobs continuously
func (pool *Pool) worker(ctx context.Context, id int, wg *sync.WaitGroup) {
	defer wg.Done()
	slog.Debug("Worker started", "component", pool.poolName, "worker_id", id)

	for {
		select {
		case <-ctx.Done():
			slog.Debug("Worker stopping", "component", pool.poolName, "worker_id", id)
			return

		case req := <-pool.jobChan:
			pool.execute(req)
		}
	}
}

// execute runs one invocation and replies on the request's channel
func (pool *Pool) execute(req models.InvokeRequest) {
	ctx := req.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		req.ReplyCh <- models.Response{Error: ctx.Err()}
		return
	}

	slog.Debug("Executing invocation", "component", pool.poolName, "request_id", req.RequestID, "payload_bytes", len(req.Payload))

	start := time.Now()
	result, err := pool.invoker.Invoke(ctx, req.Payload)
	elapsed := time.Since(start)

	entry := models.Invocation{
		RequestID:  req.RequestID,
		Payload:    req.Payload,
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  start.UTC(),
	}

	if err != nil {
		entry.Status = models.StatusError
		entry.Error = err.Error()
		entry.ExitCode = -1
		var invErr *bridge.InvocationError
		if errors.As(err, &invErr) {
			entry.Error = invErr.Message
			entry.ExitCode = invErr.ExitCode
		}
		slog.Error("Invocation failed", "component", pool.poolName, "request_id", req.RequestID, "exit_code", entry.ExitCode, "duration_ms", entry.DurationMs, "error", err)
		req.ReplyCh <- models.Response{Error: err}
	} else {
		entry.Status = models.StatusOK
		if result.Fallback {
			entry.Status = models.StatusFallback
		}
		entry.ExitCode = result.Outcome.ExitCode
		if raw, mErr := bridge.MarshalRecord(result.Record); mErr == nil {
			entry.Record = raw
		}
		slog.Info("Invocation completed", "component", pool.poolName, "request_id", req.RequestID, "status", entry.Status, "duration_ms", entry.DurationMs)
		req.ReplyCh <- models.Response{Data: result}
	}

	for _, recorder := range pool.recorders {
		recorder.ObserveInvocation(entry.Status, elapsed)
	}
	pool.publish(entry)
}

// publish hands the entry to the history writer without blocking the worker.
func (pool *Pool) publish(entry models.Invocation) {
	if pool.historyChan == nil {
		return
	}
	select {
	case pool.historyChan <- entry:
	default:
		slog.Warn("History queue full, dropping entry", "component", pool.poolName, "request_id", entry.RequestID)
	}
}
