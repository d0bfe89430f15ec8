package main

import (
	"context"
	"time"

	"modbusgw/pkg/models"
	"modbusgw/pkg/persistence"
)

// historyPipeline owns the history channel and the writer draining it.
type historyPipeline struct {
	entries chan models.Invocation
	done    chan struct{}
}

// startHistory runs a HistoryWriter until the entries channel is closed by stop.
func startHistory(sink persistence.HistorySink, queueSize, batchSize int, flushInterval time.Duration) *historyPipeline {
	hp := &historyPipeline{
		entries: make(chan models.Invocation, queueSize),
		done:    make(chan struct{}),
	}

	writer := persistence.NewHistoryWriter(hp.entries, sink, batchSize, flushInterval)
	go func() {
		defer close(hp.done)
		writer.Run(context.Background())
	}()

	return hp
}

// stop waits for the producers to finish, closes the channel and waits for the
// final flush. The channel stays open if producers outlive ctx.
func (hp *historyPipeline) stop(ctx context.Context, producersDone <-chan struct{}) error {
	select {
	case <-producersDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	close(hp.entries)

	select {
	case <-hp.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
