package persistence

import (
	"context"
	"log/slog"
	"time"

	"modbusgw/pkg/models"
)

// HistorySink persists a batch of finished invocations.
type HistorySink interface {
	InsertBatch(ctx context.Context, entries []models.Invocation) error
}

// HistoryWriter batches finished invocations and flushes them to the sink.
// It runs in its own goroutine so workers never wait on the database.
type HistoryWriter struct {
	entries       <-chan models.Invocation
	sink          HistorySink
	batchSize     int
	flushInterval time.Duration
}

// NewHistoryWriter creates a new history writer.
func NewHistoryWriter(
	entries <-chan models.Invocation,
	sink HistorySink,
	batchSize int,
	flushInterval time.Duration,
) *HistoryWriter {
	if batchSize < 1 {
		batchSize = 1
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &HistoryWriter{
		entries:       entries,
		sink:          sink,
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

// Run starts the history writer's main loop. Buffered entries are flushed on
// shutdown and when the entries channel is closed.
func (writer *HistoryWriter) Run(ctx context.Context) {
	slog.Info("Starting history writer", "component", "HistoryWriter", "batch_size", writer.batchSize)

	ticker := time.NewTicker(writer.flushInterval)
	defer ticker.Stop()

	batch := make([]models.Invocation, 0, writer.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping history writer", "component", "HistoryWriter")
			writer.flush(context.Background(), batch)
			return

		case entry, ok := <-writer.entries:
			if !ok {
				writer.flush(context.Background(), batch)
				return
			}
			batch = append(batch, entry)
			if len(batch) >= writer.batchSize {
				writer.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			writer.flush(ctx, batch)
			batch = batch[:0]
		}
	}
}

// flush persists the batch; failures are logged and the batch is dropped.
func (writer *HistoryWriter) flush(ctx context.Context, batch []models.Invocation) {
	if len(batch) == 0 {
		return
	}

	if err := writer.sink.InsertBatch(ctx, batch); err != nil {
		slog.Error("Batch insert failed", "component", "HistoryWriter", "count", len(batch), "error", err)
		return
	}

	slog.Debug("Batch inserted invocations", "component", "HistoryWriter", "count", len(batch))
}
