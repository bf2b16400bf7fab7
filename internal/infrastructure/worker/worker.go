package worker

import (
	"context"
	"time"

	"oficina/pkg/logger"
)

// Relay is the outbox operations the worker drives.
type Relay interface {
	ProcessBatch(ctx context.Context) (int, error)
	MoveToDLQ(ctx context.Context) (int64, error)
}

// Config controls polling.
type Config struct {
	PollInterval time.Duration
	DLQInterval  time.Duration
}

// Worker polls the relay until its context is cancelled.
type Worker struct {
	relay Relay
	cfg   Config
	log   *logger.Logger
}

func New(relay Relay, cfg Config, log *logger.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.DLQInterval <= 0 {
		cfg.DLQInterval = time.Minute
	}
	if log == nil {
		log = logger.Default()
	}
	return &Worker{relay: relay, cfg: cfg, log: log.WithComponent("outbox-worker")}
}

// Run blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	poll := time.NewTicker(w.cfg.PollInterval)
	defer poll.Stop()
	dlq := time.NewTicker(w.cfg.DLQInterval)
	defer dlq.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			w.drain(ctx)
		case <-dlq.C:
			w.moveFailed(ctx)
		}
	}
}

// drain keeps fetching while batches come back non-empty.
func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			w.log.Errorw("outbox batch failed", "error", err)
			return
		}
		if n == 0 {
			return
		}
		w.log.Debugw("processed outbox batch", "count", n)
	}
}

func (w *Worker) moveFailed(ctx context.Context) {
	moved, err := w.relay.MoveToDLQ(ctx)
	if err != nil {
		w.log.Errorw("move to dead letter queue failed", "error", err)
		return
	}
	if moved > 0 {
		w.log.Warnw("moved failed outbox messages to dead letter queue", "count", moved)
	}
}
