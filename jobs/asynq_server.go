package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Worker wraps the Asynq server consuming the sync queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts asynq.RedisClientOpt
	Logger    *slog.Logger
	SyncApply SyncApplyHandler
}

// NewWorker constructs a Worker instance. Sync batches must apply in delivery
// order, so the worker runs strictly sequentially.
func NewWorker(cfg WorkerConfig) *Worker {
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: 1,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeSyncApply, cfg.SyncApply.Handle)
	return &Worker{server: srv, mux: mux, logger: cfg.Logger}
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueSyncApply enqueues one batch of change records.
func (c *Client) EnqueueSyncApply(ctx context.Context, payload SyncApplyPayload) (*asynq.TaskInfo, error) {
	task, err := NewSyncApplyTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// Close releases the underlying Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}
