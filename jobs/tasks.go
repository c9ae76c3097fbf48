package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	isync "github.com/mobistock/mobistock/internal/sync"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSyncApply is the task type for applying a batch of incoming
	// change records.
	TaskTypeSyncApply = "sync:apply"
)

// SyncApplyPayload carries one ordered batch of change records.
type SyncApplyPayload struct {
	Records []isync.ChangeRecord `json:"records"`
}

// NewSyncApplyTask constructs an Asynq task for one batch.
func NewSyncApplyTask(payload SyncApplyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSyncApply, data, asynq.MaxRetry(5)), nil
}

// SyncApplyHandler processes TaskTypeSyncApply tasks.
type SyncApplyHandler struct {
	Integrator *isync.Integrator
	Logger     *slog.Logger
}

// Handle applies the batch. A malformed payload skips retry; integration
// errors retry with the queue's backoff since they are usually transient
// storage failures.
func (h SyncApplyHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SyncApplyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	report, err := h.Integrator.IntegrateBatch(ctx, payload.Records)
	if err != nil {
		return err
	}
	if h.Logger != nil {
		h.Logger.Info("sync batch applied",
			slog.Int("applied", report.Applied),
			slog.Int("skipped", report.Skipped),
			slog.Int("failed", len(report.Failures)),
		)
		for _, failure := range report.Failures {
			h.Logger.Warn("sync record failed",
				slog.String("record_id", failure.RecordID),
				slog.String("record_type", failure.RecordType),
				slog.String("error", failure.Err.Error()),
			)
		}
	}
	return nil
}
