package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const defaultIdempotencyRetention = 7 * 24 * time.Hour

// IdempotencyCleaner removes posting-guard keys past their retention window.
type IdempotencyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyJanitor handles TaskIdempotencyCleanup tasks.
type IdempotencyJanitor struct {
	store  IdempotencyCleaner
	logger *slog.Logger
}

func NewIdempotencyJanitor(store IdempotencyCleaner, logger *slog.Logger) *IdempotencyJanitor {
	return &IdempotencyJanitor{store: store, logger: logger}
}

func (j *IdempotencyJanitor) Handle(ctx context.Context, t *asynq.Task) error {
	payload := IdempotencyCleanupPayload{OlderThan: defaultIdempotencyRetention}
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.OlderThan <= 0 {
		payload.OlderThan = defaultIdempotencyRetention
	}
	if err := j.store.Cleanup(ctx, payload.OlderThan); err != nil {
		return err
	}
	j.logger.Info("idempotency cleanup finished", slog.Duration("older_than", payload.OlderThan))
	return nil
}
