package services

import (
	"context"
	"time"

	"github.com/yungbote/neurobridge-publish/internal/observability"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
)

const compensationTimeout = 10 * time.Second

// compensate runs a secondary action that must never fail the primary operation.
// It survives caller cancellation; failures are logged and counted.
func compensate(ctx context.Context, log *logger.Logger, metrics *observability.Metrics, op string, fn func(ctx context.Context) error) bool {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	if err := fn(cctx); err != nil {
		if log != nil {
			log.Warn("compensating action failed", "op", op, "error", err)
		}
		metrics.IncCompensationFailure(op)
		return false
	}
	return true
}
