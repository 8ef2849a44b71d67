package aggregates

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/pkg/dbctx"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
)

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
	// Now is the clock stamped onto rows; defaults to UTC wall time.
	Now func() time.Time
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// executeWrite runs fn in a transaction and reports the outcome by domain
// code ("success" when fn commits).
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	deps = deps.withDefaults()
	if op = strings.TrimSpace(op); op == "" {
		op = "lesson_draft.write"
	}
	start := time.Now()
	err := MapError(op, deps.Runner.InTx(ctx, fn))
	status := aggregateErrorStatus(err)
	switch domainagg.ErrorCode(status) {
	case domainagg.CodeConflict:
		deps.Hooks.IncConflict(op)
		deps.Log.Debug("draft write lost a race", "op", op, "error", err)
	case domainagg.CodeRetryable:
		deps.Hooks.IncRetry(op)
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return err
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	return string(domainagg.CodeOf(MapError("lesson_draft.status", err)))
}
