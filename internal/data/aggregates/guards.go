package aggregates

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/pkg/dbctx"
)

// CASGuard provides optimistic/concurrency guard helpers for aggregate writes.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

// StateGuard is the WHERE side of a compare-and-set on a draft row.
type StateGuard struct {
	// Column defaults to publish_state, TombstoneColumn to deleted_at.
	Column          string
	TombstoneColumn string
	Allowed         []string
	Deleted         domainagg.DeletedGuard
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx == nil && g.db == nil {
		return nil, ValidationError("missing db transaction context")
	}
	return dbc.DB(g.db), nil
}

// UpdateByState updates a row only when id, state and tombstone all still
// match what the caller observed.
func (g CASGuard) UpdateByState(dbc dbctx.Context, table string, id uuid.UUID, guard StateGuard, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	if table == "" || id == uuid.Nil {
		return false, ValidationError("table and id are required for UpdateByState")
	}
	if len(guard.Allowed) == 0 {
		return false, ValidationError("allowed states must not be empty")
	}
	if len(updates) == 0 {
		return false, ValidationError("updates must not be empty")
	}
	column := strings.TrimSpace(guard.Column)
	if column == "" {
		column = "publish_state"
	}
	tombstone := strings.TrimSpace(guard.TombstoneColumn)
	if tombstone == "" {
		tombstone = "deleted_at"
	}
	q := db.Table(table).Where("id = ?", id).Where(column+" IN ?", guard.Allowed)
	switch guard.Deleted {
	case domainagg.DeletedForbidden:
		q = q.Where(tombstone + " IS NULL")
	case domainagg.DeletedRequired:
		q = q.Where(tombstone + " IS NOT NULL")
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RequireCASSuccess converts a failed compare-and-set into a typed conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError("%s", strings.TrimSpace(message))
}
