package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nebari-dev/bastion/internal/models"
	"gorm.io/gorm"
)

// PurgeHook runs inside the purge transaction before the record row is
// removed, e.g. to drop assignment edges that reference it.
type PurgeHook func(ctx context.Context, tx *gorm.DB, id any) error

// Lifecycle implements soft-delete, restore, purge and the recycle bin for
// one entity type. Transitions are single-row updates; concurrent SoftDelete
// and Restore on the same row are last-writer-wins.
type Lifecycle[T models.Entity] struct {
	db     *gorm.DB
	kind   string
	purge  PurgeHook
	logger *slog.Logger
}

// NewLifecycle creates a lifecycle repository. kind names the entity in logs.
func NewLifecycle[T models.Entity](db *gorm.DB, kind string, purge PurgeHook, logger *slog.Logger) *Lifecycle[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle[T]{db: db, kind: kind, purge: purge, logger: logger}
}

// Get loads a record by id regardless of its deleted state.
func (l *Lifecycle[T]) Get(ctx context.Context, id any) (*T, error) {
	var rec T
	if err := GetDB(ctx, l.db).First(&rec, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

// SoftDelete moves an active record to the recycle bin. Missing or already
// deleted records are a no-op.
func (l *Lifecycle[T]) SoftDelete(ctx context.Context, id any, actor uuid.UUID) error {
	rec, err := l.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if (*rec).SystemProtected() {
		return ErrSystemProtected
	}
	if (*rec).Deleted() {
		return nil
	}
	changed, err := l.transition(ctx, id, false, true, actor)
	if err != nil {
		return err
	}
	if changed {
		l.logger.Info("Soft-deleted record", "kind", l.kind, "id", id, "actor", actor)
	}
	return nil
}

// Restore returns a deleted record to the active state. Records that are
// missing or not deleted are left untouched.
func (l *Lifecycle[T]) Restore(ctx context.Context, id any, actor uuid.UUID) error {
	changed, err := l.transition(ctx, id, true, false, actor)
	if err != nil {
		return err
	}
	if changed {
		l.logger.Info("Restored record", "kind", l.kind, "id", id, "actor", actor)
	}
	return nil
}

// HardDelete permanently removes a record. Only records already in the
// recycle bin can be purged, and system records never.
func (l *Lifecycle[T]) HardDelete(ctx context.Context, id any) error {
	return RunInTx(ctx, l.db, func(txCtx context.Context) error {
		rec, err := l.Get(txCtx, id)
		if err != nil {
			return err
		}
		if (*rec).SystemProtected() {
			return ErrSystemProtected
		}
		if !(*rec).Deleted() {
			return ErrNotSoftDeleted
		}

		tx := GetDB(txCtx, l.db)
		if l.purge != nil {
			if err := l.purge(txCtx, tx, id); err != nil {
				return fmt.Errorf("purge %s dependents: %w", l.kind, err)
			}
		}
		if err := tx.Where("id = ? AND is_deleted = ?", id, true).Delete(new(T)).Error; err != nil {
			return fmt.Errorf("purge %s: %w", l.kind, err)
		}
		l.logger.Info("Purged record", "kind", l.kind, "id", id)
		return nil
	})
}

// ListDeleted returns the recycle bin contents.
func (l *Lifecycle[T]) ListDeleted(ctx context.Context) ([]T, error) {
	return l.ListDeletedWhere(ctx, nil)
}

// ListDeletedWhere returns the recycle bin contents matching query, e.g. the
// removed assignments of one user. A nil query matches every deleted row.
func (l *Lifecycle[T]) ListDeletedWhere(ctx context.Context, query any, args ...any) ([]T, error) {
	items := make([]T, 0)
	q := GetDB(ctx, l.db).Where("is_deleted = ?", true)
	if query != nil {
		q = q.Where(query, args...)
	}
	if err := q.Order("modified_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (l *Lifecycle[T]) transition(ctx context.Context, id any, from, to bool, actor uuid.UUID) (bool, error) {
	result := GetDB(ctx, l.db).Model(new(T)).
		Where("id = ? AND is_deleted = ?", id, from).
		Updates(map[string]any{
			"is_deleted":          to,
			"modified_at":         time.Now().UTC(),
			"modified_by_user_id": models.ActorRef(actor),
		})
	if result.Error != nil {
		return false, fmt.Errorf("update %s lifecycle: %w", l.kind, result.Error)
	}
	return result.RowsAffected > 0, nil
}
