package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/sahilchouksey/course-catalog/utils/logger"
	"gorm.io/gorm"
)

// MaxOrder is the highest rank a module or content may hold, so the column
// fits a 32-bit integer on every backend.
const MaxOrder = math.MaxInt32

// OrderLocker serializes sibling creation under one parent
type OrderLocker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// NextOrder returns the rank a new child of scopeID should get:
// one past the highest existing sibling, or 0 when there are none.
func NextOrder(ctx context.Context, tx *gorm.DB, model interface{}, scopeColumn string, scopeID uint) (uint, error) {
	var maxOrder sql.NullInt64
	err := tx.WithContext(ctx).
		Model(model).
		Where(scopeColumn+" = ?", scopeID).
		Select(`MAX("order")`).
		Row().
		Scan(&maxOrder)
	if err != nil {
		return 0, fmt.Errorf("failed to read max order: %w", err)
	}
	if !maxOrder.Valid {
		return 0, nil
	}
	if maxOrder.Int64 >= MaxOrder {
		return 0, fmt.Errorf("%w: no rank left after %d", ErrOrderOutOfRange, maxOrder.Int64)
	}
	return uint(maxOrder.Int64) + 1, nil
}

// resolveOrder keeps an explicit order as given and computes one otherwise
func resolveOrder(ctx context.Context, tx *gorm.DB, model interface{}, scopeColumn string, scopeID uint, explicit *uint) (uint, error) {
	if explicit != nil {
		if *explicit > MaxOrder {
			return 0, fmt.Errorf("%w: %d", ErrOrderOutOfRange, *explicit)
		}
		return *explicit, nil
	}
	return NextOrder(ctx, tx, model, scopeColumn, scopeID)
}

// orderScope runs fn while holding the parent's ordering lock, if one is configured
type orderScope struct {
	locker OrderLocker
	log    *logger.Logger
}

func (o orderScope) run(ctx context.Context, table string, scopeID uint, fn func() error) error {
	if o.locker == nil {
		return fn()
	}

	key := fmt.Sprintf("order_lock:%s:%d", table, scopeID)
	release, err := o.locker.Lock(ctx, key)
	if err != nil {
		// degrade to unlocked creation
		o.log.Warn("order lock unavailable", "key", key, "error", err)
		return fn()
	}
	defer release()

	return fn()
}

// reorderScope rewrites the order of every child of scopeID. ids come first in
// the given sequence; siblings not listed follow in their current order.
func reorderScope(ctx context.Context, tx *gorm.DB, model interface{}, scopeColumn string, scopeID uint, ids []uint) error {
	var existing []uint
	err := tx.WithContext(ctx).
		Model(model).
		Where(scopeColumn+" = ?", scopeID).
		Order(`"order" ASC, id ASC`).
		Pluck("id", &existing).Error
	if err != nil {
		return fmt.Errorf("failed to load siblings: %w", err)
	}

	siblings := make(map[uint]bool, len(existing))
	for _, id := range existing {
		siblings[id] = true
	}

	listed := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if !siblings[id] || listed[id] {
			return fmt.Errorf("%w: id %d", ErrInvalidOrder, id)
		}
		listed[id] = true
	}

	sequence := append([]uint(nil), ids...)
	for _, id := range existing {
		if !listed[id] {
			sequence = append(sequence, id)
		}
	}

	for i, id := range sequence {
		err := tx.WithContext(ctx).
			Model(model).
			Where("id = ?", id).
			UpdateColumn("order", uint(i)).Error
		if err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
	}
	return nil
}
