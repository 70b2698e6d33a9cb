package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rl1809/shop/internal/core/domain"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Save inserts a new order with its delivery and lines, or writes back the
// status of a loaded one. Items are a separate aggregate and are saved by
// the caller.
func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	db := r.db.WithContext(ctx)

	if order.Version == 0 {
		delivery := deliveryRecordOf(order.Delivery)
		if err := db.Create(&delivery).Error; err != nil {
			return mapError("insert delivery", err)
		}

		rec := orderRecordOf(order)
		rec.Version = 1
		if err := db.Omit(clause.Associations).Create(&rec).Error; err != nil {
			return mapError("insert order", err)
		}

		lines := make([]orderItemRecord, 0, len(order.Items))
		for _, oi := range order.Items {
			lines = append(lines, orderItemRecordOf(oi))
		}
		if len(lines) > 0 {
			if err := db.Omit(clause.Associations).Create(&lines).Error; err != nil {
				return mapError("insert order items", err)
			}
		}
		order.Version = 1
		return nil
	}

	result := db.Model(&orderRecord{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]any{
			"status":  string(order.Status),
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return mapError("update order", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: order %s changed since version %d", domain.ErrConflict, order.ID, order.Version)
	}

	err := db.Model(&deliveryRecord{}).
		Where("id = ?", order.Delivery.ID).
		Update("status", string(order.Delivery.Status)).Error
	if err != nil {
		return mapError("update delivery", err)
	}

	order.Version++
	return nil
}

// FindByID loads the order with member, delivery, lines and items. The
// order row and its items stay locked until the transaction ends.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var rec orderRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: clause.CurrentTable}}).
		Joins("Member").
		Joins("Delivery").
		Preload("OrderItems", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("order_items.id")
		}).
		Preload("OrderItems.Item", func(tx *gorm.DB) *gorm.DB {
			return tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}).
		Where("orders.id = ?", id).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError("order", id)
	}
	if err != nil {
		return nil, mapError("find order", err)
	}

	order := rec.toDomain()
	shareItems(order)
	return order, nil
}

// shareItems makes lines that reference the same item point at one
// instance, so stock changes accumulate.
func shareItems(order *domain.Order) {
	seen := make(map[string]*domain.Item, len(order.Items))
	for _, oi := range order.Items {
		if oi.Item == nil {
			continue
		}
		if it, ok := seen[oi.ItemID]; ok {
			oi.Item = it
			continue
		}
		seen[oi.ItemID] = oi.Item
	}
}
