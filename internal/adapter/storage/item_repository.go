package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rl1809/shop/internal/core/domain"
)

type ItemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Save inserts an item that has never been stored (version 0). Otherwise it
// writes the item back only if the stored version still matches the one it
// was loaded with.
func (r *ItemRepository) Save(ctx context.Context, item *domain.Item) error {
	db := r.db.WithContext(ctx)
	rec := itemRecordOf(item)

	if item.Version == 0 {
		rec.Version = 1
		if err := db.Create(&rec).Error; err != nil {
			return mapError("insert item", err)
		}
		item.Version = 1
		return nil
	}

	result := db.Model(&itemRecord{}).
		Where("id = ? AND version = ?", rec.ID, rec.Version).
		Updates(map[string]any{
			"name":           rec.Name,
			"price":          rec.Price,
			"stock_quantity": rec.StockQuantity,
			"author":         rec.Author,
			"isbn":           rec.ISBN,
			"artist":         rec.Artist,
			"etc":            rec.Etc,
			"director":       rec.Director,
			"actor":          rec.Actor,
			"version":        gorm.Expr("version + 1"),
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return mapError("update item", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: item %s changed since version %d", domain.ErrConflict, item.ID, item.Version)
	}

	item.Version++
	return nil
}

func (r *ItemRepository) FindByID(ctx context.Context, id string) (*domain.Item, error) {
	item, err := r.find(r.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if err := r.attachCategories(ctx, []*domain.Item{item}); err != nil {
		return nil, err
	}
	return item, nil
}

func (r *ItemRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Item, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *ItemRepository) find(db *gorm.DB, id string) (*domain.Item, error) {
	var rec itemRecord
	err := db.Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError("item", id)
	}
	if err != nil {
		return nil, mapError("find item", err)
	}
	return rec.toDomain(), nil
}

func (r *ItemRepository) FindAll(ctx context.Context) ([]*domain.Item, error) {
	var recs []itemRecord
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&recs).Error; err != nil {
		return nil, mapError("find items", err)
	}
	items := itemsOf(recs)
	if err := r.attachCategories(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ItemRepository) attachCategories(ctx context.Context, items []*domain.Item) error {
	if len(items) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Item, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		byID[it.ID] = it
		ids = append(ids, it.ID)
	}

	var links []categoryItemRecord
	err := r.db.WithContext(ctx).
		Where("item_id IN ?", ids).
		Order("item_id, category_id").
		Find(&links).Error
	if err != nil {
		return mapError("find item categories", err)
	}
	for _, l := range links {
		it := byID[l.ItemID]
		it.CategoryIDs = append(it.CategoryIDs, l.CategoryID)
	}
	return nil
}

func itemsOf(recs []itemRecord) []*domain.Item {
	items := make([]*domain.Item, 0, len(recs))
	for _, rec := range recs {
		items = append(items, rec.toDomain())
	}
	return items
}
