package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rl1809/shop/internal/core/domain"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Save(ctx context.Context, category *domain.Category) error {
	rec := categoryRecordOf(category)
	if err := r.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return mapError("save category", err)
	}
	return nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*domain.Category, error) {
	var rec categoryRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError("category", id)
	}
	if err != nil {
		return nil, mapError("find category", err)
	}
	return rec.toDomain(), nil
}

func (r *CategoryRepository) FindChildren(ctx context.Context, parentID string) ([]*domain.Category, error) {
	var recs []categoryRecord
	err := r.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("name, id").
		Find(&recs).Error
	if err != nil {
		return nil, mapError("find child categories", err)
	}
	categories := make([]*domain.Category, 0, len(recs))
	for _, rec := range recs {
		categories = append(categories, rec.toDomain())
	}
	return categories, nil
}

func (r *CategoryRepository) AddItem(ctx context.Context, categoryID, itemID string) error {
	link := categoryItemRecord{CategoryID: categoryID, ItemID: itemID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&link).Error
	if err != nil {
		return mapError("link item to category", err)
	}
	return nil
}

func (r *CategoryRepository) FindItems(ctx context.Context, categoryID string) ([]*domain.Item, error) {
	var recs []itemRecord
	err := r.db.WithContext(ctx).
		Joins("JOIN category_items ON category_items.item_id = items.id").
		Where("category_items.category_id = ?", categoryID).
		Order("items.name, items.id").
		Find(&recs).Error
	if err != nil {
		return nil, mapError("find category items", err)
	}
	return itemsOf(recs), nil
}
