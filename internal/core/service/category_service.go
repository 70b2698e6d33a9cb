package service

import (
	"context"

	"github.com/rl1809/shop/internal/core/domain"
	"github.com/rl1809/shop/internal/platform/logger"
	"github.com/rl1809/shop/internal/port"
)

type CategoryService struct {
	uow port.UnitOfWork
	log *logger.Logger
}

func NewCategoryService(uow port.UnitOfWork, log *logger.Logger) *CategoryService {
	return &CategoryService{uow: uow, log: log.With("service", "CategoryService")}
}

// CreateCategory adds a category under parentID, or a root category when
// parentID is empty.
func (s *CategoryService) CreateCategory(ctx context.Context, name, parentID string) (*domain.Category, error) {
	category, err := domain.NewCategory(name, parentID)
	if err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(ctx context.Context, repos port.Repositories) error {
		if !category.IsRoot() {
			if _, err := repos.Categories().FindByID(ctx, category.ParentID); err != nil {
				return err
			}
		}
		return repos.Categories().Save(ctx, category)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("category created", "category_id", category.ID, "parent_id", category.ParentID)
	return category, nil
}

func (s *CategoryService) AssignItem(ctx context.Context, categoryID, itemID string) error {
	return s.uow.Do(ctx, func(ctx context.Context, repos port.Repositories) error {
		if _, err := repos.Categories().FindByID(ctx, categoryID); err != nil {
			return err
		}
		if _, err := repos.Items().FindByID(ctx, itemID); err != nil {
			return err
		}
		return repos.Categories().AddItem(ctx, categoryID, itemID)
	})
}

func (s *CategoryService) Children(ctx context.Context, categoryID string) ([]*domain.Category, error) {
	var children []*domain.Category
	err := s.uow.Do(ctx, func(ctx context.Context, repos port.Repositories) error {
		var err error
		children, err = repos.Categories().FindChildren(ctx, categoryID)
		return err
	})
	return children, err
}

func (s *CategoryService) ItemsIn(ctx context.Context, categoryID string) ([]*domain.Item, error) {
	var items []*domain.Item
	err := s.uow.Do(ctx, func(ctx context.Context, repos port.Repositories) error {
		if _, err := repos.Categories().FindByID(ctx, categoryID); err != nil {
			return err
		}
		var err error
		items, err = repos.Categories().FindItems(ctx, categoryID)
		return err
	})
	return items, err
}
