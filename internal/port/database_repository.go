package port

import (
	"context"

	"github.com/rl1809/shop/internal/core/domain"
	"github.com/rl1809/shop/internal/core/query"
)

type MemberRepository interface {
	// Save inserts or updates a member
	Save(ctx context.Context, member *domain.Member) error

	// FindByID returns domain.ErrNotFound for an unknown id
	FindByID(ctx context.Context, id string) (*domain.Member, error)

	FindByName(ctx context.Context, name string) ([]*domain.Member, error)

	FindAll(ctx context.Context) ([]*domain.Member, error)
}

type ItemRepository interface {
	// Save inserts a new item or writes back a loaded one, failing with
	// domain.ErrConflict when the stored version moved on
	Save(ctx context.Context, item *domain.Item) error

	// FindByID returns domain.ErrNotFound for an unknown id
	FindByID(ctx context.Context, id string) (*domain.Item, error)

	// FindByIDForUpdate loads the item and locks its row until the unit of work ends
	FindByIDForUpdate(ctx context.Context, id string) (*domain.Item, error)

	FindAll(ctx context.Context) ([]*domain.Item, error)
}

type OrderRepository interface {
	// Save persists the order together with its lines and delivery
	Save(ctx context.Context, order *domain.Order) error

	// FindByID loads the whole aggregate, items locked for update
	FindByID(ctx context.Context, id string) (*domain.Order, error)
}

type CategoryRepository interface {
	Save(ctx context.Context, category *domain.Category) error
	FindByID(ctx context.Context, id string) (*domain.Category, error)
	FindChildren(ctx context.Context, parentID string) ([]*domain.Category, error)

	// AddItem links an item to a category; linking twice is a no-op
	AddItem(ctx context.Context, categoryID, itemID string) error
	FindItems(ctx context.Context, categoryID string) ([]*domain.Item, error)
}

// Repositories is the set of repositories bound to one unit of work.
type Repositories interface {
	Members() MemberRepository
	Items() ItemRepository
	Orders() OrderRepository
	Categories() CategoryRepository
}

type UnitOfWork interface {
	// Do runs fn in one transaction. Every write made through repos commits
	// when fn returns nil and rolls back otherwise.
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// OrderQueryRepository is the read path of the order listing. Each method is
// one loading strategy.
type OrderQueryRepository interface {
	FindAllFullGraph(ctx context.Context, search query.OrderSearch) ([]*domain.Order, error)
	FindAllWithMemberDelivery(ctx context.Context, search query.OrderSearch) ([]*domain.Order, error)
	FindAllFetchJoined(ctx context.Context, plan query.FetchPlan, search query.OrderSearch) ([]*domain.Order, error)
	FindAllBatched(ctx context.Context, search query.OrderSearch) ([]*domain.Order, error)

	FindViewsPerOrder(ctx context.Context, search query.OrderSearch) ([]query.OrderView, error)
	FindViewsBatched(ctx context.Context, search query.OrderSearch) ([]query.OrderView, error)
	FindViewsFlat(ctx context.Context, search query.OrderSearch) ([]query.OrderView, error)

	FindSummaries(ctx context.Context, search query.OrderSearch) ([]query.OrderSummary, error)
}
