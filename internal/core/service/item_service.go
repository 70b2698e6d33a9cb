package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/shop/internal/core/domain"
	"github.com/rl1809/shop/internal/platform/logger"
	"github.com/rl1809/shop/internal/port"
)

// NewItemCommand registers an item of one kind. Only the fields of that
// kind are used.
type NewItemCommand struct {
	Kind          domain.ItemKind `json:"kind"`
	Name          string          `json:"name"`
	Price         int64           `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Author        string          `json:"author,omitempty"`
	ISBN          string          `json:"isbn,omitempty"`
	Artist        string          `json:"artist,omitempty"`
	Etc           string          `json:"etc,omitempty"`
	Director      string          `json:"director,omitempty"`
	Actor         string          `json:"actor,omitempty"`
}

func (c NewItemCommand) details() (domain.ItemDetails, error) {
	switch domain.ItemKind(strings.ToUpper(string(c.Kind))) {
	case domain.ItemKindBook:
		return domain.Book{Author: c.Author, ISBN: c.ISBN}, nil
	case domain.ItemKindAlbum:
		return domain.Album{Artist: c.Artist, Etc: c.Etc}, nil
	case domain.ItemKindMovie:
		return domain.Movie{Director: c.Director, Actor: c.Actor}, nil
	}
	return nil, invalid("unknown item kind %q", c.Kind)
}

type ItemService struct {
	uow    port.UnitOfWork
	log    *logger.Logger
	tracer trace.Tracer
}

func NewItemService(uow port.UnitOfWork, log *logger.Logger) *ItemService {
	return &ItemService{
		uow:    uow,
		log:    log.With("service", "ItemService"),
		tracer: tracer(),
	}
}

func (s *ItemService) RegisterItem(ctx context.Context, cmd NewItemCommand) (item *domain.Item, err error) {
	ctx, span := s.tracer.Start(ctx, "ItemService.RegisterItem", trace.WithAttributes(
		attribute.String("item.kind", string(cmd.Kind)),
	))
	defer func() { finish(span, err) }()

	details, err := cmd.details()
	if err != nil {
		return nil, err
	}
	item, err = domain.NewItem(cmd.Name, cmd.Price, cmd.StockQuantity, details)
	if err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(ctx context.Context, repos port.Repositories) error {
		return repos.Items().Save(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("item registered", "item_id", item.ID, "kind", item.Kind(), "stock", item.StockQuantity())
	return item, nil
}

// UpdateItem loads the item, applies the change and writes it back in one
// unit of work. Stock moves by delta through AddStock and RemoveStock.
func (s *ItemService) UpdateItem(ctx context.Context, cmd domain.UpdateItemCommand) (err error) {
	ctx, span := s.tracer.Start(ctx, "ItemService.UpdateItem", trace.WithAttributes(
		attribute.String("item.id", cmd.ID),
	))
	defer func() { finish(span, err) }()

	if err := cmd.Validate(); err != nil {
		return err
	}

	return s.uow.Do(ctx, func(ctx context.Context, repos port.Repositories) error {
		item, err := repos.Items().FindByIDForUpdate(ctx, cmd.ID)
		if err != nil {
			return err
		}
		if err := item.Apply(cmd); err != nil {
			return err
		}
		return repos.Items().Save(ctx, item)
	})
}

func (s *ItemService) FindItem(ctx context.Context, id string) (*domain.Item, error) {
	var item *domain.Item
	err := s.uow.Do(ctx, func(ctx context.Context, repos port.Repositories) error {
		var err error
		item, err = repos.Items().FindByID(ctx, id)
		return err
	})
	return item, err
}

func (s *ItemService) FindItems(ctx context.Context) ([]*domain.Item, error) {
	var items []*domain.Item
	err := s.uow.Do(ctx, func(ctx context.Context, repos port.Repositories) error {
		var err error
		items, err = repos.Items().FindAll(ctx)
		return err
	})
	return items, err
}
