package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/shop/internal/core/domain"
	"github.com/rl1809/shop/internal/core/query"
	"github.com/rl1809/shop/internal/platform/logger"
	"github.com/rl1809/shop/internal/port"
)

type OrderLineCommand struct {
	ItemID string `json:"item_id"`
	Count  int    `json:"count"`
}

// PlaceOrderCommand orders one or more items for a member. A non-empty
// RequestID makes the placement idempotent.
type PlaceOrderCommand struct {
	RequestID string             `json:"request_id"`
	MemberID  string             `json:"member_id"`
	Lines     []OrderLineCommand `json:"lines"`
}

func (c PlaceOrderCommand) Validate() error {
	if strings.TrimSpace(c.MemberID) == "" {
		return invalid("member id is required")
	}
	if len(c.Lines) == 0 {
		return invalid("order needs at least one item")
	}
	for _, l := range c.Lines {
		if strings.TrimSpace(l.ItemID) == "" {
			return invalid("item id is required")
		}
		if l.Count <= 0 {
			return invalid("count for item %s must be positive, got %d", l.ItemID, l.Count)
		}
	}
	return nil
}

type OrderService struct {
	uow         port.UnitOfWork
	queries     port.OrderQueryRepository
	idempotency port.IdempotencyStore
	log         *logger.Logger
	tracer      trace.Tracer
}

// NewOrderService wires the order use cases. idempotency may be nil, in
// which case request ids are ignored.
func NewOrderService(uow port.UnitOfWork, queries port.OrderQueryRepository, idempotency port.IdempotencyStore, log *logger.Logger) *OrderService {
	return &OrderService{
		uow:         uow,
		queries:     queries,
		idempotency: idempotency,
		log:         log.With("service", "OrderService"),
		tracer:      tracer(),
	}
}

// PlaceOrder orders count units of one item for a member and returns the
// new order id.
func (s *OrderService) PlaceOrder(ctx context.Context, memberID, itemID string, count int) (string, error) {
	return s.Place(ctx, PlaceOrderCommand{
		MemberID: memberID,
		Lines:    []OrderLineCommand{{ItemID: itemID, Count: count}},
	})
}

// Place creates the order, its lines and delivery and takes the stock of
// every line in one unit of work. On any error nothing is stored.
func (s *OrderService) Place(ctx context.Context, cmd PlaceOrderCommand) (orderID string, err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Place", trace.WithAttributes(
		attribute.String("member.id", cmd.MemberID),
		attribute.Int("order.lines", len(cmd.Lines)),
	))
	defer func() { finish(span, err) }()

	if err := cmd.Validate(); err != nil {
		return "", err
	}

	if cmd.RequestID != "" && s.idempotency != nil {
		claimed, cerr := s.idempotency.SetIdempotency(ctx, cmd.RequestID)
		if cerr != nil {
			return "", fmt.Errorf("idempotency check failed: %w", cerr)
		}
		if !claimed {
			return "", ErrDuplicateRequest
		}
		defer func() {
			if err == nil {
				return
			}
			if rerr := s.idempotency.ReleaseIdempotency(context.WithoutCancel(ctx), cmd.RequestID); rerr != nil {
				s.log.Warn("release idempotency key", "request_id", cmd.RequestID, "error", rerr)
			}
		}()
	}

	err = s.uow.Do(ctx, func(ctx context.Context, repos port.Repositories) error {
		member, err := repos.Members().FindByID(ctx, cmd.MemberID)
		if err != nil {
			return err
		}

		// lock items in id order so concurrent placements cannot deadlock
		ids := make([]string, 0, len(cmd.Lines))
		for _, l := range cmd.Lines {
			ids = append(ids, l.ItemID)
		}
		slices.Sort(ids)
		ids = slices.Compact(ids)

		items := make(map[string]*domain.Item, len(ids))
		for _, id := range ids {
			item, err := repos.Items().FindByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			items[id] = item
		}

		lines := make([]domain.OrderLine, 0, len(cmd.Lines))
		for _, l := range cmd.Lines {
			lines = append(lines, domain.Line(items[l.ItemID], l.Count))
		}
		order, err := domain.CreateOrder(member, domain.NewDelivery(member.Address), lines...)
		if err != nil {
			return err
		}

		for _, id := range ids {
			if err := repos.Items().Save(ctx, items[id]); err != nil {
				return err
			}
		}
		if err := repos.Orders().Save(ctx, order); err != nil {
			return err
		}
		orderID = order.ID
		return nil
	})
	if err != nil {
		return "", err
	}

	span.SetAttributes(attribute.String("order.id", orderID))
	s.log.Info("order placed", "order_id", orderID, "member_id", cmd.MemberID, "lines", len(cmd.Lines))
	return orderID, nil
}

// CancelOrder cancels the order and returns every line's quantity to its
// item. A delivered order cannot be cancelled.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) (err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CancelOrder", trace.WithAttributes(
		attribute.String("order.id", orderID),
	))
	defer func() { finish(span, err) }()

	err = s.uow.Do(ctx, func(ctx context.Context, repos port.Repositories) error {
		order, err := repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.Cancel(); err != nil {
			return err
		}
		for _, item := range order.DistinctItems() {
			if err := repos.Items().Save(ctx, item); err != nil {
				return err
			}
		}
		return repos.Orders().Save(ctx, order)
	})
	if err != nil {
		return err
	}

	s.log.Info("order cancelled", "order_id", orderID)
	return nil
}

func (s *OrderService) ShipOrder(ctx context.Context, orderID string) error {
	return s.moveDelivery(ctx, "OrderService.ShipOrder", orderID, (*domain.Order).Ship)
}

func (s *OrderService) CompleteDelivery(ctx context.Context, orderID string) error {
	return s.moveDelivery(ctx, "OrderService.CompleteDelivery", orderID, (*domain.Order).CompleteDelivery)
}

func (s *OrderService) moveDelivery(ctx context.Context, name, orderID string, move func(*domain.Order) error) (err error) {
	ctx, span := s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("order.id", orderID),
	))
	defer func() { finish(span, err) }()

	var status domain.DeliveryStatus
	err = s.uow.Do(ctx, func(ctx context.Context, repos port.Repositories) error {
		order, err := repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := move(order); err != nil {
			return err
		}
		status = order.Delivery.Status
		return repos.Orders().Save(ctx, order)
	})
	if err != nil {
		return err
	}

	s.log.Info("delivery updated", "order_id", orderID, "status", status)
	return nil
}

// ListOrders returns the orders matching search, materialised with the
// given strategy.
func (s *OrderService) ListOrders(ctx context.Context, strategy query.Strategy, search query.OrderSearch) (views []query.OrderView, err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListOrders", trace.WithAttributes(
		attribute.String("query.strategy", string(strategy)),
		attribute.Int("query.offset", search.Offset),
		attribute.Int("query.limit", search.Limit),
	))
	defer func() { finish(span, err) }()

	if err := strategy.Check(search); err != nil {
		return nil, err
	}
	search = search.Normalize()

	switch strategy {
	case query.StrategyFullGraph:
		return s.entityViews(s.queries.FindAllFullGraph(ctx, search))
	case query.StrategyJoinToOne:
		return s.entityViews(s.queries.FindAllWithMemberDelivery(ctx, search))
	case query.StrategyJoinCollection:
		plan := query.FetchPlan{Joins: []query.Association{
			query.AssocMember, query.AssocDelivery, query.AssocOrderItems,
		}}
		return s.entityViews(s.queries.FindAllFetchJoined(ctx, plan, search))
	case query.StrategyBatch:
		return s.entityViews(s.queries.FindAllBatched(ctx, search))
	case query.StrategyDTOPerOrder:
		return s.queries.FindViewsPerOrder(ctx, search)
	case query.StrategyDTOBatched:
		return s.queries.FindViewsBatched(ctx, search)
	case query.StrategyDTOFlat:
		return s.queries.FindViewsFlat(ctx, search)
	default:
		return nil, fmt.Errorf("%w: %q", query.ErrUnknownStrategy, strategy)
	}
}

func (s *OrderService) entityViews(orders []*domain.Order, err error) ([]query.OrderView, error) {
	if err != nil {
		return nil, err
	}
	return query.ViewsOf(orders), nil
}

// FindOrderSummaries projects the orders without their lines.
func (s *OrderService) FindOrderSummaries(ctx context.Context, search query.OrderSearch) (summaries []query.OrderSummary, err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.FindOrderSummaries")
	defer func() { finish(span, err) }()

	return s.queries.FindSummaries(ctx, search.Normalize())
}
