package service

import (
	"context"
	"fmt"

	"github.com/rl1809/shop/internal/core/domain"
	"github.com/rl1809/shop/internal/platform/logger"
)

const sampleStock = 100

// Fixture is what Seed created, keyed by member and item name.
type Fixture struct {
	Members  map[string]string
	Items    map[string]string
	OrderIDs []string
}

type sampleOrder struct {
	member  string
	street  string
	zipcode string
	lines   []sampleLine
}

type sampleLine struct {
	name  string
	price int64
	count int
}

var sampleOrders = []sampleOrder{
	{
		member: "userA", street: "1", zipcode: "11",
		lines: []sampleLine{{"JPA1", 10000, 1}, {"JPA2", 20000, 2}},
	},
	{
		member: "userB", street: "2", zipcode: "22",
		lines: []sampleLine{{"STRING1", 10000, 1}, {"STRING2", 20000, 2}},
	},
}

// Seeder loads sample data: two members, each with one order of two books.
type Seeder struct {
	members *MemberService
	items   *ItemService
	orders  *OrderService
	log     *logger.Logger
}

func NewSeeder(members *MemberService, items *ItemService, orders *OrderService, log *logger.Logger) *Seeder {
	return &Seeder{
		members: members,
		items:   items,
		orders:  orders,
		log:     log.With("service", "Seeder"),
	}
}

func (s *Seeder) Seed(ctx context.Context) (Fixture, error) {
	fx := Fixture{
		Members: make(map[string]string),
		Items:   make(map[string]string),
	}

	for _, so := range sampleOrders {
		memberID, err := s.members.Join(ctx, so.member, domain.NewAddress("Seoul", so.street, so.zipcode))
		if err != nil {
			return fx, fmt.Errorf("seed member %s: %w", so.member, err)
		}
		fx.Members[so.member] = memberID

		cmd := PlaceOrderCommand{MemberID: memberID}
		for _, l := range so.lines {
			item, err := s.items.RegisterItem(ctx, NewItemCommand{
				Kind:          domain.ItemKindBook,
				Name:          l.name,
				Price:         l.price,
				StockQuantity: sampleStock,
			})
			if err != nil {
				return fx, fmt.Errorf("seed item %s: %w", l.name, err)
			}
			fx.Items[l.name] = item.ID
			cmd.Lines = append(cmd.Lines, OrderLineCommand{ItemID: item.ID, Count: l.count})
		}

		orderID, err := s.orders.Place(ctx, cmd)
		if err != nil {
			return fx, fmt.Errorf("seed order for %s: %w", so.member, err)
		}
		fx.OrderIDs = append(fx.OrderIDs, orderID)
	}

	s.log.Info("sample data loaded", "members", len(fx.Members), "items", len(fx.Items), "orders", len(fx.OrderIDs))
	return fx, nil
}
