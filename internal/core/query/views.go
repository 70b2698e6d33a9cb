package query

import (
	"time"

	"github.com/rl1809/shop/internal/core/domain"
)

type AddressView struct {
	City    string `json:"city"`
	Street  string `json:"street"`
	Zipcode string `json:"zipcode"`
}

func AddressOf(a domain.Address) AddressView {
	return AddressView{City: a.City(), Street: a.Street(), Zipcode: a.Zipcode()}
}

// OrderSummary is the to-one projection of an order: no lines.
type OrderSummary struct {
	OrderID    string             `json:"order_id"`
	MemberName string             `json:"member_name"`
	OrderedAt  time.Time          `json:"ordered_at"`
	Status     domain.OrderStatus `json:"status"`
	Address    AddressView        `json:"address"`
}

type OrderItemView struct {
	OrderID    string `json:"-"`
	ItemName   string `json:"item_name"`
	OrderPrice int64  `json:"order_price"`
	Count      int    `json:"count"`
}

type OrderView struct {
	OrderSummary
	Items      []OrderItemView `json:"items"`
	TotalPrice int64           `json:"total_price"`
}

// FlatRow is one row of the fully joined projection: one per order line.
type FlatRow struct {
	OrderID    string
	MemberName string
	OrderedAt  time.Time
	Status     domain.OrderStatus
	City       string
	Street     string
	Zipcode    string
	ItemName   string
	OrderPrice int64
	Count      int
}

// ViewOf projects a loaded order. Member and line items must be loaded.
func ViewOf(o *domain.Order) OrderView {
	v := OrderView{
		OrderSummary: OrderSummary{
			OrderID:   o.ID,
			OrderedAt: o.OrderedAt,
			Status:    o.Status,
			Address:   AddressOf(o.Delivery.Address),
		},
		Items:      make([]OrderItemView, 0, len(o.Items)),
		TotalPrice: o.TotalPrice(),
	}
	if o.Member != nil {
		v.MemberName = o.Member.Name
	}
	for _, oi := range o.Items {
		name := ""
		if oi.Item != nil {
			name = oi.Item.Name
		}
		v.Items = append(v.Items, OrderItemView{
			OrderID:    o.ID,
			ItemName:   name,
			OrderPrice: oi.OrderPrice(),
			Count:      oi.Count(),
		})
	}
	return v
}

func ViewsOf(orders []*domain.Order) []OrderView {
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, ViewOf(o))
	}
	return views
}

// Attach sets the lines of each summary from lines grouped by order id and
// computes the totals.
func Attach(summaries []OrderSummary, lines map[string][]OrderItemView) []OrderView {
	views := make([]OrderView, 0, len(summaries))
	for _, s := range summaries {
		items := lines[s.OrderID]
		if items == nil {
			items = []OrderItemView{}
		}
		views = append(views, OrderView{
			OrderSummary: s,
			Items:        items,
			TotalPrice:   total(items),
		})
	}
	return views
}

// GroupByOrder indexes lines by their order id.
func GroupByOrder(lines []OrderItemView) map[string][]OrderItemView {
	grouped := make(map[string][]OrderItemView)
	for _, l := range lines {
		grouped[l.OrderID] = append(grouped[l.OrderID], l)
	}
	return grouped
}

// GroupFlat folds flat rows back into one view per order, keeping the order
// in which each order first appears.
func GroupFlat(rows []FlatRow) []OrderView {
	index := make(map[string]int)
	var views []OrderView
	for _, r := range rows {
		i, ok := index[r.OrderID]
		if !ok {
			i = len(views)
			index[r.OrderID] = i
			views = append(views, OrderView{
				OrderSummary: OrderSummary{
					OrderID:    r.OrderID,
					MemberName: r.MemberName,
					OrderedAt:  r.OrderedAt,
					Status:     r.Status,
					Address:    AddressView{City: r.City, Street: r.Street, Zipcode: r.Zipcode},
				},
				Items: []OrderItemView{},
			})
		}
		views[i].Items = append(views[i].Items, OrderItemView{
			OrderID:    r.OrderID,
			ItemName:   r.ItemName,
			OrderPrice: r.OrderPrice,
			Count:      r.Count,
		})
	}
	for i := range views {
		views[i].TotalPrice = total(views[i].Items)
	}
	return views
}

func total(items []OrderItemView) int64 {
	var sum int64
	for _, it := range items {
		sum += it.OrderPrice * int64(it.Count)
	}
	return sum
}
