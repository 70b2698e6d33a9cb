package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusOrdered   OrderStatus = "ORDERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	return s == OrderStatusOrdered || s == OrderStatusCancelled
}

// Order is the aggregate root. It owns its items and its delivery; the
// member is only referenced.
type Order struct {
	ID       string
	MemberID string
	// Member is set when the loading strategy fetched it.
	Member    *Member
	Items     []*OrderItem
	Delivery  Delivery
	OrderedAt time.Time
	Status    OrderStatus
	Version   int
}

// OrderItem is one order line. Its price is the item price at the time the
// order was placed and cannot change afterwards.
type OrderItem struct {
	ID      string
	OrderID string
	ItemID  string
	// Item is set when the loading strategy fetched it.
	Item       *Item
	orderPrice int64
	count      int
}

func RestoreOrderItem(id, orderID, itemID string, item *Item, orderPrice int64, count int) *OrderItem {
	return &OrderItem{
		ID:         id,
		OrderID:    orderID,
		ItemID:     itemID,
		Item:       item,
		orderPrice: orderPrice,
		count:      count,
	}
}

func (oi *OrderItem) OrderPrice() int64 { return oi.orderPrice }
func (oi *OrderItem) Count() int        { return oi.count }

func (oi *OrderItem) TotalPrice() int64 {
	return oi.orderPrice * int64(oi.count)
}

// OrderLine asks for count units of an item at the item's current price.
type OrderLine struct {
	Item  *Item
	Count int
}

func Line(item *Item, count int) OrderLine {
	return OrderLine{Item: item, Count: count}
}

// CreateOrder builds a new order and takes the stock for every line. Either
// all lines are taken or, on error, no item stock is touched.
func CreateOrder(member *Member, delivery Delivery, lines ...OrderLine) (*Order, error) {
	if member == nil {
		return nil, validationError("order member is required")
	}
	if len(lines) == 0 {
		return nil, validationError("order needs at least one item")
	}

	required := make(map[string]int, len(lines))
	items := make(map[string]*Item, len(lines))
	for _, l := range lines {
		if l.Item == nil {
			return nil, validationError("order line without item")
		}
		if l.Count <= 0 {
			return nil, validationError("count for item %s must be positive, got %d", l.Item.ID, l.Count)
		}
		if seen, ok := items[l.Item.ID]; ok && seen != l.Item {
			return nil, validationError("item %s referenced by two different instances", l.Item.ID)
		}
		items[l.Item.ID] = l.Item
		required[l.Item.ID] += l.Count
	}
	for id, need := range required {
		if have := items[id].StockQuantity(); have < need {
			return nil, fmt.Errorf("%w: item %s has %d, need %d", ErrInsufficientStock, id, have, need)
		}
	}

	order := &Order{
		ID:        uuid.NewString(),
		MemberID:  member.ID,
		Member:    member,
		Delivery:  delivery,
		OrderedAt: time.Now(),
		Status:    OrderStatusOrdered,
	}
	for _, l := range lines {
		if err := l.Item.RemoveStock(l.Count); err != nil {
			order.restock()
			return nil, err
		}
		order.Items = append(order.Items, &OrderItem{
			ID:         uuid.NewString(),
			OrderID:    order.ID,
			ItemID:     l.Item.ID,
			Item:       l.Item,
			orderPrice: l.Item.Price,
			count:      l.Count,
		})
	}
	return order, nil
}

// Cancel marks the order cancelled and puts every line's quantity back on
// its item. Items must be loaded.
func (o *Order) Cancel() error {
	if o.Delivery.Status == DeliveryStatusCompleted {
		return fmt.Errorf("%w: order %s already delivered", ErrIllegalStateTransition, o.ID)
	}
	if o.Status == OrderStatusCancelled {
		return fmt.Errorf("%w: order %s already cancelled", ErrIllegalStateTransition, o.ID)
	}
	for _, oi := range o.Items {
		if oi.Item == nil {
			return fmt.Errorf("order %s: item %s not loaded", o.ID, oi.ItemID)
		}
	}

	o.Status = OrderStatusCancelled
	o.restock()
	return nil
}

// Ship hands the delivery of an active order to the carrier.
func (o *Order) Ship() error {
	if o.Status == OrderStatusCancelled {
		return fmt.Errorf("%w: order %s is cancelled", ErrIllegalStateTransition, o.ID)
	}
	return o.Delivery.Ship()
}

func (o *Order) CompleteDelivery() error {
	if o.Status == OrderStatusCancelled {
		return fmt.Errorf("%w: order %s is cancelled", ErrIllegalStateTransition, o.ID)
	}
	return o.Delivery.Complete()
}

// DistinctItems returns each loaded item of the order once, in line order.
func (o *Order) DistinctItems() []*Item {
	seen := make(map[string]bool, len(o.Items))
	var items []*Item
	for _, oi := range o.Items {
		if oi.Item == nil || seen[oi.ItemID] {
			continue
		}
		seen[oi.ItemID] = true
		items = append(items, oi.Item)
	}
	return items
}

func (o *Order) restock() {
	for _, oi := range o.Items {
		_ = oi.Item.AddStock(oi.count)
	}
}

func (o *Order) TotalPrice() int64 {
	var total int64
	for _, oi := range o.Items {
		total += oi.TotalPrice()
	}
	return total
}
