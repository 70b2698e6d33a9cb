package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newMember(t testing.TB) *Member {
	t.Helper()
	m, err := NewMember("userA", NewAddress("Seoul", "1", "11"))
	require.NoError(t, err)
	return m
}

func TestCreateOrder(t *testing.T) {
	member := newMember(t)
	jpa1 := newBook(t, "JPA1", 10000, 100)
	jpa2 := newBook(t, "JPA2", 20000, 100)

	order, err := CreateOrder(member, NewDelivery(member.Address), Line(jpa1, 1), Line(jpa2, 2))
	require.NoError(t, err)

	assert.Equal(t, OrderStatusOrdered, order.Status)
	assert.Equal(t, DeliveryStatusReady, order.Delivery.Status)
	assert.Equal(t, member.ID, order.MemberID)
	assert.Equal(t, int64(50000), order.TotalPrice())
	assert.Equal(t, 99, jpa1.StockQuantity())
	assert.Equal(t, 98, jpa2.StockQuantity())
	require.Len(t, order.Items, 2)
	assert.Equal(t, order.ID, order.Items[0].OrderID)
}

func TestCreateOrder_PriceIsSnapshot(t *testing.T) {
	member := newMember(t)
	jpa1 := newBook(t, "JPA1", 10000, 10)

	order, err := CreateOrder(member, NewDelivery(member.Address), Line(jpa1, 2))
	require.NoError(t, err)

	jpa1.Price = 99999
	assert.Equal(t, int64(10000), order.Items[0].OrderPrice())
	assert.Equal(t, int64(20000), order.TotalPrice())
}

func TestCreateOrder_InsufficientStockTouchesNothing(t *testing.T) {
	member := newMember(t)
	jpa1 := newBook(t, "JPA1", 10000, 5)
	jpa2 := newBook(t, "JPA2", 20000, 1)

	_, err := CreateOrder(member, NewDelivery(member.Address), Line(jpa1, 2), Line(jpa2, 2))
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 5, jpa1.StockQuantity())
	assert.Equal(t, 1, jpa2.StockQuantity())
}

func TestCreateOrder_SameItemTwice(t *testing.T) {
	member := newMember(t)
	jpa1 := newBook(t, "JPA1", 10000, 3)

	_, err := CreateOrder(member, NewDelivery(member.Address), Line(jpa1, 2), Line(jpa1, 2))
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 3, jpa1.StockQuantity())

	order, err := CreateOrder(member, NewDelivery(member.Address), Line(jpa1, 1), Line(jpa1, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, jpa1.StockQuantity())
	assert.Len(t, order.DistinctItems(), 1)
}

func TestCreateOrder_Validation(t *testing.T) {
	member := newMember(t)
	jpa1 := newBook(t, "JPA1", 10000, 3)
	copyOfJPA1 := RestoreItem(jpa1.ID, jpa1.Name, jpa1.Price, 3, jpa1.Details, 1)

	tests := []struct {
		name   string
		member *Member
		lines  []OrderLine
	}{
		{"no member", nil, []OrderLine{Line(jpa1, 1)}},
		{"no lines", member, nil},
		{"zero count", member, []OrderLine{Line(jpa1, 0)}},
		{"nil item", member, []OrderLine{Line(nil, 1)}},
		{"two instances of one item", member, []OrderLine{Line(jpa1, 1), Line(copyOfJPA1, 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateOrder(tt.member, NewDelivery(member.Address), tt.lines...)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, 3, jpa1.StockQuantity())
		})
	}
}

func TestCancel(t *testing.T) {
	member := newMember(t)
	jpa1 := newBook(t, "JPA1", 10000, 10)

	order, err := CreateOrder(member, NewDelivery(member.Address), Line(jpa1, 4))
	require.NoError(t, err)
	require.Equal(t, 6, jpa1.StockQuantity())

	require.NoError(t, order.Cancel())
	assert.Equal(t, OrderStatusCancelled, order.Status)
	assert.Equal(t, 10, jpa1.StockQuantity())

	assert.ErrorIs(t, order.Cancel(), ErrIllegalStateTransition)
	assert.Equal(t, 10, jpa1.StockQuantity())
}

func TestCancel_CompletedDelivery(t *testing.T) {
	member := newMember(t)
	jpa1 := newBook(t, "JPA1", 10000, 10)

	order, err := CreateOrder(member, NewDelivery(member.Address), Line(jpa1, 1))
	require.NoError(t, err)
	require.NoError(t, order.CompleteDelivery())

	assert.ErrorIs(t, order.Cancel(), ErrIllegalStateTransition)
	assert.Equal(t, OrderStatusOrdered, order.Status)
	assert.Equal(t, 9, jpa1.StockQuantity())
}

func TestCancel_ItemsNotLoaded(t *testing.T) {
	order := &Order{
		ID:     "o1",
		Status: OrderStatusOrdered,
		Items:  []*OrderItem{RestoreOrderItem("l1", "o1", "i1", nil, 100, 1)},
	}
	require.Error(t, order.Cancel())
	assert.Equal(t, OrderStatusOrdered, order.Status)
}

func TestShip(t *testing.T) {
	member := newMember(t)
	jpa1 := newBook(t, "JPA1", 10000, 10)

	order, err := CreateOrder(member, NewDelivery(member.Address), Line(jpa1, 1))
	require.NoError(t, err)
	require.NoError(t, order.Ship())
	assert.Equal(t, DeliveryStatusShipped, order.Delivery.Status)
	assert.ErrorIs(t, order.Ship(), ErrIllegalStateTransition)

	// shipped orders can still be cancelled
	require.NoError(t, order.Cancel())
	assert.ErrorIs(t, order.Ship(), ErrIllegalStateTransition)
	assert.ErrorIs(t, order.CompleteDelivery(), ErrIllegalStateTransition)
}

func TestDeliveryTransitions(t *testing.T) {
	d := NewDelivery(NewAddress("Seoul", "1", "11"))
	require.NoError(t, d.Complete())
	assert.Equal(t, DeliveryStatusCompleted, d.Status)
	assert.ErrorIs(t, d.Complete(), ErrIllegalStateTransition)
	assert.ErrorIs(t, d.Ship(), ErrIllegalStateTransition)
}

// The total is the sum of price*count over the lines, creation takes
// exactly the ordered quantities, a failed creation changes nothing and a
// cancel puts every unit back.
func TestOrderStockProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		member, err := NewMember("userA", NewAddress("Seoul", "1", "11"))
		if err != nil {
			t.Fatalf("member: %v", err)
		}

		n := rapid.IntRange(1, 4).Draw(t, "items")
		items := make([]*Item, n)
		stocks := make([]int, n)
		for i := range items {
			stocks[i] = rapid.IntRange(0, 20).Draw(t, fmt.Sprintf("stock%d", i))
			price := rapid.Int64Range(0, 50000).Draw(t, fmt.Sprintf("price%d", i))
			items[i], err = NewItem(fmt.Sprintf("item%d", i), price, stocks[i], Book{})
			if err != nil {
				t.Fatalf("item: %v", err)
			}
		}

		var lines []OrderLine
		need := make([]int, n)
		var wantTotal int64
		lineCount := rapid.IntRange(1, 6).Draw(t, "lines")
		for i := 0; i < lineCount; i++ {
			idx := rapid.IntRange(0, n-1).Draw(t, fmt.Sprintf("line%d", i))
			count := rapid.IntRange(1, 10).Draw(t, fmt.Sprintf("count%d", i))
			lines = append(lines, Line(items[idx], count))
			need[idx] += count
			wantTotal += items[idx].Price * int64(count)
		}

		enough := true
		for i := range items {
			if need[i] > stocks[i] {
				enough = false
			}
		}

		order, err := CreateOrder(member, NewDelivery(member.Address), lines...)
		if !enough {
			if err == nil {
				t.Fatalf("expected insufficient stock")
			}
			for i, it := range items {
				if it.StockQuantity() != stocks[i] {
					t.Fatalf("failed creation changed stock of item %d: %d -> %d", i, stocks[i], it.StockQuantity())
				}
			}
			return
		}
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if order.TotalPrice() != wantTotal {
			t.Fatalf("total %d, want %d", order.TotalPrice(), wantTotal)
		}
		for i, it := range items {
			if it.StockQuantity() != stocks[i]-need[i] {
				t.Fatalf("item %d stock %d, want %d", i, it.StockQuantity(), stocks[i]-need[i])
			}
		}

		if err := order.Cancel(); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		for i, it := range items {
			if it.StockQuantity() != stocks[i] {
				t.Fatalf("cancel left item %d at %d, want %d", i, it.StockQuantity(), stocks[i])
			}
		}
	})
}
