package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/shop/internal/core/domain"
	"github.com/rl1809/shop/internal/core/query"
)

func TestMemberService(t *testing.T) {
	app := newSQLiteApp(t, nil)
	ctx := context.Background()

	kimID, err := app.members.Join(ctx, "kim", domain.NewAddress("Seoul", "1", "11"))
	require.NoError(t, err)
	_, err = app.members.Join(ctx, "kim", domain.NewAddress("Busan", "2", "22"))
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = app.members.Join(ctx, " ", domain.NewAddress("Busan", "2", "22"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	leeID, err := app.members.Join(ctx, "lee", domain.NewAddress("Busan", "2", "22"))
	require.NoError(t, err)

	members, err := app.members.FindMembers(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	require.NoError(t, app.members.UpdateName(ctx, leeID, "park"))
	lee, err := app.members.FindMember(ctx, leeID)
	require.NoError(t, err)
	assert.Equal(t, "park", lee.Name)
	assert.Equal(t, "Busan", lee.Address.City())

	assert.ErrorIs(t, app.members.UpdateName(ctx, leeID, "kim"), domain.ErrConflict)
	assert.ErrorIs(t, app.members.UpdateName(ctx, "missing", "choi"), domain.ErrNotFound)

	kim, err := app.members.FindMember(ctx, kimID)
	require.NoError(t, err)
	assert.Equal(t, "kim", kim.Name)
}

func TestItemService_RegisterEveryKind(t *testing.T) {
	app := newSQLiteApp(t, nil)
	ctx := context.Background()

	cmds := []NewItemCommand{
		{Kind: domain.ItemKindBook, Name: "JPA1", Price: 10000, StockQuantity: 10, Author: "kim", ISBN: "978"},
		{Kind: "album", Name: "Palette", Price: 15000, StockQuantity: 3, Artist: "iu"},
		{Kind: domain.ItemKindMovie, Name: "Parasite", Price: 9000, StockQuantity: 1, Director: "bong", Actor: "song"},
	}
	for _, cmd := range cmds {
		item, err := app.items.RegisterItem(ctx, cmd)
		require.NoError(t, err)
		assert.Equal(t, domain.ItemKind(strings.ToUpper(string(cmd.Kind))), item.Kind())

		got, err := app.items.FindItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, cmd.Name, got.Name)
		assert.Equal(t, cmd.StockQuantity, got.StockQuantity())
	}

	_, err := app.items.RegisterItem(ctx, NewItemCommand{Kind: "VINYL", Name: "x", Price: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = app.items.RegisterItem(ctx, NewItemCommand{Kind: domain.ItemKindBook, Name: "x", Price: -1})
	assert.ErrorIs(t, err, domain.ErrValidation)

	items, err := app.items.FindItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, domain.Album{Artist: "iu"}, items[1].Details)
}

func TestItemService_UpdateItem(t *testing.T) {
	app := newSQLiteApp(t, nil)
	ctx := context.Background()
	itemID := app.book(t, "JPA1", 10000, 10)

	err := app.items.UpdateItem(ctx, domain.UpdateItemCommand{ID: itemID, Name: "JPA1 2nd", Price: 12000, StockQuantity: 4})
	require.NoError(t, err)

	item, err := app.items.FindItem(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, "JPA1 2nd", item.Name)
	assert.Equal(t, int64(12000), item.Price)
	assert.Equal(t, 4, item.StockQuantity())
	assert.Equal(t, 2, item.Version)

	err = app.items.UpdateItem(ctx, domain.UpdateItemCommand{ID: itemID, Name: "JPA1", Price: 1, StockQuantity: -1})
	assert.ErrorIs(t, err, domain.ErrValidation)
	err = app.items.UpdateItem(ctx, domain.UpdateItemCommand{ID: "missing", Name: "JPA1", Price: 1, StockQuantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestItemService_UpdateKeepsOrderPrice(t *testing.T) {
	app := newSQLiteApp(t, nil)
	ctx := context.Background()
	memberID := app.member(t, "userA")
	itemID := app.book(t, "JPA1", 10000, 10)

	_, err := app.orders.PlaceOrder(ctx, memberID, itemID, 2)
	require.NoError(t, err)
	require.NoError(t, app.items.UpdateItem(ctx, domain.UpdateItemCommand{ID: itemID, Name: "JPA1", Price: 99000, StockQuantity: 8}))

	views, err := app.orders.ListOrders(ctx, query.StrategyBatch, query.OrderSearch{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, int64(10000), views[0].Items[0].OrderPrice)
	assert.Equal(t, int64(20000), views[0].TotalPrice)
}

func TestCategoryService(t *testing.T) {
	app := newSQLiteApp(t, nil)
	ctx := context.Background()
	itemID := app.book(t, "JPA1", 10000, 10)

	books, err := app.categories.CreateCategory(ctx, "books", "")
	require.NoError(t, err)
	tech, err := app.categories.CreateCategory(ctx, "tech", books.ID)
	require.NoError(t, err)

	_, err = app.categories.CreateCategory(ctx, "orphan", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, app.categories.AssignItem(ctx, tech.ID, itemID))
	assert.ErrorIs(t, app.categories.AssignItem(ctx, tech.ID, "missing"), domain.ErrNotFound)
	assert.ErrorIs(t, app.categories.AssignItem(ctx, "missing", itemID), domain.ErrNotFound)

	children, err := app.categories.Children(ctx, books.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "tech", children[0].Name)

	items, err := app.categories.ItemsIn(ctx, tech.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, itemID, items[0].ID)

	_, err = app.categories.ItemsIn(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
