package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/rl1809/shop/internal/adapter/storage"
	"github.com/rl1809/shop/internal/config"
	"github.com/rl1809/shop/internal/core/domain"
	"github.com/rl1809/shop/internal/core/query"
	"github.com/rl1809/shop/internal/core/service"
	"github.com/rl1809/shop/internal/platform/logger"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestServer(t *testing.T, limiter *rate.Limiter) (*httptest.Server, service.Fixture) {
	t.Helper()
	log := logger.NewNop()
	store, err := storage.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, log)
	if err != nil {
		t.Skipf("sqlite not available: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	items := service.NewItemService(store, log)
	members := service.NewMemberService(store, log)
	orders := service.NewOrderService(store, store.Queries(100), nil, log)
	categories := service.NewCategoryService(store, log)

	fixture, err := service.NewSeeder(members, items, orders, log).Seed(context.Background())
	require.NoError(t, err)

	h := NewHTTPHandler(orders, items, members, categories, limiter, store, log)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv, fixture
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthCheck(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var body map[string]string
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/health", nil, &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHealthCheck_Unavailable(t *testing.T) {
	h := &HTTPHandler{
		ready: pingerFunc(func(context.Context) error { return errors.New("down") }),
		log:   logger.NewNop(),
	}
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPlaceOrderEndpoint(t *testing.T) {
	srv, fx := newTestServer(t, nil)
	cmd := service.PlaceOrderCommand{
		RequestID: "req-1",
		MemberID:  fx.Members["userA"],
		Lines:     []service.OrderLineCommand{{ItemID: fx.Items["JPA1"], Count: 3}},
	}

	var placed PlaceOrderResponse
	require.Equal(t, http.StatusCreated, doJSON(t, http.MethodPost, srv.URL+"/api/orders", cmd, &placed))
	assert.NotEmpty(t, placed.OrderID)

	var item ItemResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/items/"+fx.Items["JPA1"], nil, &item))
	assert.Equal(t, 96, item.StockQuantity)

	var resp Response
	cmd.Lines[0].Count = 1000
	assert.Equal(t, http.StatusGone, doJSON(t, http.MethodPost, srv.URL+"/api/orders", cmd, &resp))
	assert.Equal(t, "sold out", resp.Message)

	cmd.Lines[0].Count = 0
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPost, srv.URL+"/api/orders", cmd, &resp))

	cmd.Lines[0] = service.OrderLineCommand{ItemID: "missing", Count: 1}
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodPost, srv.URL+"/api/orders", cmd, &resp))
}

func TestPlaceOrderEndpoint_BadBody(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/api/orders", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlaceOrderEndpoint_RateLimited(t *testing.T) {
	srv, fx := newTestServer(t, rate.NewLimiter(rate.Every(time.Minute), 1))
	cmd := service.PlaceOrderCommand{
		MemberID: fx.Members["userB"],
		Lines:    []service.OrderLineCommand{{ItemID: fx.Items["STRING1"], Count: 1}},
	}

	assert.Equal(t, http.StatusCreated, doJSON(t, http.MethodPost, srv.URL+"/api/orders", cmd, nil))
	var resp Response
	assert.Equal(t, http.StatusTooManyRequests, doJSON(t, http.MethodPost, srv.URL+"/api/orders", cmd, &resp))
	assert.False(t, resp.Success)

	// reads are not throttled
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/orders", nil, nil))
}

func TestListOrdersEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, s := range query.Strategies {
		var views []query.OrderView
		require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/orders?strategy="+string(s), nil, &views), s)
		require.Len(t, views, 2, s)
		assert.Equal(t, int64(50000), views[0].TotalPrice, s)
	}

	var views []query.OrderView
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/orders?member=userB", nil, &views))
	require.Len(t, views, 1)
	assert.Equal(t, "userB", views[0].MemberName)

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/orders?offset=1&limit=1", nil, &views))
	require.Len(t, views, 1)
	assert.Equal(t, "userB", views[0].MemberName)

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/orders?status=CANCELLED", nil, &views))
	assert.Empty(t, views)

	var resp Response
	bad := []string{
		"?strategy=lazy",
		"?strategy=join-collection&limit=1",
		"?strategy=dto-flat&offset=1",
		"?status=LOST",
		"?limit=-1",
		"?offset=abc",
	}
	for _, q := range bad {
		assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodGet, srv.URL+"/api/orders"+q, nil, &resp), q)
	}
}

func TestOrderSummariesEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var summaries []query.OrderSummary
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/orders/summaries", nil, &summaries))
	require.Len(t, summaries, 2)
	assert.Equal(t, "userA", summaries[0].MemberName)
}

func TestOrderLifecycleEndpoints(t *testing.T) {
	srv, fx := newTestServer(t, nil)
	first, second := fx.OrderIDs[0], fx.OrderIDs[1]
	var resp Response

	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, srv.URL+"/api/orders/"+first+"/cancel", nil, &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, http.StatusUnprocessableEntity, doJSON(t, http.MethodPost, srv.URL+"/api/orders/"+first+"/cancel", nil, &resp))

	var item ItemResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/items/"+fx.Items["JPA2"], nil, &item))
	assert.Equal(t, 100, item.StockQuantity)

	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, srv.URL+"/api/orders/"+second+"/ship", nil, &resp))
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, srv.URL+"/api/orders/"+second+"/complete", nil, &resp))
	assert.Equal(t, http.StatusUnprocessableEntity, doJSON(t, http.MethodPost, srv.URL+"/api/orders/"+second+"/cancel", nil, &resp))
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodPost, srv.URL+"/api/orders/missing/cancel", nil, &resp))
}

func TestMemberEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var created map[string]string
	req := MemberRequest{Name: "userC", City: "Busan", Street: "3", Zipcode: "33"}
	require.Equal(t, http.StatusCreated, doJSON(t, http.MethodPost, srv.URL+"/api/members", req, &created))
	id := created["id"]
	require.NotEmpty(t, id)

	var resp Response
	assert.Equal(t, http.StatusConflict, doJSON(t, http.MethodPost, srv.URL+"/api/members", req, &resp))

	var members []MemberResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/members", nil, &members))
	assert.Len(t, members, 3)

	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodPatch, srv.URL+"/api/members/"+id, MemberRequest{Name: "userD"}, &resp))
	var member MemberResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/members/"+id, nil, &member))
	assert.Equal(t, "userD", member.Name)
	assert.Equal(t, query.AddressView{City: "Busan", Street: "3", Zipcode: "33"}, member.Address)

	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, srv.URL+"/api/members/missing", nil, &resp))
}

func TestItemAndCategoryEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var album ItemResponse
	cmd := service.NewItemCommand{Kind: domain.ItemKindAlbum, Name: "Palette", Price: 15000, StockQuantity: 3, Artist: "iu"}
	require.Equal(t, http.StatusCreated, doJSON(t, http.MethodPost, srv.URL+"/api/items", cmd, &album))
	assert.Equal(t, domain.ItemKindAlbum, album.Kind)
	assert.Equal(t, 1, album.Version)

	var resp Response
	update := UpdateItemRequest{Name: "Palette", Price: 16000, StockQuantity: 5}
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodPatch, srv.URL+"/api/items/"+album.ID, update, &resp))
	update.StockQuantity = -1
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPatch, srv.URL+"/api/items/"+album.ID, update, &resp))

	var items []ItemResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/items", nil, &items))
	assert.Len(t, items, 5)

	var music, kpop CategoryResponse
	require.Equal(t, http.StatusCreated, doJSON(t, http.MethodPost, srv.URL+"/api/categories", CategoryRequest{Name: "music"}, &music))
	require.Equal(t, http.StatusCreated, doJSON(t, http.MethodPost, srv.URL+"/api/categories", CategoryRequest{Name: "kpop", ParentID: music.ID}, &kpop))
	assert.Equal(t, music.ID, kpop.ParentID)

	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodPut, srv.URL+"/api/categories/"+kpop.ID+"/items/"+album.ID, nil, &resp))

	var children []CategoryResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/categories/"+music.ID+"/children", nil, &children))
	require.Len(t, children, 1)
	assert.Equal(t, "kpop", children[0].Name)

	var inKpop []ItemResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/categories/"+kpop.ID+"/items", nil, &inKpop))
	require.Len(t, inKpop, 1)
	assert.Equal(t, 16000, int(inKpop[0].Price))

	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, srv.URL+"/api/categories/missing/items", nil, &resp))
}
