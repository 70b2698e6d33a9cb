package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/rl1809/shop/internal/core/domain"
	"github.com/rl1809/shop/internal/core/query"
	"github.com/rl1809/shop/internal/core/service"
	"github.com/rl1809/shop/internal/platform/logger"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HTTPHandler struct {
	orders     *service.OrderService
	items      *service.ItemService
	members    *service.MemberService
	categories *service.CategoryService
	limiter    *rate.Limiter
	ready      Pinger
	log        *logger.Logger
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type MemberRequest struct {
	Name    string `json:"name"`
	City    string `json:"city"`
	Street  string `json:"street"`
	Zipcode string `json:"zipcode"`
}

type MemberResponse struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Address query.AddressView `json:"address"`
}

type ItemResponse struct {
	ID            string          `json:"id"`
	Kind          domain.ItemKind `json:"kind"`
	Name          string          `json:"name"`
	Price         int64           `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Description   string          `json:"description"`
	CategoryIDs   []string        `json:"category_ids,omitempty"`
	Version       int             `json:"version"`
}

type UpdateItemRequest struct {
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	StockQuantity int    `json:"stock_quantity"`
}

type CategoryRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
}

type CategoryResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

type PlaceOrderResponse struct {
	OrderID string `json:"order_id"`
}

// NewHTTPHandler builds the REST adapter. A nil limiter leaves order
// placement unthrottled; a nil ready pinger makes /health always succeed.
func NewHTTPHandler(
	orders *service.OrderService,
	items *service.ItemService,
	members *service.MemberService,
	categories *service.CategoryService,
	limiter *rate.Limiter,
	ready Pinger,
	log *logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		orders:     orders,
		items:      items,
		members:    members,
		categories: categories,
		limiter:    limiter,
		ready:      ready,
		log:        log.With("component", "http"),
	}
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/members", func(r chi.Router) {
			r.Post("/", h.JoinMember)
			r.Get("/", h.ListMembers)
			r.Get("/{id}", h.GetMember)
			r.Patch("/{id}", h.RenameMember)
		})
		r.Route("/items", func(r chi.Router) {
			r.Post("/", h.RegisterItem)
			r.Get("/", h.ListItems)
			r.Get("/{id}", h.GetItem)
			r.Patch("/{id}", h.UpdateItem)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Post("/", h.CreateCategory)
			r.Get("/{id}/children", h.CategoryChildren)
			r.Get("/{id}/items", h.CategoryItems)
			r.Put("/{id}/items/{itemID}", h.AssignItem)
		})
		r.Route("/orders", func(r chi.Router) {
			r.With(h.throttle).Post("/", h.PlaceOrder)
			r.Get("/", h.ListOrders)
			r.Get("/summaries", h.OrderSummaries)
			r.Post("/{id}/cancel", h.CancelOrder)
			r.Post("/{id}/ship", h.ShipOrder)
			r.Post("/{id}/complete", h.CompleteDelivery)
		})
	})
	return r
}

func (h *HTTPHandler) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter != nil && !h.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, Response{Success: false, Message: "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready.Ping(r.Context()); err != nil {
			h.log.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) JoinMember(w http.ResponseWriter, r *http.Request) {
	var req MemberRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := h.members.Join(r.Context(), req.Name, domain.NewAddress(req.City, req.Street, req.Zipcode))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *HTTPHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.FindMembers(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	m, err := h.members.FindMember(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memberResponse(m))
}

func (h *HTTPHandler) RenameMember(w http.ResponseWriter, r *http.Request) {
	var req MemberRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.members.UpdateName(r.Context(), chi.URLParam(r, "id"), req.Name); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "member updated"})
}

func (h *HTTPHandler) RegisterItem(w http.ResponseWriter, r *http.Request) {
	var cmd service.NewItemCommand
	if !decode(w, r, &cmd) {
		return
	}
	item, err := h.items.RegisterItem(r.Context(), cmd)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, itemResponse(item))
}

func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.FindItems(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponses(items))
}

func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.items.FindItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse(item))
}

func (h *HTTPHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if !decode(w, r, &req) {
		return
	}
	err := h.items.UpdateItem(r.Context(), domain.UpdateItemCommand{
		ID:            chi.URLParam(r, "id"),
		Name:          req.Name,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "item updated"})
}

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.categories.CreateCategory(r.Context(), req.Name, req.ParentID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CategoryResponse{ID: c.ID, Name: c.Name, ParentID: c.ParentID})
}

func (h *HTTPHandler) CategoryChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.categories.Children(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]CategoryResponse, 0, len(children))
	for _, c := range children {
		out = append(out, CategoryResponse{ID: c.ID, Name: c.Name, ParentID: c.ParentID})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) CategoryItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.categories.ItemsIn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponses(items))
}

func (h *HTTPHandler) AssignItem(w http.ResponseWriter, r *http.Request) {
	err := h.categories.AssignItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "item assigned"})
}

func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var cmd service.PlaceOrderCommand
	if !decode(w, r, &cmd) {
		return
	}
	if cmd.RequestID == "" {
		cmd.RequestID = r.Header.Get("Idempotency-Key")
	}

	orderID, err := h.orders.Place(r.Context(), cmd)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, PlaceOrderResponse{OrderID: orderID})
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	strategy, err := query.ParseStrategy(r.URL.Query().Get("strategy"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	search, err := parseSearch(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	views, err := h.orders.ListOrders(r.Context(), strategy, search)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if views == nil {
		views = []query.OrderView{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *HTTPHandler) OrderSummaries(w http.ResponseWriter, r *http.Request) {
	search, err := parseSearch(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	summaries, err := h.orders.FindOrderSummaries(r.Context(), search)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if summaries == nil {
		summaries = []query.OrderSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	h.orderCommand(w, r, h.orders.CancelOrder, "order cancelled")
}

func (h *HTTPHandler) ShipOrder(w http.ResponseWriter, r *http.Request) {
	h.orderCommand(w, r, h.orders.ShipOrder, "order shipped")
}

func (h *HTTPHandler) CompleteDelivery(w http.ResponseWriter, r *http.Request) {
	h.orderCommand(w, r, h.orders.CompleteDelivery, "delivery completed")
}

func (h *HTTPHandler) orderCommand(w http.ResponseWriter, r *http.Request, run func(context.Context, string) error, message string) {
	if err := run(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: message})
}

func parseSearch(r *http.Request) (query.OrderSearch, error) {
	q := r.URL.Query()
	search := query.OrderSearch{
		Status:     domain.OrderStatus(q.Get("status")),
		MemberName: q.Get("member"),
		MemberID:   q.Get("member_id"),
	}
	if search.Status != "" && !search.Status.Valid() {
		return search, errBadParam("status")
	}
	var err error
	if search.Offset, err = intParam(q.Get("offset")); err != nil {
		return search, errBadParam("offset")
	}
	if search.Limit, err = intParam(q.Get("limit")); err != nil {
		return search, errBadParam("limit")
	}
	return search, nil
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("not a non-negative integer")
	}
	return n, nil
}

func errBadParam(name string) error {
	return errors.Join(domain.ErrValidation, errors.New("bad query parameter "+name))
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Message: "invalid request body",
		})
		return false
	}
	return true
}

// writeError maps an error kind to its status code. Unknown errors are
// logged and reported as internal.
func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, query.ErrUnknownStrategy),
		errors.Is(err, query.ErrCollectionFetchPagination),
		errors.Is(err, query.ErrMultipleCollectionFetch),
		errors.Is(err, query.ErrOrderPagination):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrDuplicateRequest):
		status, message = http.StatusConflict, "duplicate request"
	case errors.Is(err, domain.ErrConflict):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrInsufficientStock):
		status, message = http.StatusGone, "sold out"
	case errors.Is(err, domain.ErrIllegalStateTransition):
		status, message = http.StatusUnprocessableEntity, err.Error()
	default:
		h.log.Error("request failed", "error", err)
	}

	writeJSON(w, status, Response{Success: false, Message: message})
}

func memberResponse(m *domain.Member) MemberResponse {
	return MemberResponse{ID: m.ID, Name: m.Name, Address: query.AddressOf(m.Address)}
}

func itemResponse(i *domain.Item) ItemResponse {
	return ItemResponse{
		ID:            i.ID,
		Kind:          i.Kind(),
		Name:          i.Name,
		Price:         i.Price,
		StockQuantity: i.StockQuantity(),
		Description:   domain.Describe(i),
		CategoryIDs:   i.CategoryIDs,
		Version:       i.Version,
	}
}

func itemResponses(items []*domain.Item) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, i := range items {
		out = append(out, itemResponse(i))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
