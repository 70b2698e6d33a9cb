package storage

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rl1809/shop/internal/core/domain"
	"github.com/rl1809/shop/internal/core/query"
)

const (
	defaultBatchSize = 100
	maxBatchSize     = 1000
)

// OrderQueryRepository serves the order listing. Every method returns the
// same orders in the same order (ordered_at, then id) with lines ordered by
// line id; they differ only in how many statements they send.
type OrderQueryRepository struct {
	db        *gorm.DB
	batchSize int
}

func NewOrderQueryRepository(db *gorm.DB, batchSize int) *OrderQueryRepository {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if batchSize > maxBatchSize {
		batchSize = maxBatchSize
	}
	return &OrderQueryRepository{db: db, batchSize: batchSize}
}

// FindAllFullGraph loads the orders, then each association of each order
// with its own statement. Members and items already seen in this call are
// reused.
func (r *OrderQueryRepository) FindAllFullGraph(ctx context.Context, search query.OrderSearch) ([]*domain.Order, error) {
	search = search.Normalize()
	db := r.db.WithContext(ctx)

	tx := db.Model(&orderRecord{})
	if search.MemberName != "" {
		tx = tx.Joins("JOIN members ON members.id = orders.member_id")
	}
	tx = filterOrders(tx, search, "orders", "members")
	tx = window(tx, search, "orders")

	var recs []orderRecord
	if err := tx.Find(&recs).Error; err != nil {
		return nil, mapError("list orders", err)
	}

	cache := newEntityCache(db)
	orders := make([]*domain.Order, 0, len(recs))
	for _, rec := range recs {
		var delivery deliveryRecord
		if err := db.Where("id = ?", rec.DeliveryID).Take(&delivery).Error; err != nil {
			return nil, mapError("load delivery", err)
		}
		rec.Delivery = delivery

		order := rec.toDomain()
		member, err := cache.member(rec.MemberID)
		if err != nil {
			return nil, err
		}
		order.Member = member

		if err := cache.loadLines(order); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// FindAllWithMemberDelivery fetches member and delivery in the root
// statement; lines and their items still load per order.
func (r *OrderQueryRepository) FindAllWithMemberDelivery(ctx context.Context, search query.OrderSearch) ([]*domain.Order, error) {
	search = search.Normalize()
	db := r.db.WithContext(ctx)

	recs, err := r.findJoinedToOne(db, search)
	if err != nil {
		return nil, err
	}

	cache := newEntityCache(db)
	orders := make([]*domain.Order, 0, len(recs))
	for _, rec := range recs {
		order := rec.toDomain()
		if err := cache.loadLines(order); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// FindAllFetchJoined builds the orders from one joined statement. Member and
// delivery are always joined; lines and items are joined when the plan asks
// for them, and then the result cannot be paginated.
func (r *OrderQueryRepository) FindAllFetchJoined(ctx context.Context, plan query.FetchPlan, search query.OrderSearch) ([]*domain.Order, error) {
	if err := plan.Validate(search); err != nil {
		return nil, err
	}
	search = search.Normalize()
	db := r.db.WithContext(ctx)

	if !plan.Has(query.AssocOrderItems) {
		recs, err := r.findJoinedToOne(db, search)
		if err != nil {
			return nil, err
		}
		orders := make([]*domain.Order, 0, len(recs))
		for _, rec := range recs {
			orders = append(orders, rec.toDomain())
		}
		return orders, nil
	}

	var rows []fetchRow
	tx := db.Table("orders o").
		Select(fetchColumns).
		Joins("JOIN members m ON m.id = o.member_id").
		Joins("JOIN deliveries d ON d.id = o.delivery_id").
		Joins("LEFT JOIN order_items oi ON oi.order_id = o.id").
		Joins("LEFT JOIN items i ON i.id = oi.item_id")
	tx = filterOrders(tx, search, "o", "m")
	tx = tx.Order(orderColumn("o", "ordered_at")).
		Order(orderColumn("o", "id")).
		Order(orderColumn("oi", "id"))
	if err := tx.Scan(&rows).Error; err != nil {
		return nil, mapError("fetch join orders", err)
	}
	return foldFetchRows(rows), nil
}

// FindAllBatched fetches member and delivery in the root statement, then
// lines and items with IN queries of at most batchSize ids each.
func (r *OrderQueryRepository) FindAllBatched(ctx context.Context, search query.OrderSearch) ([]*domain.Order, error) {
	search = search.Normalize()
	db := r.db.WithContext(ctx)

	recs, err := r.findJoinedToOne(db, search)
	if err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(recs))
	byID := make(map[string]*domain.Order, len(recs))
	orderIDs := make([]string, 0, len(recs))
	for _, rec := range recs {
		order := rec.toDomain()
		orders = append(orders, order)
		byID[order.ID] = order
		orderIDs = append(orderIDs, order.ID)
	}

	var lines []orderItemRecord
	for _, ids := range chunk(orderIDs, r.batchSize) {
		var batch []orderItemRecord
		if err := db.Where("order_id IN ?", ids).Order("id").Find(&batch).Error; err != nil {
			return nil, mapError("batch load order items", err)
		}
		lines = append(lines, batch...)
	}

	itemIDs := make([]string, 0, len(lines))
	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		if !seen[l.ItemID] {
			seen[l.ItemID] = true
			itemIDs = append(itemIDs, l.ItemID)
		}
	}
	items := make(map[string]*domain.Item, len(itemIDs))
	for _, ids := range chunk(itemIDs, r.batchSize) {
		var batch []itemRecord
		if err := db.Where("id IN ?", ids).Find(&batch).Error; err != nil {
			return nil, mapError("batch load items", err)
		}
		for _, rec := range batch {
			items[rec.ID] = rec.toDomain()
		}
	}

	for _, l := range lines {
		order := byID[l.OrderID]
		order.Items = append(order.Items,
			domain.RestoreOrderItem(l.ID, l.OrderID, l.ItemID, items[l.ItemID], l.OrderPrice, l.Count))
	}
	return orders, nil
}

// FindViewsPerOrder projects the order summaries, then the lines of each
// order with one statement per order.
func (r *OrderQueryRepository) FindViewsPerOrder(ctx context.Context, search query.OrderSearch) ([]query.OrderView, error) {
	search = search.Normalize()
	db := r.db.WithContext(ctx)

	summaries, err := r.findSummaries(db, search)
	if err != nil {
		return nil, err
	}
	lines := make(map[string][]query.OrderItemView, len(summaries))
	for _, s := range summaries {
		var rows []lineRow
		err := lineProjection(db).
			Where("oi.order_id = ?", s.OrderID).
			Order("oi.id").
			Scan(&rows).Error
		if err != nil {
			return nil, mapError("project order items", err)
		}
		lines[s.OrderID] = lineViews(rows)
	}
	return query.Attach(summaries, lines), nil
}

// FindViewsBatched projects the order summaries, then every line of the page
// with IN queries.
func (r *OrderQueryRepository) FindViewsBatched(ctx context.Context, search query.OrderSearch) ([]query.OrderView, error) {
	search = search.Normalize()
	db := r.db.WithContext(ctx)

	summaries, err := r.findSummaries(db, search)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.OrderID)
	}

	var all []query.OrderItemView
	for _, batch := range chunk(ids, r.batchSize) {
		var rows []lineRow
		err := lineProjection(db).
			Where("oi.order_id IN ?", batch).
			Order("oi.id").
			Scan(&rows).Error
		if err != nil {
			return nil, mapError("project order items", err)
		}
		all = append(all, lineViews(rows)...)
	}
	return query.Attach(summaries, query.GroupByOrder(all)), nil
}

// FindViewsFlat projects orders and lines with one joined statement and
// folds the rows back per order. It cannot paginate by order.
func (r *OrderQueryRepository) FindViewsFlat(ctx context.Context, search query.OrderSearch) ([]query.OrderView, error) {
	if err := query.StrategyDTOFlat.Check(search); err != nil {
		return nil, err
	}
	search = search.Normalize()

	var rows []flatRow
	tx := r.db.WithContext(ctx).Table("orders o").
		Select(flatColumns).
		Joins("JOIN members m ON m.id = o.member_id").
		Joins("JOIN deliveries d ON d.id = o.delivery_id").
		Joins("JOIN order_items oi ON oi.order_id = o.id").
		Joins("JOIN items i ON i.id = oi.item_id")
	tx = filterOrders(tx, search, "o", "m")
	tx = tx.Order(orderColumn("o", "ordered_at")).
		Order(orderColumn("o", "id")).
		Order(orderColumn("oi", "id"))
	if err := tx.Scan(&rows).Error; err != nil {
		return nil, mapError("project flat orders", err)
	}

	flat := make([]query.FlatRow, 0, len(rows))
	for _, row := range rows {
		flat = append(flat, query.FlatRow{
			OrderID:    row.OrderID,
			MemberName: row.MemberName,
			OrderedAt:  row.OrderedAt,
			Status:     domain.OrderStatus(row.Status),
			City:       row.City,
			Street:     row.Street,
			Zipcode:    row.Zipcode,
			ItemName:   row.ItemName,
			OrderPrice: row.OrderPrice,
			Count:      row.Count,
		})
	}
	views := query.GroupFlat(flat)
	if len(views) > query.MaxResults {
		views = views[:query.MaxResults]
	}
	return views, nil
}

// FindSummaries projects the to-one side of the orders only.
func (r *OrderQueryRepository) FindSummaries(ctx context.Context, search query.OrderSearch) ([]query.OrderSummary, error) {
	return r.findSummaries(r.db.WithContext(ctx), search.Normalize())
}

func (r *OrderQueryRepository) findJoinedToOne(db *gorm.DB, search query.OrderSearch) ([]orderRecord, error) {
	tx := db.Model(&orderRecord{}).Joins("Member").Joins("Delivery")
	tx = filterOrders(tx, search, "orders", "Member")
	tx = window(tx, search, "orders")

	var recs []orderRecord
	if err := tx.Find(&recs).Error; err != nil {
		return nil, mapError("list orders", err)
	}
	return recs, nil
}

func (r *OrderQueryRepository) findSummaries(db *gorm.DB, search query.OrderSearch) ([]query.OrderSummary, error) {
	var rows []summaryRow
	tx := db.Table("orders o").
		Select(summaryColumns).
		Joins("JOIN members m ON m.id = o.member_id").
		Joins("JOIN deliveries d ON d.id = o.delivery_id")
	tx = filterOrders(tx, search, "o", "m")
	tx = window(tx, search, "o")
	if err := tx.Scan(&rows).Error; err != nil {
		return nil, mapError("project orders", err)
	}

	summaries := make([]query.OrderSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, query.OrderSummary{
			OrderID:    row.OrderID,
			MemberName: row.MemberName,
			OrderedAt:  row.OrderedAt,
			Status:     domain.OrderStatus(row.Status),
			Address:    query.AddressView{City: row.City, Street: row.Street, Zipcode: row.Zipcode},
		})
	}
	return summaries, nil
}

func filterOrders(tx *gorm.DB, search query.OrderSearch, orders, members string) *gorm.DB {
	if search.Status != "" {
		tx = tx.Where(clause.Eq{Column: clause.Column{Table: orders, Name: "status"}, Value: string(search.Status)})
	}
	if search.MemberID != "" {
		tx = tx.Where(clause.Eq{Column: clause.Column{Table: orders, Name: "member_id"}, Value: search.MemberID})
	}
	if pattern := search.MemberPattern(); pattern != "" {
		tx = tx.Where(clause.Expr{
			SQL:  "? LIKE ? ESCAPE '" + query.LikeEscape + "'",
			Vars: []any{clause.Column{Table: members, Name: "name"}, pattern},
		})
	}
	return tx
}

func window(tx *gorm.DB, search query.OrderSearch, orders string) *gorm.DB {
	offset, limit := search.Window()
	return tx.Order(orderColumn(orders, "ordered_at")).
		Order(orderColumn(orders, "id")).
		Offset(offset).
		Limit(limit)
}

func orderColumn(table, name string) clause.OrderByColumn {
	return clause.OrderByColumn{Column: clause.Column{Table: table, Name: name}}
}

func chunk(ids []string, size int) [][]string {
	var chunks [][]string
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}

// entityCache keeps one instance per member and item for the duration of
// one listing call.
type entityCache struct {
	db      *gorm.DB
	members map[string]*domain.Member
	items   map[string]*domain.Item
}

func newEntityCache(db *gorm.DB) *entityCache {
	return &entityCache{
		db:      db,
		members: make(map[string]*domain.Member),
		items:   make(map[string]*domain.Item),
	}
}

func (c *entityCache) member(id string) (*domain.Member, error) {
	if m, ok := c.members[id]; ok {
		return m, nil
	}
	var rec memberRecord
	if err := c.db.Where("id = ?", id).Take(&rec).Error; err != nil {
		return nil, mapError("load member", err)
	}
	m := rec.toDomain()
	c.members[id] = m
	return m, nil
}

func (c *entityCache) item(id string) (*domain.Item, error) {
	if it, ok := c.items[id]; ok {
		return it, nil
	}
	var rec itemRecord
	if err := c.db.Where("id = ?", id).Take(&rec).Error; err != nil {
		return nil, mapError("load item", err)
	}
	it := rec.toDomain()
	c.items[id] = it
	return it, nil
}

// loadLines reads the order's lines with one statement and then each item
// not seen yet with one statement apiece.
func (c *entityCache) loadLines(order *domain.Order) error {
	var lines []orderItemRecord
	if err := c.db.Where("order_id = ?", order.ID).Order("id").Find(&lines).Error; err != nil {
		return mapError("load order items", err)
	}
	for _, l := range lines {
		item, err := c.item(l.ItemID)
		if err != nil {
			return err
		}
		order.Items = append(order.Items,
			domain.RestoreOrderItem(l.ID, l.OrderID, l.ItemID, item, l.OrderPrice, l.Count))
	}
	return nil
}

const summaryColumns = "o.id AS order_id, m.name AS member_name, o.ordered_at AS ordered_at, " +
	"o.status AS status, d.city AS city, d.street AS street, d.zipcode AS zipcode"

type summaryRow struct {
	OrderID    string    `gorm:"column:order_id"`
	MemberName string    `gorm:"column:member_name"`
	OrderedAt  time.Time `gorm:"column:ordered_at"`
	Status     string    `gorm:"column:status"`
	City       string    `gorm:"column:city"`
	Street     string    `gorm:"column:street"`
	Zipcode    string    `gorm:"column:zipcode"`
}

type lineRow struct {
	OrderID    string `gorm:"column:order_id"`
	ItemName   string `gorm:"column:item_name"`
	OrderPrice int64  `gorm:"column:order_price"`
	Count      int    `gorm:"column:line_count"`
}

func lineProjection(db *gorm.DB) *gorm.DB {
	return db.Table("order_items oi").
		Select("oi.order_id AS order_id, i.name AS item_name, oi.order_price AS order_price, oi.count AS line_count").
		Joins("JOIN items i ON i.id = oi.item_id")
}

func lineViews(rows []lineRow) []query.OrderItemView {
	views := make([]query.OrderItemView, 0, len(rows))
	for _, row := range rows {
		views = append(views, query.OrderItemView{
			OrderID:    row.OrderID,
			ItemName:   row.ItemName,
			OrderPrice: row.OrderPrice,
			Count:      row.Count,
		})
	}
	return views
}

const flatColumns = summaryColumns +
	", i.name AS item_name, oi.order_price AS order_price, oi.count AS line_count"

type flatRow struct {
	OrderID    string    `gorm:"column:order_id"`
	MemberName string    `gorm:"column:member_name"`
	OrderedAt  time.Time `gorm:"column:ordered_at"`
	Status     string    `gorm:"column:status"`
	City       string    `gorm:"column:city"`
	Street     string    `gorm:"column:street"`
	Zipcode    string    `gorm:"column:zipcode"`
	ItemName   string    `gorm:"column:item_name"`
	OrderPrice int64     `gorm:"column:order_price"`
	Count      int       `gorm:"column:line_count"`
}

const fetchColumns = "o.id AS order_id, o.member_id AS member_id, o.delivery_id AS delivery_id, " +
	"o.ordered_at AS ordered_at, o.status AS status, o.version AS version, " +
	"m.name AS member_name, m.city AS member_city, m.street AS member_street, m.zipcode AS member_zipcode, " +
	"m.created_at AS member_created_at, m.updated_at AS member_updated_at, " +
	"d.city AS delivery_city, d.street AS delivery_street, d.zipcode AS delivery_zipcode, d.status AS delivery_status, " +
	"oi.id AS line_id, oi.item_id AS item_id, oi.order_price AS order_price, oi.count AS line_count, " +
	"i.dtype AS item_dtype, i.name AS item_name, i.price AS item_price, i.stock_quantity AS item_stock, " +
	"i.author AS item_author, i.isbn AS item_isbn, i.artist AS item_artist, i.etc AS item_etc, " +
	"i.director AS item_director, i.actor AS item_actor, i.version AS item_version"

// fetchRow is one row of the fully joined order graph. Line and item
// columns are null for an order without lines.
type fetchRow struct {
	OrderID         string    `gorm:"column:order_id"`
	MemberID        string    `gorm:"column:member_id"`
	DeliveryID      string    `gorm:"column:delivery_id"`
	OrderedAt       time.Time `gorm:"column:ordered_at"`
	Status          string    `gorm:"column:status"`
	Version         int       `gorm:"column:version"`
	MemberName      string    `gorm:"column:member_name"`
	MemberCity      string    `gorm:"column:member_city"`
	MemberStreet    string    `gorm:"column:member_street"`
	MemberZipcode   string    `gorm:"column:member_zipcode"`
	MemberCreatedAt time.Time `gorm:"column:member_created_at"`
	MemberUpdatedAt time.Time `gorm:"column:member_updated_at"`
	DeliveryCity    string    `gorm:"column:delivery_city"`
	DeliveryStreet  string    `gorm:"column:delivery_street"`
	DeliveryZipcode string    `gorm:"column:delivery_zipcode"`
	DeliveryStatus  string    `gorm:"column:delivery_status"`
	LineID          *string   `gorm:"column:line_id"`
	ItemID          *string   `gorm:"column:item_id"`
	OrderPrice      *int64    `gorm:"column:order_price"`
	LineCount       *int      `gorm:"column:line_count"`
	ItemDtype       *string   `gorm:"column:item_dtype"`
	ItemName        *string   `gorm:"column:item_name"`
	ItemPrice       *int64    `gorm:"column:item_price"`
	ItemStock       *int      `gorm:"column:item_stock"`
	ItemAuthor      *string   `gorm:"column:item_author"`
	ItemISBN        *string   `gorm:"column:item_isbn"`
	ItemArtist      *string   `gorm:"column:item_artist"`
	ItemEtc         *string   `gorm:"column:item_etc"`
	ItemDirector    *string   `gorm:"column:item_director"`
	ItemActor       *string   `gorm:"column:item_actor"`
	ItemVersion     *int      `gorm:"column:item_version"`
}

func (row fetchRow) item() itemRecord {
	return itemRecord{
		ID:            deref(row.ItemID),
		Dtype:         deref(row.ItemDtype),
		Name:          deref(row.ItemName),
		Price:         deref(row.ItemPrice),
		StockQuantity: deref(row.ItemStock),
		Author:        deref(row.ItemAuthor),
		ISBN:          deref(row.ItemISBN),
		Artist:        deref(row.ItemArtist),
		Etc:           deref(row.ItemEtc),
		Director:      deref(row.ItemDirector),
		Actor:         deref(row.ItemActor),
		Version:       deref(row.ItemVersion),
	}
}

// foldFetchRows removes the duplication the collection join introduces: one
// order per order id, one instance per member and item.
func foldFetchRows(rows []fetchRow) []*domain.Order {
	var orders []*domain.Order
	byID := make(map[string]*domain.Order)
	members := make(map[string]*domain.Member)
	items := make(map[string]*domain.Item)

	for _, row := range rows {
		order, ok := byID[row.OrderID]
		if !ok {
			if len(orders) == query.MaxResults {
				break
			}
			member, ok := members[row.MemberID]
			if !ok {
				member = memberRecord{
					ID:        row.MemberID,
					Name:      row.MemberName,
					Address:   addressColumns{City: row.MemberCity, Street: row.MemberStreet, Zipcode: row.MemberZipcode},
					CreatedAt: row.MemberCreatedAt,
					UpdatedAt: row.MemberUpdatedAt,
				}.toDomain()
				members[row.MemberID] = member
			}
			order = &domain.Order{
				ID:       row.OrderID,
				MemberID: row.MemberID,
				Member:   member,
				Delivery: deliveryRecord{
					ID:      row.DeliveryID,
					Address: addressColumns{City: row.DeliveryCity, Street: row.DeliveryStreet, Zipcode: row.DeliveryZipcode},
					Status:  row.DeliveryStatus,
				}.toDomain(),
				OrderedAt: row.OrderedAt,
				Status:    domain.OrderStatus(row.Status),
				Version:   row.Version,
			}
			byID[row.OrderID] = order
			orders = append(orders, order)
		}

		if row.LineID == nil {
			continue
		}
		itemID := deref(row.ItemID)
		item, ok := items[itemID]
		if !ok {
			item = row.item().toDomain()
			items[itemID] = item
		}
		order.Items = append(order.Items,
			domain.RestoreOrderItem(*row.LineID, row.OrderID, itemID, item, deref(row.OrderPrice), deref(row.LineCount)))
	}
	return orders
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
