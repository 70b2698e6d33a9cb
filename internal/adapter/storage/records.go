package storage

import (
	"time"

	"github.com/rl1809/shop/internal/core/domain"
)

type addressColumns struct {
	City    string `gorm:"type:varchar(100)"`
	Street  string `gorm:"type:varchar(200)"`
	Zipcode string `gorm:"type:varchar(20)"`
}

func addressColumnsOf(a domain.Address) addressColumns {
	return addressColumns{City: a.City(), Street: a.Street(), Zipcode: a.Zipcode()}
}

func (a addressColumns) toDomain() domain.Address {
	return domain.NewAddress(a.City, a.Street, a.Zipcode)
}

type memberRecord struct {
	ID        string         `gorm:"type:varchar(36);primaryKey"`
	Name      string         `gorm:"type:varchar(100);uniqueIndex;not null"`
	Address   addressColumns `gorm:"embedded"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (memberRecord) TableName() string { return "members" }

func memberRecordOf(m *domain.Member) memberRecord {
	return memberRecord{
		ID:        m.ID,
		Name:      m.Name,
		Address:   addressColumnsOf(m.Address),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func (r memberRecord) toDomain() *domain.Member {
	return &domain.Member{
		ID:        r.ID,
		Name:      r.Name,
		Address:   r.Address.toDomain(),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// itemRecord stores every item kind in one table; Dtype selects which of
// the kind columns are meaningful.
type itemRecord struct {
	ID            string `gorm:"type:varchar(36);primaryKey"`
	Dtype         string `gorm:"type:varchar(10);index;not null"`
	Name          string `gorm:"type:varchar(200);not null"`
	Price         int64  `gorm:"not null"`
	StockQuantity int    `gorm:"not null"`
	Author        string `gorm:"type:varchar(100)"`
	ISBN          string `gorm:"column:isbn;type:varchar(20)"`
	Artist        string `gorm:"type:varchar(100)"`
	Etc           string `gorm:"type:varchar(200)"`
	Director      string `gorm:"type:varchar(100)"`
	Actor         string `gorm:"type:varchar(100)"`
	Version       int    `gorm:"not null;default:1"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (itemRecord) TableName() string { return "items" }

func itemRecordOf(i *domain.Item) itemRecord {
	rec := itemRecord{
		ID:            i.ID,
		Dtype:         string(i.Kind()),
		Name:          i.Name,
		Price:         i.Price,
		StockQuantity: i.StockQuantity(),
		Version:       i.Version,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
	switch d := i.Details.(type) {
	case domain.Book:
		rec.Author, rec.ISBN = d.Author, d.ISBN
	case domain.Album:
		rec.Artist, rec.Etc = d.Artist, d.Etc
	case domain.Movie:
		rec.Director, rec.Actor = d.Director, d.Actor
	}
	return rec
}

func (r itemRecord) details() domain.ItemDetails {
	switch domain.ItemKind(r.Dtype) {
	case domain.ItemKindBook:
		return domain.Book{Author: r.Author, ISBN: r.ISBN}
	case domain.ItemKindAlbum:
		return domain.Album{Artist: r.Artist, Etc: r.Etc}
	case domain.ItemKindMovie:
		return domain.Movie{Director: r.Director, Actor: r.Actor}
	}
	return nil
}

func (r itemRecord) toDomain() *domain.Item {
	item := domain.RestoreItem(r.ID, r.Name, r.Price, r.StockQuantity, r.details(), r.Version)
	item.CreatedAt = r.CreatedAt
	item.UpdatedAt = r.UpdatedAt
	return item
}

type deliveryRecord struct {
	ID      string         `gorm:"type:varchar(36);primaryKey"`
	Address addressColumns `gorm:"embedded"`
	Status  string         `gorm:"type:varchar(20);not null"`
}

func (deliveryRecord) TableName() string { return "deliveries" }

func deliveryRecordOf(d domain.Delivery) deliveryRecord {
	return deliveryRecord{
		ID:      d.ID,
		Address: addressColumnsOf(d.Address),
		Status:  string(d.Status),
	}
}

func (r deliveryRecord) toDomain() domain.Delivery {
	return domain.Delivery{
		ID:      r.ID,
		Address: r.Address.toDomain(),
		Status:  domain.DeliveryStatus(r.Status),
	}
}

type orderRecord struct {
	ID         string            `gorm:"type:varchar(36);primaryKey"`
	MemberID   string            `gorm:"type:varchar(36);index;not null"`
	Member     memberRecord      `gorm:"foreignKey:MemberID"`
	DeliveryID string            `gorm:"type:varchar(36);uniqueIndex;not null"`
	Delivery   deliveryRecord    `gorm:"foreignKey:DeliveryID"`
	OrderItems []orderItemRecord `gorm:"foreignKey:OrderID"`
	OrderedAt  time.Time         `gorm:"index;not null"`
	Status     string            `gorm:"type:varchar(20);index;not null"`
	Version    int               `gorm:"not null;default:1"`
}

func (orderRecord) TableName() string { return "orders" }

func orderRecordOf(o *domain.Order) orderRecord {
	return orderRecord{
		ID:         o.ID,
		MemberID:   o.MemberID,
		DeliveryID: o.Delivery.ID,
		OrderedAt:  o.OrderedAt,
		Status:     string(o.Status),
		Version:    o.Version,
	}
}

// toDomain maps the order row and whatever associations were loaded with
// it. A zero Member record means the member was not fetched.
func (r orderRecord) toDomain() *domain.Order {
	o := &domain.Order{
		ID:        r.ID,
		MemberID:  r.MemberID,
		Delivery:  r.Delivery.toDomain(),
		OrderedAt: r.OrderedAt,
		Status:    domain.OrderStatus(r.Status),
		Version:   r.Version,
	}
	if r.Delivery.ID == "" {
		o.Delivery.ID = r.DeliveryID
	}
	if r.Member.ID != "" {
		o.Member = r.Member.toDomain()
	}
	for _, oi := range r.OrderItems {
		o.Items = append(o.Items, oi.toDomain())
	}
	return o
}

type orderItemRecord struct {
	ID         string     `gorm:"type:varchar(36);primaryKey"`
	OrderID    string     `gorm:"type:varchar(36);index;not null"`
	ItemID     string     `gorm:"type:varchar(36);index;not null"`
	Item       itemRecord `gorm:"foreignKey:ItemID"`
	OrderPrice int64      `gorm:"not null"`
	Count      int        `gorm:"not null"`
}

func (orderItemRecord) TableName() string { return "order_items" }

func orderItemRecordOf(oi *domain.OrderItem) orderItemRecord {
	return orderItemRecord{
		ID:         oi.ID,
		OrderID:    oi.OrderID,
		ItemID:     oi.ItemID,
		OrderPrice: oi.OrderPrice(),
		Count:      oi.Count(),
	}
}

func (r orderItemRecord) toDomain() *domain.OrderItem {
	var item *domain.Item
	if r.Item.ID != "" {
		item = r.Item.toDomain()
	}
	return domain.RestoreOrderItem(r.ID, r.OrderID, r.ItemID, item, r.OrderPrice, r.Count)
}

type categoryRecord struct {
	ID       string  `gorm:"type:varchar(36);primaryKey"`
	Name     string  `gorm:"type:varchar(100);not null"`
	ParentID *string `gorm:"type:varchar(36);index"`
}

func (categoryRecord) TableName() string { return "categories" }

func categoryRecordOf(c *domain.Category) categoryRecord {
	rec := categoryRecord{ID: c.ID, Name: c.Name}
	if c.ParentID != "" {
		parent := c.ParentID
		rec.ParentID = &parent
	}
	return rec
}

func (r categoryRecord) toDomain() *domain.Category {
	c := &domain.Category{ID: r.ID, Name: r.Name}
	if r.ParentID != nil {
		c.ParentID = *r.ParentID
	}
	return c
}

type categoryItemRecord struct {
	CategoryID string `gorm:"type:varchar(36);primaryKey"`
	ItemID     string `gorm:"type:varchar(36);primaryKey;index"`
}

func (categoryItemRecord) TableName() string { return "category_items" }

func allRecords() []any {
	return []any{
		&memberRecord{},
		&itemRecord{},
		&deliveryRecord{},
		&orderRecord{},
		&orderItemRecord{},
		&categoryRecord{},
		&categoryItemRecord{},
	}
}
