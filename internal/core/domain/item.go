package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ItemKind string

const (
	ItemKindBook  ItemKind = "BOOK"
	ItemKindAlbum ItemKind = "ALBUM"
	ItemKindMovie ItemKind = "MOVIE"
)

func (k ItemKind) Valid() bool {
	switch k {
	case ItemKindBook, ItemKindAlbum, ItemKindMovie:
		return true
	}
	return false
}

// ItemDetails is the kind-specific payload of an item. The set of
// implementations is closed: Book, Album and Movie.
type ItemDetails interface {
	Kind() ItemKind
	itemDetails()
}

type Book struct {
	Author string
	ISBN   string
}

type Album struct {
	Artist string
	Etc    string
}

type Movie struct {
	Director string
	Actor    string
}

func (Book) Kind() ItemKind  { return ItemKindBook }
func (Album) Kind() ItemKind { return ItemKindAlbum }
func (Movie) Kind() ItemKind { return ItemKindMovie }

func (Book) itemDetails()  {}
func (Album) itemDetails() {}
func (Movie) itemDetails() {}

// Item is a catalog entry. Stock can only change through RemoveStock and
// AddStock.
type Item struct {
	ID          string
	Name        string
	Price       int64
	Details     ItemDetails
	CategoryIDs []string
	// Version is bumped by storage on every write.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time

	stockQuantity int
}

func NewItem(name string, price int64, stockQuantity int, details ItemDetails) (*Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("item name is required")
	}
	if price < 0 {
		return nil, validationError("item price must not be negative")
	}
	if stockQuantity < 0 {
		return nil, validationError("stock quantity must not be negative")
	}
	if details == nil {
		return nil, validationError("item kind is required")
	}

	now := time.Now()
	return &Item{
		ID:            uuid.NewString(),
		Name:          name,
		Price:         price,
		Details:       details,
		CreatedAt:     now,
		UpdatedAt:     now,
		stockQuantity: stockQuantity,
	}, nil
}

// RestoreItem rebuilds an item from persisted state.
func RestoreItem(id, name string, price int64, stockQuantity int, details ItemDetails, version int) *Item {
	return &Item{
		ID:            id,
		Name:          name,
		Price:         price,
		Details:       details,
		Version:       version,
		stockQuantity: stockQuantity,
	}
}

func (i *Item) StockQuantity() int { return i.stockQuantity }

func (i *Item) Kind() ItemKind {
	if i.Details == nil {
		return ""
	}
	return i.Details.Kind()
}

func (i *Item) RemoveStock(quantity int) error {
	if quantity <= 0 {
		return validationError("quantity must be positive, got %d", quantity)
	}
	rest := i.stockQuantity - quantity
	if rest < 0 {
		return fmt.Errorf("%w: item %s has %d, need %d", ErrInsufficientStock, i.ID, i.stockQuantity, quantity)
	}
	i.stockQuantity = rest
	return nil
}

func (i *Item) AddStock(quantity int) error {
	if quantity <= 0 {
		return validationError("quantity must be positive, got %d", quantity)
	}
	i.stockQuantity += quantity
	return nil
}

// UpdateItemCommand carries the fields an item update may change. It is
// applied to a loaded item; it is never persisted on its own.
type UpdateItemCommand struct {
	ID            string
	Name          string
	Price         int64
	StockQuantity int
}

func (c UpdateItemCommand) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return validationError("item id is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return validationError("item name is required")
	}
	if c.Price < 0 {
		return validationError("item price must not be negative")
	}
	if c.StockQuantity < 0 {
		return validationError("stock quantity must not be negative")
	}
	return nil
}

// Apply changes name and price directly and moves stock to the requested
// quantity by delta.
func (i *Item) Apply(cmd UpdateItemCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if cmd.ID != i.ID {
		return validationError("command for item %s applied to item %s", cmd.ID, i.ID)
	}

	switch delta := cmd.StockQuantity - i.stockQuantity; {
	case delta > 0:
		if err := i.AddStock(delta); err != nil {
			return err
		}
	case delta < 0:
		if err := i.RemoveStock(-delta); err != nil {
			return err
		}
	}

	i.Name = strings.TrimSpace(cmd.Name)
	i.Price = cmd.Price
	i.UpdatedAt = time.Now()
	return nil
}

// Describe renders the kind-specific credit line of an item.
func Describe(item *Item) string {
	switch d := item.Details.(type) {
	case Book:
		return fmt.Sprintf("%s (isbn %s)", d.Author, d.ISBN)
	case Album:
		return strings.TrimSpace(d.Artist + " " + d.Etc)
	case Movie:
		return fmt.Sprintf("directed by %s, starring %s", d.Director, d.Actor)
	default:
		return ""
	}
}
