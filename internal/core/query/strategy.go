package query

import "fmt"

// Strategy names one way of materialising the order listing. All strategies
// return the same orders, lines and totals; they differ in statement count,
// row volume and whether they can paginate.
type Strategy string

const (
	// StrategyFullGraph loads each association with its own statement.
	StrategyFullGraph Strategy = "full-graph"
	// StrategyJoinToOne joins member and delivery; lines load per order.
	StrategyJoinToOne Strategy = "join-to-one"
	// StrategyJoinCollection joins everything in one statement and
	// deduplicates by order id. Cannot paginate.
	StrategyJoinCollection Strategy = "join-collection"
	// StrategyBatch joins the to-one side and loads lines and items with
	// IN queries of at most the configured batch size.
	StrategyBatch Strategy = "batch"
	// StrategyDTOPerOrder projects orders, then queries lines per order.
	StrategyDTOPerOrder Strategy = "dto-per-order"
	// StrategyDTOBatched projects orders, then queries all lines with IN.
	StrategyDTOBatched Strategy = "dto-batched"
	// StrategyDTOFlat projects orders and lines in one joined statement.
	// Pages over lines only.
	StrategyDTOFlat Strategy = "dto-flat"
)

// DefaultStrategy is used for paginated listings.
const DefaultStrategy = StrategyBatch

var Strategies = []Strategy{
	StrategyFullGraph,
	StrategyJoinToOne,
	StrategyJoinCollection,
	StrategyBatch,
	StrategyDTOPerOrder,
	StrategyDTOBatched,
	StrategyDTOFlat,
}

func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return DefaultStrategy, nil
	}
	for _, st := range Strategies {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// Entity reports whether the strategy materialises domain orders rather
// than projecting rows.
func (s Strategy) Entity() bool {
	switch s {
	case StrategyFullGraph, StrategyJoinToOne, StrategyJoinCollection, StrategyBatch:
		return true
	}
	return false
}

func (s Strategy) SupportsPagination() bool {
	return s != StrategyJoinCollection && s != StrategyDTOFlat
}

// Check rejects a search the strategy cannot serve correctly.
func (s Strategy) Check(search OrderSearch) error {
	if !search.Paginated() {
		return nil
	}
	switch s {
	case StrategyJoinCollection:
		return ErrCollectionFetchPagination
	case StrategyDTOFlat:
		return ErrOrderPagination
	}
	return nil
}

// Association is a relation of the order graph that a fetch join can pull
// into the root statement.
type Association string

const (
	AssocMember         Association = "Member"
	AssocDelivery       Association = "Delivery"
	AssocOrderItems     Association = "OrderItems"
	AssocItemCategories Association = "OrderItems.Item.Categories"
)

func (a Association) ToMany() bool {
	return a == AssocOrderItems || a == AssocItemCategories
}

// FetchPlan lists the associations one statement joins.
type FetchPlan struct {
	Joins []Association
}

func (p FetchPlan) Has(a Association) bool {
	for _, j := range p.Joins {
		if j == a {
			return true
		}
	}
	return false
}

// Validate guards the two cases where a fetch join returns wrong results:
// two collections (cross product) and a collection with pagination.
func (p FetchPlan) Validate(search OrderSearch) error {
	collections := 0
	for _, j := range p.Joins {
		if j.ToMany() {
			collections++
		}
	}
	// item categories are reached through the order lines
	if p.Has(AssocItemCategories) && !p.Has(AssocOrderItems) {
		collections++
	}
	if collections > 1 {
		return ErrMultipleCollectionFetch
	}
	if collections == 1 && search.Paginated() {
		return ErrCollectionFetchPagination
	}
	return nil
}
