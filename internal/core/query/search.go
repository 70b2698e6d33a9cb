// Package query holds the read models of the order listing and the rules
// that decide which loading strategy may serve a given search.
package query

import (
	"errors"
	"strings"

	"github.com/rl1809/shop/internal/core/domain"
)

// MaxResults caps every order listing.
const MaxResults = 1000

var (
	ErrUnknownStrategy = errors.New("unknown order loading strategy")
	// ErrCollectionFetchPagination is returned when a collection fetch join
	// is asked to paginate: offsets would count joined rows, not orders.
	ErrCollectionFetchPagination = errors.New("collection fetch join cannot paginate")
	ErrMultipleCollectionFetch   = errors.New("cannot fetch join more than one collection")
	// ErrOrderPagination is returned by the flattened projection, which can
	// only page over order lines.
	ErrOrderPagination = errors.New("flat projection cannot paginate by order")
)

type OrderSearch struct {
	Status     domain.OrderStatus
	MemberName string
	MemberID   string
	Offset     int
	Limit      int
}

func (s OrderSearch) Paginated() bool {
	return s.Offset > 0 || s.Limit > 0
}

// Normalize trims the filters and clamps the window to MaxResults.
func (s OrderSearch) Normalize() OrderSearch {
	s.MemberName = strings.TrimSpace(s.MemberName)
	s.MemberID = strings.TrimSpace(s.MemberID)
	if s.Offset < 0 {
		s.Offset = 0
	}
	if s.Limit < 0 {
		s.Limit = 0
	}
	if s.Limit > MaxResults {
		s.Limit = MaxResults
	}
	return s
}

// Window returns the offset and row limit to send to the store.
func (s OrderSearch) Window() (offset, limit int) {
	if s.Limit == 0 {
		return s.Offset, MaxResults
	}
	return s.Offset, s.Limit
}

// LikeEscape is the escape character MemberPattern uses for LIKE
// wildcards found in the name.
const LikeEscape = "!"

var likeEscaper = strings.NewReplacer(LikeEscape, LikeEscape+LikeEscape, "%", LikeEscape+"%", "_", LikeEscape+"_")

// MemberPattern is the LIKE pattern for a member-name substring match.
// Wildcards in the name match literally under ESCAPE LikeEscape.
func (s OrderSearch) MemberPattern() string {
	if s.MemberName == "" {
		return ""
	}
	return "%" + likeEscaper.Replace(s.MemberName) + "%"
}
