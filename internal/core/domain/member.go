package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Member places orders. The orders a member owns are looked up by query and
// never kept on the member itself.
type Member struct {
	ID        string
	Name      string
	Address   Address
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewMember(name string, address Address) (*Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("member name is required")
	}

	now := time.Now()
	return &Member{
		ID:        uuid.NewString(),
		Name:      name,
		Address:   address,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (m *Member) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return validationError("member name is required")
	}
	m.Name = name
	m.UpdatedAt = time.Now()
	return nil
}
