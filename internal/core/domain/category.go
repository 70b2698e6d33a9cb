package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Category groups items. ParentID is empty for a root category; children
// are found by query.
type Category struct {
	ID       string
	Name     string
	ParentID string
}

func NewCategory(name, parentID string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("category name is required")
	}
	return &Category{
		ID:       uuid.NewString(),
		Name:     name,
		ParentID: strings.TrimSpace(parentID),
	}, nil
}

func (c *Category) IsRoot() bool { return c.ParentID == "" }
