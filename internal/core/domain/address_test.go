package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress(t *testing.T) {
	a := NewAddress(" Seoul ", "1", "11")
	b := NewAddress("Seoul", "1", "11")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(NewAddress("Seoul", "1", "12")))
	assert.Equal(t, "Seoul 1 11", a.String())
	assert.True(t, Address{}.IsZero())
	assert.False(t, a.IsZero())
}

func TestMember(t *testing.T) {
	_, err := NewMember(" ", NewAddress("Seoul", "1", "11"))
	assert.ErrorIs(t, err, ErrValidation)

	m, err := NewMember("userA", NewAddress("Seoul", "1", "11"))
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)

	require.NoError(t, m.Rename(" userC "))
	assert.Equal(t, "userC", m.Name)
	assert.ErrorIs(t, m.Rename(""), ErrValidation)
	assert.Equal(t, "userC", m.Name)
}

func TestCategory(t *testing.T) {
	_, err := NewCategory("", "")
	assert.ErrorIs(t, err, ErrValidation)

	root, err := NewCategory("books", "")
	require.NoError(t, err)
	assert.True(t, root.IsRoot())

	child, err := NewCategory("tech", root.ID)
	require.NoError(t, err)
	assert.False(t, child.IsRoot())
	assert.Equal(t, root.ID, child.ParentID)
}
