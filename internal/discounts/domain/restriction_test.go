package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProductRestriction(t *testing.T) {
	t.Run("rejects empty allow-list", func(t *testing.T) {
		_, err := NewProductRestriction(nil)
		assert.Error(t, err)
	})
}

func TestNewCategoryRestriction(t *testing.T) {
	t.Run("rejects empty category list", func(t *testing.T) {
		_, err := NewCategoryRestriction(nil, []string{"product-1"})
		assert.Error(t, err)
	})

	t.Run("allows empty exclusions", func(t *testing.T) {
		_, err := NewCategoryRestriction([]string{"category-1"}, nil)
		assert.NoError(t, err)
	})
}

func TestSatisfied(t *testing.T) {
	products := []OrderedProduct{
		{ProductID: "product-1", CategoryIDs: []string{"category-1"}},
		{ProductID: "product-2", CategoryIDs: []string{"category-2"}},
	}

	t.Run("product restriction matches any ordered product", func(t *testing.T) {
		restriction, err := NewProductRestriction([]string{"product-2", "product-9"})
		require.NoError(t, err)
		assert.True(t, Satisfied(restriction, products))
	})

	t.Run("product restriction fails when nothing matches", func(t *testing.T) {
		restriction, err := NewProductRestriction([]string{"product-9"})
		require.NoError(t, err)
		assert.False(t, Satisfied(restriction, products))
	})

	t.Run("category restriction matches by category", func(t *testing.T) {
		restriction, err := NewCategoryRestriction([]string{"category-2"}, nil)
		require.NoError(t, err)
		assert.True(t, Satisfied(restriction, products))
	})

	t.Run("excluded product does not satisfy its category", func(t *testing.T) {
		restriction, err := NewCategoryRestriction([]string{"category-2"}, []string{"product-2"})
		require.NoError(t, err)
		assert.False(t, Satisfied(restriction, products))
	})

	t.Run("exclusion only skips the excluded product", func(t *testing.T) {
		restriction, err := NewCategoryRestriction([]string{"category-1", "category-2"}, []string{"product-2"})
		require.NoError(t, err)
		assert.True(t, Satisfied(restriction, products))
	})

	t.Run("unknown variant panics", func(t *testing.T) {
		assert.Panics(t, func() {
			Satisfied(unknownRestriction{}, products)
		})
	})
}

type unknownRestriction struct{}

func (unknownRestriction) restriction() {}
