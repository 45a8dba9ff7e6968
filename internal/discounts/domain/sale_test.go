package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSale(t *testing.T) {
	t.Run("requires a target", func(t *testing.T) {
		_, err := NewSale("sale-1", "summer", mustDiscount(t, 10), nil, nil, nil)
		assert.Error(t, err)
	})

	t.Run("rejects exclusions that empty a product-only target", func(t *testing.T) {
		_, err := NewSale("sale-1", "summer", mustDiscount(t, 10),
			nil, []string{"product-1"}, []string{"product-1"})
		assert.Error(t, err)
	})

	t.Run("category target survives product exclusions", func(t *testing.T) {
		_, err := NewSale("sale-1", "summer", mustDiscount(t, 10),
			[]string{"category-1"}, nil, []string{"product-1"})
		assert.NoError(t, err)
	})
}

func TestSaleAppliesTo(t *testing.T) {
	sale, err := NewSale("sale-1", "summer", mustDiscount(t, 10),
		[]string{"category-1"}, []string{"product-5"}, []string{"product-2"})
	require.NoError(t, err)

	t.Run("matches by product id", func(t *testing.T) {
		assert.True(t, sale.AppliesTo(OrderedProduct{ProductID: "product-5"}))
	})

	t.Run("matches by category", func(t *testing.T) {
		assert.True(t, sale.AppliesTo(OrderedProduct{ProductID: "product-1", CategoryIDs: []string{"category-1"}}))
	})

	t.Run("exclusion wins over category match", func(t *testing.T) {
		assert.False(t, sale.AppliesTo(OrderedProduct{ProductID: "product-2", CategoryIDs: []string{"category-1"}}))
	})

	t.Run("no match", func(t *testing.T) {
		assert.False(t, sale.AppliesTo(OrderedProduct{ProductID: "product-9", CategoryIDs: []string{"category-9"}}))
	})
}

func TestSaleEligibleFor(t *testing.T) {
	product := OrderedProduct{ProductID: "product-1", CategoryIDs: []string{"category-1"}}

	t.Run("eligible when composed percent stays under the cap", func(t *testing.T) {
		sale, err := NewSale("sale-1", "summer", mustDiscount(t, 50), []string{"category-1"}, nil, nil)
		require.NoError(t, err)
		assert.True(t, sale.EligibleFor(product, 10000, []Discount{mustDiscount(t, 50)}))
	})

	t.Run("ineligible when composition would break the price floor", func(t *testing.T) {
		sale, err := NewSale("sale-1", "deep", mustDiscount(t, 80), []string{"category-1"}, nil, nil)
		require.NoError(t, err)
		// 80% then 80% composes to 96%, past the 90% cap.
		assert.False(t, sale.EligibleFor(product, 10000, []Discount{mustDiscount(t, 80)}))
	})

	t.Run("ineligible for non-targeted product", func(t *testing.T) {
		sale, err := NewSale("sale-1", "summer", mustDiscount(t, 10), []string{"category-9"}, nil, nil)
		require.NoError(t, err)
		assert.False(t, sale.EligibleFor(product, 10000, nil))
	})
}
