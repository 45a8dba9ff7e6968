package domain

import (
	"errors"
	"strings"
)

// Sale is a time-boxed campaign discount applied automatically to matching
// products, distinct from a Coupon in that it is discovered rather than
// supplied by the buyer.
type Sale struct {
	ID                 string
	Name               string
	Discount           Discount
	CategoryIDs        []string
	ProductIDs         []string
	ExcludedProductIDs []string
}

// NewSale validates that the sale targets something: at least one category or
// product, and the exclusion set must not cancel out the entire product
// target.
func NewSale(id, name string, discount Discount, categoryIDs, productIDs, excludedProductIDs []string) (*Sale, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("name is required")
	}
	if len(categoryIDs) == 0 && len(productIDs) == 0 {
		return nil, errors.New("sale must target at least one category or product")
	}
	if len(categoryIDs) == 0 && len(productIDs) > 0 {
		remaining := 0
		for _, id := range productIDs {
			if !containsString(excludedProductIDs, id) {
				remaining++
			}
		}
		if remaining == 0 {
			return nil, errors.New("sale exclusions leave no targeted products")
		}
	}

	return &Sale{
		ID:                 id,
		Name:               name,
		Discount:           discount,
		CategoryIDs:        categoryIDs,
		ProductIDs:         productIDs,
		ExcludedProductIDs: excludedProductIDs,
	}, nil
}

// AppliesTo reports whether the sale targets the given product.
func (s *Sale) AppliesTo(product OrderedProduct) bool {
	if containsString(s.ExcludedProductIDs, product.ProductID) {
		return false
	}
	if containsString(s.ProductIDs, product.ProductID) {
		return true
	}
	for _, categoryID := range product.CategoryIDs {
		if containsString(s.CategoryIDs, categoryID) {
			return true
		}
	}
	return false
}

// EligibleFor checks the price-floor invariant at attach time: a sale may
// only be attached to a product if composing it with the discounts already
// applicable to that product keeps the price at or above 10% of the base.
// Checking here, not only at purchase time, prevents publishing a sale that
// would violate the floor.
func (s *Sale) EligibleFor(product OrderedProduct, basePriceCents int64, applicable []Discount) bool {
	if !s.AppliesTo(product) {
		return false
	}

	composed := make([]Discount, 0, len(applicable)+1)
	composed = append(composed, applicable...)
	composed = append(composed, s.Discount)

	return ComposedPercent(composed) <= MaxEffectivePercent
}
