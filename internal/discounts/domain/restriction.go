package domain

import (
	"errors"
	"fmt"
)

// OrderedProduct is the slice of an order the engine needs to match
// restrictions: the product and the categories it belonged to at order time.
type OrderedProduct struct {
	ProductID   string
	CategoryIDs []string
}

// Restriction limits which products or categories a coupon may discount.
// The set of implementations is closed; Satisfied matches exhaustively and
// treats an unknown variant as a programming error.
type Restriction interface {
	restriction()
}

// ProductRestriction passes when any ordered product is on its allow-list.
type ProductRestriction struct {
	ProductIDs []string `json:"product_ids"`
}

// CategoryRestriction passes when any ordered product belongs to an allowed
// category and is not on this restriction's deny-list.
type CategoryRestriction struct {
	CategoryIDs        []string `json:"category_ids"`
	ExcludedProductIDs []string `json:"excluded_product_ids"`
}

func (ProductRestriction) restriction()  {}
func (CategoryRestriction) restriction() {}

// NewProductRestriction rejects empty allow-lists: a restriction that can
// never pass is a configuration error, not a valid coupon.
func NewProductRestriction(productIDs []string) (ProductRestriction, error) {
	if len(productIDs) == 0 {
		return ProductRestriction{}, errors.New("product restriction requires at least one product")
	}
	return ProductRestriction{ProductIDs: productIDs}, nil
}

// NewCategoryRestriction rejects empty category allow-lists.
func NewCategoryRestriction(categoryIDs, excludedProductIDs []string) (CategoryRestriction, error) {
	if len(categoryIDs) == 0 {
		return CategoryRestriction{}, errors.New("category restriction requires at least one category")
	}
	return CategoryRestriction{CategoryIDs: categoryIDs, ExcludedProductIDs: excludedProductIDs}, nil
}

// Satisfied reports whether the restriction passes for the ordered products.
// An unsupported restriction variant panics: new variants must be added here
// explicitly, never silently ignored.
func Satisfied(r Restriction, products []OrderedProduct) bool {
	switch rest := r.(type) {
	case ProductRestriction:
		for _, p := range products {
			if containsString(rest.ProductIDs, p.ProductID) {
				return true
			}
		}
		return false
	case CategoryRestriction:
		for _, p := range products {
			if containsString(rest.ExcludedProductIDs, p.ProductID) {
				continue
			}
			for _, categoryID := range p.CategoryIDs {
				if containsString(rest.CategoryIDs, categoryID) {
					return true
				}
			}
		}
		return false
	default:
		panic(fmt.Sprintf("unsupported restriction variant %T", r))
	}
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
