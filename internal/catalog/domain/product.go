package domain

import (
	"errors"
	"strings"
)

// Product is a sellable catalog entry. Stock is a shared counter mutated
// only through commutative deltas (reservation and restock), never absolute
// writes.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	PriceCents  int64    `json:"price_cents"`
	CategoryIDs []string `json:"category_ids"`
	Stock       int      `json:"stock"`
}

// Category groups products for discount targeting.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Validate ensures the product adheres to catalog constraints.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if p.PriceCents <= 0 {
		return errors.New("price_cents must be positive")
	}
	if p.Stock < 0 {
		return errors.New("stock must not be negative")
	}
	return nil
}

// InCategory reports whether the product belongs to the given category.
func (p Product) InCategory(categoryID string) bool {
	for _, id := range p.CategoryIDs {
		if id == categoryID {
			return true
		}
	}
	return false
}
