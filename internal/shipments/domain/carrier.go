package domain

// Carrier is a delivery partner shipments are assigned to.
type Carrier struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}
