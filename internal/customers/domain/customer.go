package domain

// Address is a postal address snapshot. Copies of it on orders and shipments
// are immutable after creation.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Customer owns orders. Inactive customers cannot place them.
type Customer struct {
	ID              string  `json:"id"`
	Email           string  `json:"email"`
	Active          bool    `json:"active"`
	BillingAddress  Address `json:"billing_address"`
	DeliveryAddress Address `json:"delivery_address"`
}
