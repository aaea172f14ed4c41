package model

import "time"

// PaymentMethod is how the customer intends to pay. Capture happens outside this service.
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cod"
	PaymentCard           PaymentMethod = "card"
	PaymentBankTransfer   PaymentMethod = "bank_transfer"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCashOnDelivery, PaymentCard, PaymentBankTransfer:
		return true
	}
	return false
}

// Address is a delivery address.
type Address struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// MissingFields lists required address fields that are blank.
func (a Address) MissingFields() []string {
	var missing []string
	required := []struct {
		name, value string
	}{
		{"full_name", a.FullName},
		{"line1", a.Line1},
		{"city", a.City},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	}
	for _, f := range required {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// OrderItem is a priced line frozen at checkout.
type OrderItem struct {
	ProductID      string `json:"product_id"`
	VariantID      string `json:"variant_id,omitempty"`
	Name           string `json:"name"`
	VariantName    string `json:"variant_name,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
	LineTotalCents int64  `json:"line_total_cents"`
}

// StatusChange records one step in an order's lifecycle.
type StatusChange struct {
	From    OrderStatus `json:"from"`
	To      OrderStatus `json:"to"`
	ActorID string      `json:"actor_id"`
	Note    string      `json:"note,omitempty"`
	At      time.Time   `json:"at"`
}

// Order is a placed order.
type Order struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	Status          OrderStatus    `json:"status"`
	Items           []OrderItem    `json:"items"`
	ShippingAddress Address        `json:"shipping_address"`
	PaymentMethod   PaymentMethod  `json:"payment_method"`
	Notes           string         `json:"notes,omitempty"`
	SubtotalCents   int64          `json:"subtotal_cents"`
	ShippingCents   int64          `json:"shipping_cents"`
	TaxCents        int64          `json:"tax_cents"`
	TotalCents      int64          `json:"total_cents"`
	StatusHistory   []StatusChange `json:"status_history"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	Status OrderStatus
	UserID string
}
