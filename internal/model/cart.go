package model

import (
	"errors"
	"strings"
	"time"
)

// cartKeySep separates product and variant ids in a cart key.
const cartKeySep = ":"

var ErrInvalidCartKey = errors.New("invalid cart key")

// CartKey builds the composite key that identifies a cart line. Lines for the
// same product with different variants get distinct keys.
func CartKey(productID, variantID string) string {
	if variantID == "" {
		return productID
	}
	return productID + cartKeySep + variantID
}

// ParseCartKey splits a composite key back into product and variant ids.
func ParseCartKey(key string) (productID, variantID string, err error) {
	productID, variantID, _ = strings.Cut(key, cartKeySep)
	if productID == "" {
		return "", "", ErrInvalidCartKey
	}
	return productID, variantID, nil
}

// CartItem is one line of a cart. Name, image and price are snapshotted from
// the catalog when the line is added.
type CartItem struct {
	Key            string    `json:"key"`
	ProductID      string    `json:"product_id"`
	VariantID      string    `json:"variant_id,omitempty"`
	VariantName    string    `json:"variant_name,omitempty"`
	Name           string    `json:"name"`
	ImageURL       string    `json:"image_url,omitempty"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	AddedAt        time.Time `json:"added_at"`
}

// LineTotal is unit price times quantity.
func (i CartItem) LineTotal() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}

// Cart is the view of a user's or guest's cart.
type Cart struct {
	OwnerID       string     `json:"owner_id"`
	Guest         bool       `json:"guest"`
	Items         []CartItem `json:"items"`
	ItemCount     int        `json:"item_count"`
	SubtotalCents int64      `json:"subtotal_cents"`
}

// NewCart builds a cart view and computes its totals.
func NewCart(ownerID string, guest bool, items []CartItem) *Cart {
	if items == nil {
		items = []CartItem{}
	}
	c := &Cart{OwnerID: ownerID, Guest: guest, Items: items}
	for _, it := range items {
		c.ItemCount += it.Quantity
		c.SubtotalCents += it.LineTotal()
	}
	return c
}
