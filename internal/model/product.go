package model

import (
	"strings"
	"time"
	"unicode"
)

// Product is a catalog entry. Stock is tracked per product; variants only
// change the displayed option and, optionally, the price.
type Product struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Slug        string    `json:"slug" yaml:"slug"`
	Description string    `json:"description" yaml:"description"`
	Category    string    `json:"category" yaml:"category"`
	PriceCents  int64     `json:"price_cents" yaml:"price_cents"`
	Stock       int       `json:"stock" yaml:"stock"`
	Images      []Image   `json:"images" yaml:"images"`
	Variants    []Variant `json:"variants" yaml:"variants"`
	Active      bool      `json:"active" yaml:"active"`
	Featured    bool      `json:"featured" yaml:"featured"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"-"`
}

// Image is a product picture stored on the image host.
type Image struct {
	Key      string `json:"key" yaml:"key"`
	URL      string `json:"url" yaml:"url"`
	Position int    `json:"position" yaml:"position"`
}

// Variant is a purchasable option of a product (finish, fabric, size).
// A zero PriceCents means the product base price applies.
type Variant struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	PriceCents int64  `json:"price_cents,omitempty" yaml:"price_cents"`
}

// Variant returns the variant with the given id.
func (p *Product) Variant(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// UnitPrice resolves the price for the given variant id ("" for the base product).
func (p *Product) UnitPrice(variantID string) int64 {
	if variantID == "" {
		return p.PriceCents
	}
	if v, ok := p.Variant(variantID); ok && v.PriceCents > 0 {
		return v.PriceCents
	}
	return p.PriceCents
}

// PrimaryImageURL returns the image with the lowest position, or "".
func (p *Product) PrimaryImageURL() string {
	var (
		url string
		pos = -1
	)
	for _, img := range p.Images {
		if pos == -1 || img.Position < pos {
			url, pos = img.URL, img.Position
		}
	}
	return url
}

// Slugify converts a product name into a URL-safe slug.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if r < unicode.MaxASCII {
				b.WriteRune(r)
				dash = false
			}
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ProductFilter narrows catalog listings.
type ProductFilter struct {
	Category   string
	Search     string
	Featured   *bool
	ActiveOnly bool
}
