package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCategory is assigned to products created without a category.
const DefaultCategory = "uncategorized"

// Product represents a catalog item with its properties and metadata.
type Product struct {
	ID          uuid.UUID
	Name        string
	Price       float64
	Description string
	Category    string
	// Image is the public URL of the product image, nil when the product has none.
	Image *string
	// ImageKey is the blob store key backing Image.
	ImageKey  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Now returns the current UTC time at millisecond precision, the finest every backend stores
// (BSON dates keep milliseconds, TIMESTAMPTZ microseconds).
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// InitMeta initializes the product metadata including ID and timestamps.
func (p *Product) InitMeta() {
	p.ID = uuid.New()
	now := Now()
	p.CreatedAt = now
	p.UpdatedAt = now
}

// HasImage reports whether a blob is attached to the product.
func (p *Product) HasImage() bool {
	return p.ImageKey != nil && *p.ImageKey != ""
}

// ProductUpdate is a partial update. Nil fields are left unchanged.
type ProductUpdate struct {
	Name        *string
	Price       *float64
	Description *string
	Category    *string
	Image       *string
	ImageKey    *string
}

// IsEmpty reports whether the update carries no fields.
func (u ProductUpdate) IsEmpty() bool {
	return u.Name == nil && u.Price == nil && u.Description == nil &&
		u.Category == nil && u.Image == nil && u.ImageKey == nil
}

// Apply merges the non-nil fields of u into p.
func (u ProductUpdate) Apply(p *Product) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Image != nil {
		p.Image = u.Image
	}
	if u.ImageKey != nil {
		p.ImageKey = u.ImageKey
	}
}
