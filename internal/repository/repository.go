package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/model"
)

var (
	// ErrNotFound is returned when no product exists with the requested ID.
	ErrNotFound = errors.New("product not found")
)

// ProductRepository defines the persistence contract for Product records.
// Implementations must make Create, UpdateByID and DeleteByID atomic per product.
type ProductRepository interface {
	// Create assigns ID and timestamps, stores the product and returns the stored record.
	Create(ctx context.Context, product *model.Product) (*model.Product, error)
	// List returns every stored product in insertion order.
	List(ctx context.Context) ([]*model.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	// UpdateByID merges the non-nil fields of update into the stored record.
	UpdateByID(ctx context.Context, id uuid.UUID, update model.ProductUpdate) (*model.Product, error)
	// DeleteByID removes the product and returns its state prior to deletion.
	DeleteByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
}
