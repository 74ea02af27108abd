// Package memory keeps products in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
)

// ProductRepository is a mutex guarded repository.ProductRepository.
type ProductRepository struct {
	mu       sync.RWMutex
	order    []uuid.UUID
	products map[uuid.UUID]model.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[uuid.UUID]model.Product)}
}

func (r *ProductRepository) Create(_ context.Context, product *model.Product) (*model.Product, error) {
	if product.ID == uuid.Nil {
		product.InitMeta()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = *product
	r.order = append(r.order, product.ID)
	return clone(*product), nil
}

func (r *ProductRepository) List(_ context.Context) ([]*model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]*model.Product, 0, len(r.order))
	for _, id := range r.order {
		products = append(products, clone(r.products[id]))
	}
	return products, nil
}

func (r *ProductRepository) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(p), nil
}

func (r *ProductRepository) UpdateByID(_ context.Context, id uuid.UUID, update model.ProductUpdate) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !update.IsEmpty() {
		update.Apply(&p)
		p.UpdatedAt = model.Now()
		r.products[id] = p
	}
	return clone(p), nil
}

func (r *ProductRepository) DeleteByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.products, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return clone(p), nil
}

// clone copies p including its pointer fields so callers cannot mutate stored state.
func clone(p model.Product) *model.Product {
	if p.Image != nil {
		image := *p.Image
		p.Image = &image
	}
	if p.ImageKey != nil {
		key := *p.ImageKey
		p.ImageKey = &key
	}
	return &p
}
