package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/blob"
	"github.com/iyhunko/product-catalog/internal/metrics"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/iyhunko/product-catalog/internal/sqs"
)

const (
	msgRequiredFields   = "Name, price, and description are required"
	msgInvalidPrice     = "Price must be a non-negative number"
	msgEmptyName        = "Name cannot be empty"
	msgEmptyDescription = "Description cannot be empty"
	msgUnsupportedImage = "Only image files (jpg, jpeg, png, webp, gif) are allowed"
	msgImageTooLarge    = "Image exceeds the maximum upload size"
)

// Publisher emits product change events.
type Publisher interface {
	PublishProductMessage(ctx context.Context, msg sqs.ProductMessage) error
}

// Upload is an image received with a create or update request.
type Upload struct {
	Filename string
	Content  io.Reader
}

// CreateProductInput carries the raw form values of a new product.
type CreateProductInput struct {
	Name        string
	Price       string
	Description string
	Category    string
}

// UpdateProductInput carries the raw form values of a partial update. Nil fields are left unchanged.
type UpdateProductInput struct {
	Name        *string
	Price       *string
	Description *string
	Category    *string
}

// Option configures a ProductService.
type Option func(*ProductService)

// WithPublisher publishes an event after every successful mutation.
func WithPublisher(publisher Publisher) Option {
	return func(ps *ProductService) {
		ps.publisher = publisher
	}
}

// WithUploadTimeout bounds each blob store upload.
func WithUploadTimeout(timeout time.Duration) Option {
	return func(ps *ProductService) {
		ps.uploadTimeout = timeout
	}
}

// WithKeyResolver recovers blob keys for records that only carry an image URL.
func WithKeyResolver(resolve func(imageURL string) (string, error)) Option {
	return func(ps *ProductService) {
		ps.keyFromURL = resolve
	}
}

// WithOrderLinks enables OrderLink.
func WithOrderLinks(links *OrderLinks) Option {
	return func(ps *ProductService) {
		ps.orderLinks = links
	}
}

// ProductService validates product input and coordinates the repository with the blob store.
type ProductService struct {
	repo          repository.ProductRepository
	store         blob.Store
	publisher     Publisher
	uploadTimeout time.Duration
	keyFromURL    func(string) (string, error)
	orderLinks    *OrderLinks
}

func NewProductService(repo repository.ProductRepository, store blob.Store, opts ...Option) *ProductService {
	ps := &ProductService{
		repo:  repo,
		store: store,
	}
	for _, opt := range opts {
		opt(ps)
	}
	return ps
}

// ListProducts returns every product in insertion order.
func (ps *ProductService) ListProducts(ctx context.Context) ([]*model.Product, error) {
	products, err := ps.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []*model.Product{}
	}
	return products, nil
}

func (ps *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return ps.repo.FindByID(ctx, id)
}

// CreateProduct validates input, stores the optional image and persists the product.
// Nothing is written when validation fails.
func (ps *ProductService) CreateProduct(ctx context.Context, input CreateProductInput, upload *Upload) (*model.Product, error) {
	name := strings.TrimSpace(input.Name)
	description := strings.TrimSpace(input.Description)
	rawPrice := strings.TrimSpace(input.Price)
	if name == "" || description == "" || rawPrice == "" {
		return nil, newValidationError(msgRequiredFields)
	}

	price, err := parsePrice(rawPrice)
	if err != nil {
		return nil, err
	}

	product := &model.Product{
		Name:        name,
		Price:       price,
		Description: description,
		Category:    normalizeCategory(input.Category),
	}

	if upload != nil {
		obj, err := ps.storeImage(ctx, upload)
		if err != nil {
			return nil, err
		}
		product.Image = &obj.URL
		product.ImageKey = &obj.Key
	}

	created, err := ps.repo.Create(ctx, product)
	if err != nil {
		if product.HasImage() {
			ps.discardBlob(ctx, *product.ImageKey, "create failed")
		}
		return nil, err
	}

	metrics.ProductsCreated.Inc()
	ps.publish(ctx, sqs.ActionCreated, created)

	return created, nil
}

// UpdateProduct applies the provided fields. A new image replaces the stored one and the
// superseded blob is deleted once the record points at the new image.
func (ps *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput, upload *Upload) (*model.Product, error) {
	patch, err := buildPatch(input)
	if err != nil {
		return nil, err
	}

	var previousKey string
	if upload != nil {
		current, err := ps.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		previousKey = ps.blobKey(current)

		obj, err := ps.storeImage(ctx, upload)
		if err != nil {
			return nil, err
		}
		patch.Image = &obj.URL
		patch.ImageKey = &obj.Key
	}

	updated, err := ps.repo.UpdateByID(ctx, id, patch)
	if err != nil {
		if patch.ImageKey != nil {
			ps.discardBlob(ctx, *patch.ImageKey, "update failed")
		}
		return nil, err
	}

	if previousKey != "" && patch.ImageKey != nil && previousKey != *patch.ImageKey {
		ps.discardBlob(ctx, previousKey, "image replaced")
	}

	metrics.ProductsUpdated.Inc()
	ps.publish(ctx, sqs.ActionUpdated, updated)

	return updated, nil
}

// DeleteProduct removes the product, then its image. Image deletion failures are only logged.
func (ps *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	deleted, err := ps.repo.DeleteByID(ctx, id)
	if err != nil {
		return err
	}

	if key := ps.blobKey(deleted); key != "" {
		ps.discardBlob(ctx, key, "product deleted")
	}

	metrics.ProductsDeleted.Inc()
	ps.publish(ctx, sqs.ActionDeleted, deleted)

	return nil
}

// OrderLinksEnabled reports whether OrderLink can build links.
func (ps *ProductService) OrderLinksEnabled() bool {
	return ps.orderLinks != nil
}

// OrderLink returns the chat link for ordering the product.
func (ps *ProductService) OrderLink(ctx context.Context, id uuid.UUID) (string, error) {
	if ps.orderLinks == nil {
		return "", ErrOrderLinksDisabled
	}
	product, err := ps.repo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return ps.orderLinks.For(product), nil
}

func (ps *ProductService) storeImage(ctx context.Context, upload *Upload) (blob.Object, error) {
	uploadCtx := ctx
	if ps.uploadTimeout > 0 {
		var cancel context.CancelFunc
		uploadCtx, cancel = context.WithTimeout(ctx, ps.uploadTimeout)
		defer cancel()
	}

	obj, err := ps.store.Store(uploadCtx, upload.Content, upload.Filename)
	if err != nil {
		switch {
		case errors.Is(err, blob.ErrUnsupportedType):
			return blob.Object{}, &ValidationError{Message: msgUnsupportedImage, Err: err}
		case errors.Is(err, blob.ErrTooLarge):
			return blob.Object{}, &ValidationError{Message: msgImageTooLarge, Err: err}
		case errors.Is(uploadCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			return blob.Object{}, fmt.Errorf("%w: %v", ErrDependencyTimeout, err)
		}
		return blob.Object{}, fmt.Errorf("failed to store image: %w", err)
	}

	metrics.ImagesStored.Inc()
	return obj, nil
}

// blobKey returns the storage key of p's image, or "" when it has none.
func (ps *ProductService) blobKey(p *model.Product) string {
	if p.HasImage() {
		return *p.ImageKey
	}
	if p.Image == nil || *p.Image == "" || ps.keyFromURL == nil {
		return ""
	}
	key, err := ps.keyFromURL(*p.Image)
	if err != nil {
		slog.Warn("Cannot derive image key from URL", slog.Any("err", err), slog.String("product_id", p.ID.String()))
		return ""
	}
	return key
}

// discardBlob deletes a blob without failing the request. The request context may already be
// cancelled by the time this runs, so the deletion gets its own deadline.
func (ps *ProductService) discardBlob(ctx context.Context, key, reason string) {
	deleteCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := ps.store.Delete(deleteCtx, key); err != nil {
		metrics.BlobCleanupFailures.Inc()
		slog.Error("Failed to delete image", slog.Any("err", err), slog.String("key", key), slog.String("reason", reason))
		return
	}
	slog.Debug("Deleted image", slog.String("key", key), slog.String("reason", reason))
}

func (ps *ProductService) publish(ctx context.Context, action string, p *model.Product) {
	if ps.publisher == nil {
		return
	}
	msg := sqs.ProductMessage{
		Action:    action,
		ProductID: p.ID.String(),
		Name:      p.Name,
		Price:     p.Price,
		Category:  p.Category,
		Image:     p.Image,
	}
	if err := ps.publisher.PublishProductMessage(ctx, msg); err != nil {
		// the mutation already happened, so the event is dropped
		slog.Error("Failed to send SQS message", slog.Any("err", err), slog.String("action", action), slog.String("product_id", p.ID.String()))
	}
}

func buildPatch(input UpdateProductInput) (model.ProductUpdate, error) {
	var patch model.ProductUpdate

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return patch, newValidationError(msgEmptyName)
		}
		patch.Name = &name
	}
	if input.Price != nil {
		price, err := parsePrice(strings.TrimSpace(*input.Price))
		if err != nil {
			return patch, err
		}
		patch.Price = &price
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return patch, newValidationError(msgEmptyDescription)
		}
		patch.Description = &description
	}
	if input.Category != nil {
		category := normalizeCategory(*input.Category)
		patch.Category = &category
	}

	return patch, nil
}

// plainPrice matches unsigned decimal literals; ParseFloat alone would also take hex floats,
// exponents, "Inf" and "NaN".
var plainPrice = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// parsePrice accepts finite, non-negative decimal numbers only.
func parsePrice(raw string) (float64, error) {
	if !plainPrice.MatchString(raw) {
		return 0, newValidationError(msgInvalidPrice)
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0, &ValidationError{Message: msgInvalidPrice, Err: err}
	}
	return price, nil
}

func normalizeCategory(raw string) string {
	category := strings.TrimSpace(raw)
	if category == "" {
		return model.DefaultCategory
	}
	return category
}
