// Package mongo stores products in a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/config"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// CollectionName is the collection products are stored in.
const CollectionName = "products"

type productDocument struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Price       float64   `bson:"price"`
	Description string    `bson:"description"`
	Category    string    `bson:"category"`
	Image       *string   `bson:"image"`
	ImageKey    *string   `bson:"imageKey"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

func toDocument(p *model.Product) productDocument {
	return productDocument{
		ID:          p.ID.String(),
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
		Category:    p.Category,
		Image:       p.Image,
		ImageKey:    p.ImageKey,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (d productDocument) toModel() (*model.Product, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid product id %q: %w", d.ID, err)
	}
	return &model.Product{
		ID:          id,
		Name:        d.Name,
		Price:       d.Price,
		Description: d.Description,
		Category:    d.Category,
		Image:       d.Image,
		ImageKey:    d.ImageKey,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

// Connect opens a MongoDB client and verifies the connection.
func Connect(ctx context.Context, conf config.Mongo) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	slog.Info("Mongo connection done", slog.String("database", conf.Database))
	return client, nil
}

// ProductRepository implements repository.ProductRepository on a MongoDB collection.
type ProductRepository struct {
	coll *mongo.Collection
}

// NewProductRepository creates a ProductRepository using the products collection of db.
func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{coll: db.Collection(CollectionName)}
}

// Create inserts a new product document.
func (r *ProductRepository) Create(ctx context.Context, product *model.Product) (*model.Product, error) {
	if product.ID == uuid.Nil {
		product.InitMeta()
	}

	if _, err := r.coll.InsertOne(ctx, toDocument(product)); err != nil {
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}
	return product, nil
}

// List returns all products ordered by creation time.
func (r *ProductRepository) List(ctx context.Context) ([]*model.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	products := make([]*model.Product, 0, len(docs))
	for _, doc := range docs {
		product, err := doc.toModel()
		if err != nil {
			// documents written with ObjectId keys cannot be addressed by the API
			slog.Warn("Skipping product document", slog.String("id", doc.ID), slog.Any("err", err))
			continue
		}
		products = append(products, product)
	}
	return products, nil
}

// FindByID retrieves a single product by ID.
func (r *ProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return decodeOne(r.coll.FindOne(ctx, byID(id)))
}

// UpdateByID sets the non-nil fields of update and returns the updated document.
func (r *ProductRepository) UpdateByID(ctx context.Context, id uuid.UUID, update model.ProductUpdate) (*model.Product, error) {
	if update.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	set := bson.D{}
	if update.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *update.Name})
	}
	if update.Price != nil {
		set = append(set, bson.E{Key: "price", Value: *update.Price})
	}
	if update.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *update.Description})
	}
	if update.Category != nil {
		set = append(set, bson.E{Key: "category", Value: *update.Category})
	}
	if update.Image != nil {
		set = append(set, bson.E{Key: "image", Value: *update.Image})
	}
	if update.ImageKey != nil {
		set = append(set, bson.E{Key: "imageKey", Value: *update.ImageKey})
	}
	set = append(set, bson.E{Key: "updatedAt", Value: model.Now()})

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return decodeOne(r.coll.FindOneAndUpdate(ctx, byID(id), bson.D{{Key: "$set", Value: set}}, opts))
}

// DeleteByID removes a product and returns the deleted document.
func (r *ProductRepository) DeleteByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return decodeOne(r.coll.FindOneAndDelete(ctx, byID(id)))
}

func byID(id uuid.UUID) bson.D {
	return bson.D{{Key: "_id", Value: id.String()}}
}

func decodeOne(res *mongo.SingleResult) (*model.Product, error) {
	var doc productDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return doc.toModel()
}
