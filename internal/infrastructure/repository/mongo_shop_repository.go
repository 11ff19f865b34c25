package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"thumbhash-placeholder-layer/internal/domain"
	"thumbhash-placeholder-layer/internal/infrastructure/repository/entity"
	"thumbhash-placeholder-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const shopsCollection = "shops"

// MongoShopRepository implements ShopRepository using MongoDB
type MongoShopRepository struct {
	collection *mongo.Collection
}

// NewMongoShopRepository creates a new MongoDB shop repository
func NewMongoShopRepository(db *mongo.Database) ports.ShopRepository {
	return &MongoShopRepository{
		collection: db.Collection(shopsCollection),
	}
}

// EnsureShopIndexes creates the unique index on shopId
func EnsureShopIndexes(ctx context.Context, db *mongo.Database) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "shopId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := db.Collection(shopsCollection).Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create shop index: %w", err)
	}
	return nil
}

// SaveShop saves or updates a shop
func (r *MongoShopRepository) SaveShop(ctx context.Context, shop *domain.Shop) error {
	now := time.Now()
	doc := entity.MongoShopDocFromDomain(shop)
	doc.UpdatedAt = now
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	filter := bson.M{"shopId": shop.ShopID}
	update := bson.M{
		"$set": bson.M{
			"shopId":       doc.ShopID,
			"shopUrl":      doc.ShopURL,
			"shopSecret":   doc.ShopSecret,
			"apiKey":       doc.APIKey,
			"secretKey":    doc.SecretKey,
			"customFields": doc.CustomFields,
			"updatedAt":    doc.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"createdAt": createdAt,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save shop: %w", err)
	}

	shop.UpdatedAt = now
	if shop.CreatedAt.IsZero() {
		shop.CreatedAt = createdAt
	}
	return nil
}

// GetShop retrieves a shop by its shop ID
func (r *MongoShopRepository) GetShop(ctx context.Context, shopID string) (*domain.Shop, error) {
	var doc entity.MongoShopDoc
	err := r.collection.FindOne(ctx, bson.M{"shopId": shopID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}

	return doc.ToDomain(), nil
}

// DeleteShop deletes a shop by its shop ID
func (r *MongoShopRepository) DeleteShop(ctx context.Context, shopID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"shopId": shopID})
	if err != nil {
		return fmt.Errorf("failed to delete shop: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("failed to delete shop %s: %w", shopID, domain.ErrShopNotFound)
	}
	return nil
}
