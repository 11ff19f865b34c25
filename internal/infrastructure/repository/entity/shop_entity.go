package entity

import (
	"time"

	"thumbhash-placeholder-layer/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoShopDoc represents a registered shop in MongoDB
type MongoShopDoc struct {
	ID           primitive.ObjectID    `bson:"_id,omitempty"`
	ShopID       string                `bson:"shopId"`
	ShopURL      string                `bson:"shopUrl"`
	ShopSecret   string                `bson:"shopSecret"`
	APIKey       string                `bson:"apiKey"`
	SecretKey    string                `bson:"secretKey"`
	CustomFields MongoShopCustomFields `bson:"customFields"`
	CreatedAt    time.Time             `bson:"createdAt"`
	UpdatedAt    time.Time             `bson:"updatedAt"`
}

// MongoShopCustomFields is the embedded app state of a shop
type MongoShopCustomFields struct {
	Password string `bson:"password"`
	Active   bool   `bson:"active"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoShopDoc) ToDomain() *domain.Shop {
	return &domain.Shop{
		ShopID:     d.ShopID,
		ShopURL:    d.ShopURL,
		ShopSecret: d.ShopSecret,
		APIKey:     d.APIKey,
		SecretKey:  d.SecretKey,
		CustomFields: domain.ShopCustomFields{
			Password: d.CustomFields.Password,
			Active:   d.CustomFields.Active,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// MongoShopDocFromDomain converts a domain entity to a MongoDB document.
// The ObjectID is left empty so upserts keep the stored one.
func MongoShopDocFromDomain(shop *domain.Shop) *MongoShopDoc {
	return &MongoShopDoc{
		ShopID:     shop.ShopID,
		ShopURL:    shop.ShopURL,
		ShopSecret: shop.ShopSecret,
		APIKey:     shop.APIKey,
		SecretKey:  shop.SecretKey,
		CustomFields: MongoShopCustomFields{
			Password: shop.CustomFields.Password,
			Active:   shop.CustomFields.Active,
		},
		CreatedAt: shop.CreatedAt,
		UpdatedAt: shop.UpdatedAt,
	}
}
