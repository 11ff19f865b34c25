package repository

import (
	"context"
	"testing"
	"time"

	"thumbhash-placeholder-layer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoShopRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "thumbhash." + shopsCollection

	mt.Run("get existing shop", func(mt *mtest.T) {
		created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "shopId", Value: "s1"},
			{Key: "shopUrl", Value: "https://s1.example"},
			{Key: "shopSecret", Value: "secret"},
			{Key: "apiKey", Value: "key"},
			{Key: "secretKey", Value: "sk"},
			{Key: "customFields", Value: bson.D{{Key: "password", Value: "pw"}, {Key: "active", Value: true}}},
			{Key: "createdAt", Value: created},
		}))

		repo := NewMongoShopRepository(mt.DB)
		shop, err := repo.GetShop(context.Background(), "s1")
		require.NoError(mt, err)
		require.NotNil(mt, shop)
		assert.Equal(mt, "https://s1.example", shop.ShopURL)
		assert.Equal(mt, "secret", shop.ShopSecret)
		assert.True(mt, shop.HasCredentials())
		assert.Equal(mt, domain.ShopCustomFields{Password: "pw", Active: true}, shop.CustomFields)
		assert.True(mt, created.Equal(shop.CreatedAt))
	})

	mt.Run("get missing shop", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		shop, err := NewMongoShopRepository(mt.DB).GetShop(context.Background(), "nope")
		require.NoError(mt, err)
		assert.Nil(mt, shop)
	})

	mt.Run("get fails", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11600, Message: "interrupted"}))

		_, err := NewMongoShopRepository(mt.DB).GetShop(context.Background(), "s1")
		assert.Error(mt, err)
	})

	mt.Run("save upserts", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
		))

		shop := &domain.Shop{ShopID: "s1", ShopURL: "https://s1.example", ShopSecret: "secret"}
		require.NoError(mt, NewMongoShopRepository(mt.DB).SaveShop(context.Background(), shop))
		assert.False(mt, shop.CreatedAt.IsZero())
		assert.False(mt, shop.UpdatedAt.IsZero())
	})

	mt.Run("save fails", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}))

		err := NewMongoShopRepository(mt.DB).SaveShop(context.Background(), &domain.Shop{ShopID: "s1"})
		assert.Error(mt, err)
	})

	mt.Run("delete", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		assert.NoError(mt, NewMongoShopRepository(mt.DB).DeleteShop(context.Background(), "s1"))
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		err := NewMongoShopRepository(mt.DB).DeleteShop(context.Background(), "s1")
		assert.ErrorIs(mt, err, domain.ErrShopNotFound)
	})
}
