package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"vehicle-data-service/internal/domain/entity"
)

func TestMongoListingRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("FindByAdvertID returns nil when missing", func(mt *mtest.T) {
		repo := NewMongoListingRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, "listings"), mtest.FirstBatch))

		listing, err := repo.FindByAdvertID(ctx, "nope")
		require.NoError(mt, err)
		assert.Nil(mt, listing)
	})

	mt.Run("FindPendingEnrichment decodes listings", func(mt *mtest.T) {
		repo := NewMongoListingRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, "listings"), mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: "l1"},
				{Key: "advertId", Value: "advert-1"},
				{Key: "vrm", Value: "YD17AVU"},
				{Key: "status", Value: entity.ListingPending},
				{Key: "mileage", Value: 170000},
				{Key: "manualOverrides", Value: bson.A{entity.FieldPrice}},
			},
		))

		listings, err := repo.FindPendingEnrichment(ctx, 20)
		require.NoError(mt, err)
		require.Len(mt, listings, 1)
		assert.Equal(mt, "advert-1", listings[0].AdvertID)
		assert.Equal(mt, 170000, listings[0].Mileage)
		assert.True(mt, listings[0].IsLocked(entity.FieldPrice))
	})

	mt.Run("Save inserts with a new id", func(mt *mtest.T) {
		repo := NewMongoListingRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		listing := entity.NewListingRecord("YD17AVU", time.Now())
		require.NoError(mt, repo.Save(ctx, listing))
		assert.NotEmpty(mt, listing.ID)
		assert.Equal(mt, int64(1), listing.Version)
	})

	mt.Run("Save stores the mark normalized", func(mt *mtest.T) {
		repo := NewMongoListingRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		mt.ClearEvents()

		listing := &entity.ListingRecord{AdvertID: "advert-2", VRM: " yd17 avu ", Status: entity.ListingPending}
		require.NoError(mt, repo.Save(ctx, listing))
		assert.Equal(mt, "YD17AVU", listing.VRM)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "insert", started.CommandName)
		assert.Equal(mt, "YD17AVU", started.Command.Lookup("documents", "0", "vrm").StringValue())
	})

	mt.Run("FindByVRM queries the normalized mark", func(mt *mtest.T) {
		repo := NewMongoListingRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, "listings"), mtest.FirstBatch))
		mt.ClearEvents()

		_, err := repo.FindByVRM(ctx, "yd17 avu")
		require.NoError(mt, err)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "YD17AVU", started.Command.Lookup("filter", "vrm").StringValue())
	})

	mt.Run("Save reports a stale version", func(mt *mtest.T) {
		repo := NewMongoListingRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		listing := &entity.ListingRecord{ID: "l1", AdvertID: "advert-1", Version: 2}
		err := repo.Save(ctx, listing)
		assert.ErrorIs(mt, err, entity.ErrVersionConflict)
		assert.Equal(mt, int64(2), listing.Version)
	})

	mt.Run("Save bumps the version", func(mt *mtest.T) {
		repo := NewMongoListingRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		listing := &entity.ListingRecord{ID: "l1", AdvertID: "advert-1", Version: 2}
		require.NoError(mt, repo.Save(ctx, listing))
		assert.Equal(mt, int64(3), listing.Version)
	})
}
