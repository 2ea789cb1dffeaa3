package repository

import (
	"context"
	"fmt"
	"time"

	"vehicle-data-service/internal/domain/entity"
	"vehicle-data-service/internal/domain/repository"
	"vehicle-data-service/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoListingRepository implements ListingRepository
type MongoListingRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoListingRepository creates a new listing repository
func NewMongoListingRepository(db *mongo.Database) repository.ListingRepository {
	collection := db.Collection("listings")

	ctx := context.Background()
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "advertId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "vrm", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "package.expiresAt", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "enrichedAt", Value: 1},
				{Key: "createdAt", Value: 1},
			},
		},
	}
	collection.Indexes().CreateMany(ctx, indexes)

	return &MongoListingRepository{
		collection: collection,
		now:        time.Now,
	}
}

func (r *MongoListingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*entity.ListingRecord, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find listings: %w", err)
	}
	defer cursor.Close(ctx)

	var listings []*entity.ListingRecord
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	return listings, nil
}

// FindByVRM finds every listing for a mark, newest first
func (r *MongoListingRepository) FindByVRM(ctx context.Context, vrm string) ([]*entity.ListingRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.find(ctx, bson.M{"vrm": utils.NormalizeVRM(vrm)}, opts)
}

// FindByAdvertID finds a listing by its public advert id
func (r *MongoListingRepository) FindByAdvertID(ctx context.Context, advertID string) (*entity.ListingRecord, error) {
	var listing entity.ListingRecord
	err := r.collection.FindOne(ctx, bson.M{"advertId": advertID}).Decode(&listing)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &listing, nil
}

// FindPendingEnrichment finds live listings with a mark that were never enriched
func (r *MongoListingRepository) FindPendingEnrichment(ctx context.Context, limit int) ([]*entity.ListingRecord, error) {
	filter := bson.M{
		"vrm":        bson.M{"$exists": true, "$ne": ""},
		"enrichedAt": bson.M{"$exists": false},
		"status":     bson.M{"$in": []string{entity.ListingPending, entity.ListingActive}},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

// FindExpired finds active listings whose package ran out at or before now
func (r *MongoListingRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]*entity.ListingRecord, error) {
	filter := bson.M{
		"status":            entity.ListingActive,
		"package.expiresAt": bson.M{"$lte": now},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "package.expiresAt", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

// FindWithVehicleRef pages through listings that carry a vehicle reference
func (r *MongoListingRepository) FindWithVehicleRef(ctx context.Context, afterID string, limit int) ([]*entity.ListingRecord, error) {
	filter := bson.M{"vehicleId": bson.M{"$exists": true, "$ne": ""}}
	if afterID != "" {
		filter["_id"] = bson.M{"$gt": afterID}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

// Save inserts a new listing or replaces an existing one with a version
// check. The mark is stored normalized so FindByVRM always matches it.
func (r *MongoListingRepository) Save(ctx context.Context, listing *entity.ListingRecord) error {
	now := r.now()
	listing.UpdatedAt = now
	listing.VRM = utils.NormalizeVRM(listing.VRM)

	if listing.ID == "" {
		listing.ID = primitive.NewObjectID().Hex()
		listing.Version = 1
		if listing.CreatedAt.IsZero() {
			listing.CreatedAt = now
		}
		if _, err := r.collection.InsertOne(ctx, listing); err != nil {
			listing.ID = ""
			return fmt.Errorf("failed to insert listing: %w", err)
		}
		return nil
	}

	expected := listing.Version
	listing.Version = expected + 1

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": listing.ID, "version": expected}, listing)
	if err != nil {
		listing.Version = expected
		return fmt.Errorf("failed to replace listing: %w", err)
	}
	if result.MatchedCount == 0 {
		listing.Version = expected
		return fmt.Errorf("listing %s version %d: %w", listing.AdvertID, expected, entity.ErrVersionConflict)
	}
	return nil
}
