package repository

import (
	"context"
	"fmt"
	"time"

	"vehicle-data-service/internal/domain/entity"
	"vehicle-data-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoVehicleRepository implements VehicleRepository
type MongoVehicleRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoVehicleRepository creates a new vehicle record repository
func NewMongoVehicleRepository(db *mongo.Database) repository.VehicleRepository {
	collection := db.Collection("vehicles")

	ctx := context.Background()

	// One current record per mark. Legacy duplicates are flagged
	// non-current by the duplicate migration before this can build.
	currentIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "vrm", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetName("vrm_current_unique").
			SetPartialFilterExpression(bson.M{"isCurrent": true}),
	}

	// Newest check first within a mark
	checkedIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "vrm", Value: 1},
			{Key: "checkedAt", Value: -1},
		},
	}

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{currentIndex, checkedIndex})

	return &MongoVehicleRepository{
		collection: collection,
		now:        time.Now,
	}
}

// FindByVRM finds all records for a mark, current first then newest first
func (r *MongoVehicleRepository) FindByVRM(ctx context.Context, vrm string) ([]*entity.VehicleRecord, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "isCurrent", Value: -1},
		{Key: "checkedAt", Value: -1},
	})
	cursor, err := r.collection.Find(ctx, bson.M{"vrm": vrm}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find vehicles: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*entity.VehicleRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode vehicles: %w", err)
	}
	return records, nil
}

// FindCurrent finds the current record for a mark
func (r *MongoVehicleRepository) FindCurrent(ctx context.Context, vrm string) (*entity.VehicleRecord, error) {
	var record entity.VehicleRecord
	err := r.collection.FindOne(ctx, bson.M{"vrm": vrm, "isCurrent": true}).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// FindByID finds a record by its document id
func (r *MongoVehicleRepository) FindByID(ctx context.Context, id string) (*entity.VehicleRecord, error) {
	var record entity.VehicleRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Save inserts a new record or replaces an existing one with a version check
func (r *MongoVehicleRepository) Save(ctx context.Context, record *entity.VehicleRecord) error {
	now := r.now()
	record.UpdatedAt = now

	if record.ID == "" {
		record.ID = primitive.NewObjectID().Hex()
		record.CreatedAt = now
		record.Version = 1

		if _, err := r.collection.InsertOne(ctx, record); err != nil {
			record.ID = ""
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("insert vehicle %s: %w", record.VRM, entity.ErrVersionConflict)
			}
			return fmt.Errorf("failed to insert vehicle: %w", err)
		}
		return nil
	}

	expected := record.Version
	record.Version = expected + 1

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": record.ID, "version": expected}, record)
	if err != nil {
		record.Version = expected
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("replace vehicle %s: %w", record.VRM, entity.ErrVersionConflict)
		}
		return fmt.Errorf("failed to replace vehicle: %w", err)
	}
	if result.MatchedCount == 0 {
		record.Version = expected
		return fmt.Errorf("vehicle %s version %d: %w", record.ID, expected, entity.ErrVersionConflict)
	}
	return nil
}

// Delete removes a record by id
func (r *MongoVehicleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("vehicle %s: %w", id, entity.ErrNotFound)
	}
	return nil
}

// DuplicateVRMs lists marks that have more than one stored record
func (r *MongoVehicleRepository) DuplicateVRMs(ctx context.Context, limit int) ([]string, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$vrm"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "count", Value: bson.D{{Key: "$gt", Value: 1}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(limit)}})
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate duplicates: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		VRM   string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	vrms := make([]string, 0, len(rows))
	for _, row := range rows {
		vrms = append(vrms, row.VRM)
	}
	return vrms, nil
}
