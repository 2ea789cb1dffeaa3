package repository

import (
	"context"
	"fmt"

	"vehicle-data-service/internal/domain/entity"
	"vehicle-data-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoVehicleSnapshotRepository implements VehicleSnapshotRepository
type MongoVehicleSnapshotRepository struct {
	collection *mongo.Collection
}

// NewMongoVehicleSnapshotRepository creates the superseded-record log
func NewMongoVehicleSnapshotRepository(db *mongo.Database) repository.VehicleSnapshotRepository {
	collection := db.Collection("vehicle_snapshots")

	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "vrm", Value: 1},
			{Key: "supersededAt", Value: -1},
		},
	}
	collection.Indexes().CreateOne(context.Background(), indexModel)

	return &MongoVehicleSnapshotRepository{collection: collection}
}

// Append stores a snapshot; snapshots are never updated
func (r *MongoVehicleSnapshotRepository) Append(ctx context.Context, snapshot *entity.VehicleSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = primitive.NewObjectID().Hex()
	}
	if _, err := r.collection.InsertOne(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to append vehicle snapshot: %w", err)
	}
	return nil
}

// ListByVRM returns the newest snapshots for a mark
func (r *MongoVehicleSnapshotRepository) ListByVRM(ctx context.Context, vrm string, limit int) ([]*entity.VehicleSnapshot, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "supersededAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"vrm": vrm}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicle snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	var snapshots []*entity.VehicleSnapshot
	if err := cursor.All(ctx, &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}
