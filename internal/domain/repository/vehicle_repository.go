package repository

import (
	"context"

	"vehicle-data-service/internal/domain/entity"
)

// VehicleRepository defines the interface for vehicle record storage
type VehicleRepository interface {
	// FindByVRM returns every record stored for the mark, current first,
	// then newest check first
	FindByVRM(ctx context.Context, vrm string) ([]*entity.VehicleRecord, error)
	FindCurrent(ctx context.Context, vrm string) (*entity.VehicleRecord, error)
	FindByID(ctx context.Context, id string) (*entity.VehicleRecord, error)
	// Save inserts a new record or replaces an existing one if its version
	// still matches; entity.ErrVersionConflict otherwise
	Save(ctx context.Context, record *entity.VehicleRecord) error
	// Delete removes a record once it has been copied to the snapshot log
	Delete(ctx context.Context, id string) error
	DuplicateVRMs(ctx context.Context, limit int) ([]string, error)
}

// VehicleSnapshotRepository is the append-only log of superseded records
type VehicleSnapshotRepository interface {
	Append(ctx context.Context, snapshot *entity.VehicleSnapshot) error
	ListByVRM(ctx context.Context, vrm string, limit int) ([]*entity.VehicleSnapshot, error)
}
