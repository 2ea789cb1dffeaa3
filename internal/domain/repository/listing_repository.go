package repository

import (
	"context"
	"time"

	"vehicle-data-service/internal/domain/entity"
)

// ListingRepository defines the interface for advert storage
type ListingRepository interface {
	FindByVRM(ctx context.Context, vrm string) ([]*entity.ListingRecord, error)
	FindByAdvertID(ctx context.Context, advertID string) (*entity.ListingRecord, error)
	FindPendingEnrichment(ctx context.Context, limit int) ([]*entity.ListingRecord, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]*entity.ListingRecord, error)
	// FindWithVehicleRef pages through listings that carry a vehicle
	// reference, ordered by id, starting after afterID
	FindWithVehicleRef(ctx context.Context, afterID string, limit int) ([]*entity.ListingRecord, error)
	Save(ctx context.Context, listing *entity.ListingRecord) error
}
