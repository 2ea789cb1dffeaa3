package usecase

import (
	"context"
	"fmt"
	"time"

	"vehicle-data-service/internal/domain/entity"
	"vehicle-data-service/internal/domain/repository"
	"vehicle-data-service/pkg/logger"
	"vehicle-data-service/pkg/metrics"
	"vehicle-data-service/pkg/utils"
)

// CacheResult is the outcome of a freshness check
type CacheResult struct {
	Hit    bool
	Record *entity.VehicleRecord
	Age    time.Duration
	// Stale is set when a record exists but is too old to reuse
	Stale    bool
	Warnings []string
}

// CachePolicy decides whether a stored vehicle check can be reused
type CachePolicy struct {
	vehicleRepo repository.VehicleRepository
	ttl         time.Duration
	metrics     *metrics.Metrics
	logger      logger.Logger
	now         func() time.Time
}

// NewCachePolicy creates a new cache policy
func NewCachePolicy(
	vehicleRepo repository.VehicleRepository,
	ttl time.Duration,
	metrics *metrics.Metrics,
	logger logger.Logger,
) *CachePolicy {
	if ttl <= 0 {
		ttl = entity.CacheTTL
	}
	return &CachePolicy{
		vehicleRepo: vehicleRepo,
		ttl:         ttl,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Check looks up the stored record for a mark. It never writes.
func (p *CachePolicy) Check(ctx context.Context, vrm string) (*CacheResult, error) {
	vrm = utils.NormalizeVRM(vrm)

	records, err := p.vehicleRepo.FindByVRM(ctx, vrm)
	if err != nil {
		return nil, fmt.Errorf("cache lookup for %s: %w", vrm, err)
	}

	result := &CacheResult{}
	if len(records) == 0 {
		p.metrics.CacheLookups.WithLabelValues("miss").Inc()
		return result, nil
	}

	if len(records) > 1 {
		warning := fmt.Sprintf("%d vehicle records stored for %s", len(records), vrm)
		result.Warnings = append(result.Warnings, warning)
		p.metrics.IntegrityWarnings.WithLabelValues("duplicate_vrm").Inc()
		p.logger.Warn("Multiple vehicle records for one mark",
			"vrm", vrm,
			"count", len(records))
	}

	record := pickRecord(records)
	now := p.now()

	result.Record = record
	result.Age = record.Age(now)

	switch {
	case record.CheckStatus == entity.CheckStatusFailed:
		result.Stale = true
	case record.IsFresh(now, p.ttl):
		result.Hit = true
	default:
		result.Stale = true
	}

	if result.Hit {
		p.metrics.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		p.metrics.CacheLookups.WithLabelValues("stale").Inc()
	}
	return result, nil
}

// pickRecord prefers the record flagged current, then the newest check
func pickRecord(records []*entity.VehicleRecord) *entity.VehicleRecord {
	var newest *entity.VehicleRecord
	for _, r := range records {
		if r.IsCurrent {
			return r
		}
		if newest == nil || r.CheckedAt.After(newest.CheckedAt) {
			newest = r
		}
	}
	return newest
}
