package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vehicle-data-service/internal/domain/entity"
	"vehicle-data-service/internal/domain/repository"
	"vehicle-data-service/pkg/logger"
	"vehicle-data-service/pkg/metrics"
)

// ListingEnricher fills new listings with vehicle data and retires expired
// ones. It is driven by the server's ticker loop.
type ListingEnricher struct {
	listingRepo repository.ListingRepository
	fetcher     VehicleFetcher
	metrics     *metrics.Metrics
	logger      logger.Logger
	batchSize   int
	now         func() time.Time
}

// NewListingEnricher creates a new listing enricher
func NewListingEnricher(
	listingRepo repository.ListingRepository,
	fetcher VehicleFetcher,
	metrics *metrics.Metrics,
	logger logger.Logger,
	batchSize int,
) *ListingEnricher {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &ListingEnricher{
		listingRepo: listingRepo,
		fetcher:     fetcher,
		metrics:     metrics,
		logger:      logger,
		batchSize:   batchSize,
		now:         time.Now,
	}
}

// ProcessPendingListings enriches listings that have a mark but were never
// enriched. It returns how many listings were processed.
func (e *ListingEnricher) ProcessPendingListings(ctx context.Context) (int, error) {
	listings, err := e.listingRepo.FindPendingEnrichment(ctx, e.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find pending listings: %w", err)
	}

	if len(listings) == 0 {
		return 0, nil
	}

	e.logger.Info("Enriching pending listings", "count", len(listings))

	processed := 0
	for _, listing := range listings {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		outcome := e.enrich(ctx, listing)
		e.metrics.ListingsEnriched.WithLabelValues(outcome).Inc()
		processed++
	}
	return processed, nil
}

func (e *ListingEnricher) enrich(ctx context.Context, listing *entity.ListingRecord) string {
	result, err := e.fetcher.FetchCompleteVehicleData(ctx, listing.VRM, listing.Mileage, false)
	if err != nil {
		var verr *entity.ValidationError
		if errors.As(err, &verr) {
			e.logger.Warn("Listing has an unusable registration",
				"advertID", listing.AdvertID,
				"vrm", listing.VRM,
				"error", err)
			e.flag(ctx, listing, []string{err.Error()})
			return "invalid"
		}
		e.logger.Error("Vehicle check failed for listing",
			"advertID", listing.AdvertID,
			"error", err)
		return "error"
	}

	// The aggregator stamps the listing when it reconciles; re-read it to
	// see whether that happened
	current, err := e.listingRepo.FindByAdvertID(ctx, listing.AdvertID)
	if err != nil || current == nil {
		e.logger.Error("Failed to reload listing after enrichment",
			"advertID", listing.AdvertID,
			"error", err)
		return "error"
	}

	if current.EnrichedAt == nil {
		var msgs []string
		for _, se := range result.Errors {
			msgs = append(msgs, se.Service+": "+se.Error)
		}
		if len(msgs) == 0 {
			msgs = append(msgs, "no vehicle data available")
		}
		e.flag(ctx, current, msgs)
		return "failed"
	}

	if len(result.Errors) > 0 {
		return "partial"
	}
	return "enriched"
}

// flag stamps a listing that could not be enriched so it is not retried
// every tick; an operator can re-run it with RefreshListing
func (e *ListingEnricher) flag(ctx context.Context, listing *entity.ListingRecord, msgs []string) {
	now := e.now()
	listing.EnrichedAt = &now
	listing.EnrichmentErrors = msgs
	if err := e.listingRepo.Save(ctx, listing); err != nil {
		e.logger.Error("Failed to flag listing for follow-up",
			"advertID", listing.AdvertID,
			"error", err)
		e.metrics.ErrorsCount.WithLabelValues("flag_listing").Inc()
	}
}

// ExpireListings moves active listings past their package expiry to expired
func (e *ListingEnricher) ExpireListings(ctx context.Context) (int, error) {
	now := e.now()
	listings, err := e.listingRepo.FindExpired(ctx, now, e.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find expired listings: %w", err)
	}

	expired := 0
	for _, listing := range listings {
		if !listing.IsExpired(now) {
			continue
		}
		if err := listing.Transition(entity.ListingExpired, now); err != nil {
			e.logger.Warn("Cannot expire listing", "advertID", listing.AdvertID, "error", err)
			continue
		}
		if err := e.listingRepo.Save(ctx, listing); err != nil {
			e.logger.Error("Failed to save expired listing",
				"advertID", listing.AdvertID,
				"error", err)
			e.metrics.ErrorsCount.WithLabelValues("expire_listing").Inc()
			continue
		}
		expired++
	}

	if expired > 0 {
		e.logger.Info("Expired listings", "count", expired)
	}
	return expired, nil
}
