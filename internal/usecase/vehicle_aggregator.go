package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"vehicle-data-service/internal/domain/entity"
	"vehicle-data-service/internal/domain/repository"
	"vehicle-data-service/pkg/logger"
	"vehicle-data-service/pkg/metrics"
	"vehicle-data-service/pkg/utils"
)

// Providers groups the four provider services the aggregator calls
type Providers struct {
	History   repository.HistoryProvider
	Specs     repository.SpecsProvider
	MOT       repository.MOTProvider
	Valuation repository.ValuationProvider
}

// AggregatorConfig holds the aggregator's tunables
type AggregatorConfig struct {
	// CallTimeout bounds each provider call on its own
	CallTimeout time.Duration
	FanOut      bool
	// UnitCosts is the price of one successful call per service
	UnitCosts    map[string]decimal.Decimal
	ProviderName string
	TestMode     bool
}

// VehicleFetcher is the aggregation entry point used by listing flows
type VehicleFetcher interface {
	FetchCompleteVehicleData(ctx context.Context, mark string, mileage int, forceRefresh bool) (*entity.CheckResult, error)
}

// VehicleAggregator fetches, merges and stores a complete vehicle check
type VehicleAggregator struct {
	providers    Providers
	vehicleRepo  repository.VehicleRepository
	snapshotRepo repository.VehicleSnapshotRepository
	callRepo     repository.ProviderCallRepository
	cache        *CachePolicy
	reconciler   *Reconciler
	metrics      *metrics.Metrics
	logger       logger.Logger
	cfg          AggregatorConfig

	group singleflight.Group
	now   func() time.Time
}

// NewVehicleAggregator creates a new aggregator. callRepo may be nil when
// the provider call ledger is disabled.
func NewVehicleAggregator(
	providers Providers,
	vehicleRepo repository.VehicleRepository,
	snapshotRepo repository.VehicleSnapshotRepository,
	callRepo repository.ProviderCallRepository,
	cache *CachePolicy,
	reconciler *Reconciler,
	metrics *metrics.Metrics,
	logger logger.Logger,
	cfg AggregatorConfig,
) *VehicleAggregator {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	return &VehicleAggregator{
		providers:    providers,
		vehicleRepo:  vehicleRepo,
		snapshotRepo: snapshotRepo,
		callRepo:     callRepo,
		cache:        cache,
		reconciler:   reconciler,
		metrics:      metrics,
		logger:       logger,
		cfg:          cfg,
		now:          time.Now,
	}
}

// callOutcome is what one provider call produced
type callOutcome struct {
	service  string
	data     interface{}
	err      error
	duration time.Duration
	calledAt time.Time
}

// FetchCompleteVehicleData returns the vehicle check for mark. Only invalid
// input returns an error; provider and persistence failures are reported
// in the result. Concurrent calls for the same mark share one fetch.
func (a *VehicleAggregator) FetchCompleteVehicleData(
	ctx context.Context,
	mark string,
	mileage int,
	forceRefresh bool,
) (*entity.CheckResult, error) {
	vrm := utils.NormalizeVRM(mark)
	if !utils.IsValidVRM(vrm) {
		return nil, &entity.ValidationError{Field: "vrm", Value: mark, Reason: entity.ErrInvalidRegistration}
	}
	if mileage < 0 {
		return nil, &entity.ValidationError{Field: "mileage", Value: strconv.Itoa(mileage), Reason: entity.ErrNegativeMileage}
	}

	// The shared fetch must not die with whichever caller started it
	detached := context.WithoutCancel(ctx)
	for {
		v, err, shared := a.group.Do(vrm, func() (interface{}, error) {
			return a.run(detached, vrm, mileage, forceRefresh), nil
		})
		if err != nil {
			return nil, err
		}
		result := v.(*entity.CheckResult)
		if !shared {
			return result, nil
		}
		a.logger.Debug("Joined in-flight vehicle check", "vrm", vrm, "cached", result.Cached)
		// A forced caller that joined a cache answer runs again
		if !forceRefresh || !result.Cached {
			return result, nil
		}
	}
}

func (a *VehicleAggregator) run(ctx context.Context, vrm string, mileage int, forceRefresh bool) *entity.CheckResult {
	start := a.now()
	defer func() {
		a.metrics.AggregationTime.Observe(a.now().Sub(start).Seconds())
	}()

	log := a.logger.With("vrm", vrm)
	result := &entity.CheckResult{
		Success:   true,
		VRM:       vrm,
		Errors:    []entity.ServiceError{},
		TotalCost: decimal.Zero,
	}

	var existing *entity.VehicleRecord
	cached, err := a.cache.Check(ctx, vrm)
	if err != nil {
		log.Warn("Cache lookup failed, fetching from providers", "error", err)
		a.metrics.ErrorsCount.WithLabelValues("cache_lookup").Inc()
		result.Warnings = append(result.Warnings, err.Error())
	} else {
		existing = cached.Record
		result.Warnings = append(result.Warnings, cached.Warnings...)
	}

	if !forceRefresh && cached != nil && cached.Hit {
		log.Info("Vehicle check served from cache", "age", cached.Age.String())
		result.Cached = true
		result.Record = cached.Record
		result.Data = dataFromRecord(cached.Record)
		result.Warnings = append(result.Warnings, a.reconciler.ReconcileListings(ctx, cached.Record, nil)...)
		return result
	}

	outcomes := a.fetchAll(ctx, vrm, mileage)

	// Fresh provider data wins; the stored record only fills what no
	// provider returned
	record := entity.NewVehicleRecord(vrm)

	succeeded := 0
	for _, o := range outcomes {
		if o.err != nil {
			log.Warn("Provider call failed",
				"service", o.service,
				"duration", o.duration.String(),
				"error", o.err)
			result.Errors = append(result.Errors, entity.ServiceError{Service: o.service, Error: o.err.Error()})
			a.metrics.ProviderCalls.WithLabelValues(o.service, "failure").Inc()
			continue
		}

		cost := a.cfg.UnitCosts[o.service]
		succeeded++
		result.APICalls++
		result.TotalCost = result.TotalCost.Add(cost)
		a.metrics.ProviderCalls.WithLabelValues(o.service, "success").Inc()
		a.metrics.ProviderCost.WithLabelValues(o.service).Add(cost.InexactFloat64())

		// Fixed merge order: outcomes are indexed by entity.Services
		switch d := o.data.(type) {
		case *entity.HistoryData:
			result.Data.History = d
			MergeHistory(record, d)
		case *entity.SpecsData:
			result.Data.Specs = d
			MergeSpecs(record, d)
		case *entity.MOTData:
			result.Data.MOT = d
			MergeMOT(record, d)
		case *entity.ValuationData:
			result.Data.Valuation = d
			MergeValuation(record, d)
		}
	}

	a.recordCalls(ctx, vrm, outcomes)

	if succeeded == 0 {
		log.Error("All provider calls failed", "errors", len(result.Errors))
		result.Record = existing
		return result
	}

	FillFromPrevious(record, existing)

	now := a.now()
	record.IsCurrent = true
	record.CheckedAt = now
	record.Provider = a.cfg.ProviderName
	record.TestMode = a.cfg.TestMode
	record.CheckStatus = entity.CheckStatusSuccess
	if len(result.Errors) > 0 {
		record.CheckStatus = entity.CheckStatusPartial
	}
	result.Record = record

	if err := a.vehicleRepo.Save(ctx, record); err != nil {
		a.metrics.ErrorsCount.WithLabelValues("save_vehicle").Inc()
		if errors.Is(err, entity.ErrVersionConflict) {
			log.Warn("Vehicle record was refreshed concurrently, keeping the other write", "error", err)
		} else {
			log.Error("Failed to save vehicle record", "error", err)
		}
		result.Warnings = append(result.Warnings, "vehicle record not saved: "+err.Error())
		return result
	}

	// Only a supersede that actually happened goes to the log
	if existing != nil && existing.ID != "" {
		snapshot := &entity.VehicleSnapshot{
			VRM:          vrm,
			VehicleID:    existing.ID,
			Reason:       entity.SnapshotRefresh,
			Record:       existing,
			SupersededAt: now,
		}
		if err := a.snapshotRepo.Append(ctx, snapshot); err != nil {
			log.Error("Failed to snapshot superseded vehicle record", "error", err)
			a.metrics.ErrorsCount.WithLabelValues("snapshot_vehicle").Inc()
			result.Warnings = append(result.Warnings, "snapshot not stored: "+err.Error())
		}
	}

	log.Info("Vehicle check completed",
		"status", record.CheckStatus,
		"apiCalls", result.APICalls,
		"totalCost", result.TotalCost.StringFixed(2),
		"errors", len(result.Errors))

	result.Warnings = append(result.Warnings, a.reconciler.ReconcileListings(ctx, record, result.Errors)...)
	return result
}

// fetchAll runs the four provider calls, in parallel when fan-out is on.
// The returned slice follows entity.Services order either way.
func (a *VehicleAggregator) fetchAll(ctx context.Context, vrm string, mileage int) []callOutcome {
	calls := []func(ctx context.Context) (interface{}, error){
		func(ctx context.Context) (interface{}, error) { return a.providers.History.FetchHistory(ctx, vrm) },
		func(ctx context.Context) (interface{}, error) { return a.providers.Specs.FetchSpecs(ctx, vrm) },
		func(ctx context.Context) (interface{}, error) { return a.providers.MOT.FetchMOT(ctx, vrm) },
		func(ctx context.Context) (interface{}, error) {
			return a.providers.Valuation.FetchValuation(ctx, vrm, mileage)
		},
	}

	outcomes := make([]callOutcome, len(entity.Services))
	invoke := func(i int) {
		callCtx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
		defer cancel()

		started := a.now()
		data, err := calls[i](callCtx)
		if err == nil && isNilData(data) {
			err = errors.New("provider returned no data")
		}
		outcomes[i] = callOutcome{
			service:  entity.Services[i],
			data:     data,
			err:      err,
			duration: a.now().Sub(started),
			calledAt: started,
		}
	}

	if !a.cfg.FanOut {
		for i := range calls {
			invoke(i)
		}
		return outcomes
	}

	var g errgroup.Group
	for i := range calls {
		i := i
		g.Go(func() error {
			invoke(i)
			return nil
		})
	}
	g.Wait()
	return outcomes
}

func isNilData(data interface{}) bool {
	switch d := data.(type) {
	case *entity.HistoryData:
		return d == nil
	case *entity.SpecsData:
		return d == nil
	case *entity.MOTData:
		return d == nil
	case *entity.ValuationData:
		return d == nil
	}
	return data == nil
}

// recordCalls appends every attempted call to the billing ledger
func (a *VehicleAggregator) recordCalls(ctx context.Context, vrm string, outcomes []callOutcome) {
	if a.callRepo == nil {
		return
	}
	for _, o := range outcomes {
		call := &entity.ProviderCall{
			VRM:      vrm,
			Service:  o.service,
			Success:  o.err == nil,
			Cost:     decimal.Zero,
			Duration: o.duration,
			TestMode: a.cfg.TestMode,
			CalledAt: o.calledAt,
		}
		if o.err == nil {
			call.Cost = a.cfg.UnitCosts[o.service]
		} else {
			call.Error = o.err.Error()
		}
		if err := a.callRepo.Record(ctx, call); err != nil {
			a.logger.Error("Failed to record provider call",
				"vrm", vrm,
				"service", o.service,
				"error", err)
			a.metrics.ErrorsCount.WithLabelValues("record_provider_call").Inc()
		}
	}
}

// dataFromRecord rebuilds the per-service view from a stored record
func dataFromRecord(rec *entity.VehicleRecord) entity.CheckData {
	desc := entity.VehicleDescription{
		Make:           rec.Make,
		Model:          rec.Model,
		Variant:        rec.Variant,
		Year:           rec.Year,
		BodyType:       rec.BodyType,
		FuelType:       rec.FuelType,
		Transmission:   rec.Transmission,
		EngineCapacity: rec.EngineCapacity,
		Colour:         rec.Colour,
		Doors:          rec.Doors,
		Seats:          rec.Seats,
	}

	var data entity.CheckData
	if rec.History != nil {
		data.History = &entity.HistoryData{Description: desc, History: *rec.History}
	}
	data.Specs = &entity.SpecsData{Description: desc}
	if rec.RunningCosts != nil {
		data.Specs.RunningCosts = *rec.RunningCosts
	}
	if len(rec.MOTTests) > 0 {
		data.MOT = &entity.MOTData{Tests: rec.MOTTests}
	}
	if rec.Valuation != nil {
		data.Valuation = &entity.ValuationData{Valuation: *rec.Valuation}
	}
	return data
}
