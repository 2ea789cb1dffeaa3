package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"vehicle-data-service/internal/domain/entity"
	"vehicle-data-service/pkg/logger"
	"vehicle-data-service/pkg/metrics"
	"vehicle-data-service/pkg/utils"
)

// --- vehicle repository ---

type fakeVehicleRepo struct {
	mu      sync.Mutex
	records map[string]*entity.VehicleRecord
	seq     int
	saves   int
	saveErr error
	findErr error
	// findHook runs before every FindByVRM, outside the lock
	findHook func()
}

func newFakeVehicleRepo() *fakeVehicleRepo {
	return &fakeVehicleRepo{records: make(map[string]*entity.VehicleRecord)}
}

func (f *fakeVehicleRepo) put(rec *entity.VehicleRecord) *entity.VehicleRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec.ID == "" {
		f.seq++
		rec.ID = fmt.Sprintf("v%d", f.seq)
	}
	if rec.Version == 0 {
		rec.Version = 1
	}
	f.records[rec.ID] = rec.Clone()
	return rec
}

func (f *fakeVehicleRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *fakeVehicleRepo) FindByVRM(ctx context.Context, vrm string) ([]*entity.VehicleRecord, error) {
	if f.findHook != nil {
		f.findHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []*entity.VehicleRecord
	for _, r := range f.records {
		if r.VRM == vrm {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsCurrent != out[j].IsCurrent {
			return out[i].IsCurrent
		}
		return out[i].CheckedAt.After(out[j].CheckedAt)
	})
	return out, nil
}

func (f *fakeVehicleRepo) FindCurrent(ctx context.Context, vrm string) (*entity.VehicleRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.VRM == vrm && r.IsCurrent {
			return r.Clone(), nil
		}
	}
	return nil, nil
}

func (f *fakeVehicleRepo) FindByID(ctx context.Context, id string) (*entity.VehicleRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.records[id]; ok {
		return r.Clone(), nil
	}
	return nil, nil
}

func (f *fakeVehicleRepo) Save(ctx context.Context, rec *entity.VehicleRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	if rec.IsCurrent {
		for id, other := range f.records {
			if id != rec.ID && other.VRM == rec.VRM && other.IsCurrent {
				return fmt.Errorf("duplicate current record: %w", entity.ErrVersionConflict)
			}
		}
	}
	if rec.ID == "" {
		f.seq++
		rec.ID = fmt.Sprintf("v%d", f.seq)
		rec.Version = 1
		f.records[rec.ID] = rec.Clone()
		return nil
	}
	stored, ok := f.records[rec.ID]
	if !ok || stored.Version != rec.Version {
		return entity.ErrVersionConflict
	}
	rec.Version++
	f.records[rec.ID] = rec.Clone()
	return nil
}

func (f *fakeVehicleRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return entity.ErrNotFound
	}
	delete(f.records, id)
	return nil
}

func (f *fakeVehicleRepo) DuplicateVRMs(ctx context.Context, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[string]int{}
	for _, r := range f.records {
		counts[r.VRM]++
	}
	var out []string
	for vrm, n := range counts {
		if n > 1 {
			out = append(out, vrm)
		}
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- snapshot repository ---

type fakeSnapshotRepo struct {
	mu        sync.Mutex
	snapshots []*entity.VehicleSnapshot
}

func (f *fakeSnapshotRepo) Append(ctx context.Context, s *entity.VehicleSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, s)
	return nil
}

func (f *fakeSnapshotRepo) ListByVRM(ctx context.Context, vrm string, limit int) ([]*entity.VehicleSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.VehicleSnapshot
	for _, s := range f.snapshots {
		if s.VRM == vrm {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSnapshotRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snapshots)
}

// --- listing repository ---

type fakeListingRepo struct {
	mu       sync.Mutex
	listings map[string]*entity.ListingRecord
	seq      int
	saves    map[string]int
	saveErr  error
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{
		listings: make(map[string]*entity.ListingRecord),
		saves:    make(map[string]int),
	}
}

func cloneListing(l *entity.ListingRecord) *entity.ListingRecord {
	c := *l
	c.ManualOverrides = append([]string(nil), l.ManualOverrides...)
	c.EnrichmentErrors = append([]string(nil), l.EnrichmentErrors...)
	if l.Package != nil {
		p := *l.Package
		c.Package = &p
	}
	return &c
}

func (f *fakeListingRepo) put(l *entity.ListingRecord) *entity.ListingRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l.ID == "" {
		f.seq++
		l.ID = fmt.Sprintf("l%d", f.seq)
	}
	if l.Version == 0 {
		l.Version = 1
	}
	f.listings[l.ID] = cloneListing(l)
	return l
}

func (f *fakeListingRepo) get(id string) *entity.ListingRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneListing(f.listings[id])
}

func (f *fakeListingRepo) saveCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves[id]
}

func (f *fakeListingRepo) filter(keep func(*entity.ListingRecord) bool) []*entity.ListingRecord {
	var out []*entity.ListingRecord
	for _, l := range f.listings {
		if keep(l) {
			out = append(out, cloneListing(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeListingRepo) FindByVRM(ctx context.Context, vrm string) ([]*entity.ListingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vrm = utils.NormalizeVRM(vrm)
	return f.filter(func(l *entity.ListingRecord) bool { return l.VRM == vrm }), nil
}

func (f *fakeListingRepo) FindByAdvertID(ctx context.Context, advertID string) (*entity.ListingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.listings {
		if l.AdvertID == advertID {
			return cloneListing(l), nil
		}
	}
	return nil, nil
}

func (f *fakeListingRepo) FindPendingEnrichment(ctx context.Context, limit int) ([]*entity.ListingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.filter(func(l *entity.ListingRecord) bool {
		return l.VRM != "" && l.EnrichedAt == nil &&
			(l.Status == entity.ListingPending || l.Status == entity.ListingActive)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeListingRepo) FindExpired(ctx context.Context, now time.Time, limit int) ([]*entity.ListingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter(func(l *entity.ListingRecord) bool {
		return l.Status == entity.ListingActive && l.Package != nil &&
			l.Package.ExpiresAt != nil && !l.Package.ExpiresAt.After(now)
	}), nil
}

func (f *fakeListingRepo) FindWithVehicleRef(ctx context.Context, afterID string, limit int) ([]*entity.ListingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.filter(func(l *entity.ListingRecord) bool {
		return l.VehicleID != "" && l.ID > afterID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeListingRepo) Save(ctx context.Context, l *entity.ListingRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	l.VRM = utils.NormalizeVRM(l.VRM)
	if l.ID == "" {
		f.seq++
		l.ID = fmt.Sprintf("l%d", f.seq)
		l.Version = 1
		f.listings[l.ID] = cloneListing(l)
		f.saves[l.ID]++
		return nil
	}
	stored, ok := f.listings[l.ID]
	if !ok || stored.Version != l.Version {
		return entity.ErrVersionConflict
	}
	l.Version++
	f.listings[l.ID] = cloneListing(l)
	f.saves[l.ID]++
	return nil
}

// --- provider call ledger ---

type fakeCallRepo struct {
	mu    sync.Mutex
	calls []*entity.ProviderCall
}

func (f *fakeCallRepo) Record(ctx context.Context, call *entity.ProviderCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakeCallRepo) TotalCostSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := decimal.Zero
	for _, c := range f.calls {
		if c.Success && !c.CalledAt.Before(since) {
			total = total.Add(c.Cost)
		}
	}
	return total, nil
}

// --- providers ---

type fakeProviders struct {
	mu    sync.Mutex
	order []string

	historyCalls, specsCalls, motCalls, valuationCalls int32

	history   func(ctx context.Context, vrm string) (*entity.HistoryData, error)
	specs     func(ctx context.Context, vrm string) (*entity.SpecsData, error)
	mot       func(ctx context.Context, vrm string) (*entity.MOTData, error)
	valuation func(ctx context.Context, vrm string, mileage int) (*entity.ValuationData, error)
}

func (p *fakeProviders) called(service string) {
	p.mu.Lock()
	p.order = append(p.order, service)
	p.mu.Unlock()
}

func (p *fakeProviders) FetchHistory(ctx context.Context, vrm string) (*entity.HistoryData, error) {
	atomic.AddInt32(&p.historyCalls, 1)
	p.called(entity.ServiceHistory)
	return p.history(ctx, vrm)
}

func (p *fakeProviders) FetchSpecs(ctx context.Context, vrm string) (*entity.SpecsData, error) {
	atomic.AddInt32(&p.specsCalls, 1)
	p.called(entity.ServiceSpecs)
	return p.specs(ctx, vrm)
}

func (p *fakeProviders) FetchMOT(ctx context.Context, vrm string) (*entity.MOTData, error) {
	atomic.AddInt32(&p.motCalls, 1)
	p.called(entity.ServiceMOT)
	return p.mot(ctx, vrm)
}

func (p *fakeProviders) FetchValuation(ctx context.Context, vrm string, mileage int) (*entity.ValuationData, error) {
	atomic.AddInt32(&p.valuationCalls, 1)
	p.called(entity.ServiceValuation)
	return p.valuation(ctx, vrm, mileage)
}

func (p *fakeProviders) totalCalls() int32 {
	return atomic.LoadInt32(&p.historyCalls) + atomic.LoadInt32(&p.specsCalls) +
		atomic.LoadInt32(&p.motCalls) + atomic.LoadInt32(&p.valuationCalls)
}

func ptrInt(v int) *int             { return &v }
func ptrFloat(v float64) *float64   { return &v }
func ptrTime(t time.Time) *time.Time { return &t }

// newYD17AVUProviders returns providers that answer like a real KIA check
func newYD17AVUProviders() *fakeProviders {
	return &fakeProviders{
		history: func(ctx context.Context, vrm string) (*entity.HistoryData, error) {
			return &entity.HistoryData{
				Description: entity.VehicleDescription{
					Make:     "KIA",
					Model:    "CEED",
					FuelType: "Diesel",
					Colour:   "Blue",
					Year:     ptrInt(2017),
				},
				History: entity.VehicleHistory{
					PreviousKeepers: ptrInt(3),
					WriteOff:        entity.WriteOff{Category: entity.WriteOffNone},
				},
			}, nil
		},
		specs: func(ctx context.Context, vrm string) (*entity.SpecsData, error) {
			return &entity.SpecsData{
				Description: entity.VehicleDescription{
					Make:    "KIA",
					Variant: "XCeed GT-Line",
				},
				RunningCosts: entity.RunningCosts{
					CombinedMPG:    ptrFloat(52.3),
					CO2Emissions:   ptrInt(122),
					InsuranceGroup: "16E",
				},
			}, nil
		},
		mot: func(ctx context.Context, vrm string) (*entity.MOTData, error) {
			return &entity.MOTData{Tests: []entity.MOTTest{{
				TestDate:      time.Date(2023, 5, 2, 10, 0, 0, 0, time.UTC),
				ExpiryDate:    ptrTime(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
				Result:        entity.MOTPassed,
				OdometerValue: 173130,
				OdometerUnit:  entity.UnitMiles,
			}}}, nil
		},
		valuation: func(ctx context.Context, vrm string, mileage int) (*entity.ValuationData, error) {
			return &entity.ValuationData{Valuation: entity.Valuation{
				PrivatePrice:      5450,
				DealerPrice:       6200,
				PartExchangePrice: 4100,
				Confidence:        entity.ConfidenceHigh,
				Mileage:           mileage,
			}}, nil
		},
	}
}

// --- wiring ---

type testEnv struct {
	providers *fakeProviders
	vehicles  *fakeVehicleRepo
	snapshots *fakeSnapshotRepo
	listings  *fakeListingRepo
	calls     *fakeCallRepo
	metrics   *metrics.Metrics
	now       time.Time

	cache      *CachePolicy
	reconciler *Reconciler
	aggregator *VehicleAggregator
}

func testUnitCosts() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		entity.ServiceHistory:   decimal.RequireFromString("1.82"),
		entity.ServiceSpecs:     decimal.RequireFromString("0.05"),
		entity.ServiceMOT:       decimal.RequireFromString("0.02"),
		entity.ServiceValuation: decimal.RequireFromString("0.12"),
	}
}

func newTestEnv(t *testing.T, mutate ...func(*AggregatorConfig)) *testEnv {
	t.Helper()

	env := &testEnv{
		providers: newYD17AVUProviders(),
		vehicles:  newFakeVehicleRepo(),
		snapshots: &fakeSnapshotRepo{},
		listings:  newFakeListingRepo(),
		calls:     &fakeCallRepo{},
		metrics:   metrics.NewMetrics("test", prometheus.NewRegistry()),
		now:       time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return env.now }
	log := logger.NewNopLogger()

	cfg := AggregatorConfig{
		CallTimeout:  time.Second,
		FanOut:       true,
		UnitCosts:    testUnitCosts(),
		ProviderName: "checkcardetails",
	}
	for _, m := range mutate {
		m(&cfg)
	}

	env.cache = NewCachePolicy(env.vehicles, entity.CacheTTL, env.metrics, log)
	env.cache.now = clock
	env.reconciler = NewReconciler(env.listings, log)
	env.reconciler.now = clock

	p := Providers{History: env.providers, Specs: env.providers, MOT: env.providers, Valuation: env.providers}
	env.aggregator = NewVehicleAggregator(p, env.vehicles, env.snapshots, env.calls,
		env.cache, env.reconciler, env.metrics, log, cfg)
	env.aggregator.now = clock
	return env
}
