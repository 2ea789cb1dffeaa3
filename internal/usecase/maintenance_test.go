package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-data-service/internal/domain/entity"
	"vehicle-data-service/pkg/logger"
)

func newTestMaintenance(env *testEnv) *Maintenance {
	m := NewMaintenance(env.vehicles, env.snapshots, env.listings, env.aggregator, env.reconciler, logger.NewNopLogger())
	m.now = func() time.Time { return env.now }
	return m
}

func TestCollapseDuplicateVehicles(t *testing.T) {
	env := newTestEnv(t)
	m := newTestMaintenance(env)
	ctx := context.Background()

	stale := env.vehicles.put(&entity.VehicleRecord{
		VRM: "AB12CDE", IsCurrent: true, CheckedAt: env.now.Add(-72 * time.Hour),
	})
	middle := env.vehicles.put(&entity.VehicleRecord{
		VRM: "AB12CDE", CheckedAt: env.now.Add(-48 * time.Hour),
	})
	newest := env.vehicles.put(&entity.VehicleRecord{
		VRM: "AB12CDE", CheckedAt: env.now.Add(-time.Hour), Variant: "GT-Line",
	})
	env.vehicles.put(&entity.VehicleRecord{VRM: "ZZ99ZZZ", IsCurrent: true, CheckedAt: env.now})

	onStale := env.listings.put(&entity.ListingRecord{AdvertID: "a1", VRM: "AB12CDE", VehicleID: stale.ID, Status: entity.ListingActive})
	onMiddle := env.listings.put(&entity.ListingRecord{AdvertID: "a2", VRM: "AB12CDE", VehicleID: middle.ID, Status: entity.ListingActive})

	report, err := m.CollapseDuplicateVehicles(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, &MigrationReport{Examined: 1, Changed: 1}, report)

	records, err := env.vehicles.FindByVRM(ctx, "AB12CDE")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, newest.ID, records[0].ID)
	assert.True(t, records[0].IsCurrent)

	snaps, err := env.snapshots.ListByVRM(ctx, "AB12CDE", 0)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	for _, s := range snaps {
		assert.Equal(t, entity.SnapshotDuplicate, s.Reason)
	}

	assert.Equal(t, newest.ID, env.listings.get(onStale.ID).VehicleID)
	assert.Equal(t, newest.ID, env.listings.get(onMiddle.ID).VehicleID)

	again, err := m.CollapseDuplicateVehicles(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, &MigrationReport{}, again)
	assert.Equal(t, 2, env.snapshots.count())
}

func TestRepairDanglingListingRefs(t *testing.T) {
	env := newTestEnv(t)
	m := newTestMaintenance(env)
	ctx := context.Background()

	current := env.vehicles.put(&entity.VehicleRecord{VRM: "AB12CDE", IsCurrent: true, CheckedAt: env.now})

	valid := env.listings.put(&entity.ListingRecord{AdvertID: "a1", VRM: "AB12CDE", VehicleID: current.ID})
	relink := env.listings.put(&entity.ListingRecord{AdvertID: "a2", VRM: "ab12 cde", VehicleID: "gone-1"})
	orphan := env.listings.put(&entity.ListingRecord{AdvertID: "a3", VRM: "XY34ZZZ", VehicleID: "gone-2"})
	unlinked := env.listings.put(&entity.ListingRecord{AdvertID: "a4", VRM: "AB12CDE"})

	report, err := m.RepairDanglingListingRefs(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, &MigrationReport{Examined: 3, Changed: 2}, report)

	assert.Equal(t, current.ID, env.listings.get(valid.ID).VehicleID)
	assert.Equal(t, current.ID, env.listings.get(relink.ID).VehicleID)
	assert.Empty(t, env.listings.get(orphan.ID).VehicleID)
	assert.Equal(t, 0, env.listings.saveCount(unlinked.ID))

	again, err := m.RepairDanglingListingRefs(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Changed)
	assert.Equal(t, 2, again.Examined)
}

func TestRefreshListing(t *testing.T) {
	env := newTestEnv(t)
	m := newTestMaintenance(env)
	ctx := context.Background()

	_, err := m.RefreshListing(ctx, "missing", false)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	env.listings.put(&entity.ListingRecord{AdvertID: "no-mark", Status: entity.ListingActive})
	_, err = m.RefreshListing(ctx, "no-mark", false)
	assert.ErrorIs(t, err, entity.ErrInvalidRegistration)

	listing := env.listings.put(&entity.ListingRecord{AdvertID: "a1", VRM: "YD17AVU", Status: entity.ListingActive})
	result, err := m.RefreshListing(ctx, "a1", false)
	require.NoError(t, err)
	assert.Equal(t, 4, result.APICalls)

	result, err = m.RefreshListing(ctx, "a1", true)
	require.NoError(t, err)
	assert.False(t, result.Cached)
	assert.Equal(t, int32(8), env.providers.totalCalls())
	assert.NotNil(t, env.listings.get(listing.ID).EnrichedAt)
}

func TestReconcileVRM(t *testing.T) {
	env := newTestEnv(t)
	m := newTestMaintenance(env)
	ctx := context.Background()

	_, err := m.ReconcileVRM(ctx, "!!")
	assert.ErrorIs(t, err, entity.ErrInvalidRegistration)

	_, err = m.ReconcileVRM(ctx, "AB12CDE")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	rec := recordWithMOT(61000, entity.UnitMiles)
	rec.ID = ""
	rec.IsCurrent = true
	rec.CheckedAt = env.now
	env.vehicles.put(rec)
	listing := env.listings.put(&entity.ListingRecord{AdvertID: "a1", VRM: "AB12CDE", Mileage: 60000, Status: entity.ListingActive})

	warnings, err := m.ReconcileVRM(ctx, "ab12cde")
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 61000, env.listings.get(listing.ID).Mileage)
	assert.Equal(t, int32(0), env.providers.totalCalls())
}
