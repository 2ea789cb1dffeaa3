package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-data-service/internal/domain/entity"
)

func TestCachePolicy_Check(t *testing.T) {
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		env := newTestEnv(t)
		res, err := env.cache.Check(ctx, "AB12CDE")
		require.NoError(t, err)
		assert.False(t, res.Hit)
		assert.False(t, res.Stale)
		assert.Nil(t, res.Record)
	})

	t.Run("fresh record is a hit", func(t *testing.T) {
		env := newTestEnv(t)
		env.vehicles.put(&entity.VehicleRecord{
			VRM: "AB12CDE", IsCurrent: true, CheckedAt: env.now.Add(-29 * 24 * time.Hour),
			CheckStatus: entity.CheckStatusSuccess,
		})

		res, err := env.cache.Check(ctx, "ab12 cde")
		require.NoError(t, err)
		assert.True(t, res.Hit)
		assert.Equal(t, 29*24*time.Hour, res.Age)
	})

	t.Run("partial check counts as a hit", func(t *testing.T) {
		env := newTestEnv(t)
		env.vehicles.put(&entity.VehicleRecord{
			VRM: "AB12CDE", IsCurrent: true, CheckedAt: env.now.Add(-time.Hour),
			CheckStatus: entity.CheckStatusPartial,
		})

		res, err := env.cache.Check(ctx, "AB12CDE")
		require.NoError(t, err)
		assert.True(t, res.Hit)
	})

	t.Run("exactly thirty days is stale", func(t *testing.T) {
		env := newTestEnv(t)
		env.vehicles.put(&entity.VehicleRecord{
			VRM: "AB12CDE", IsCurrent: true, CheckedAt: env.now.Add(-entity.CacheTTL),
			CheckStatus: entity.CheckStatusSuccess,
		})

		res, err := env.cache.Check(ctx, "AB12CDE")
		require.NoError(t, err)
		assert.False(t, res.Hit)
		assert.True(t, res.Stale)
		assert.NotNil(t, res.Record)
	})

	t.Run("failed check is stale", func(t *testing.T) {
		env := newTestEnv(t)
		env.vehicles.put(&entity.VehicleRecord{
			VRM: "AB12CDE", IsCurrent: true, CheckedAt: env.now,
			CheckStatus: entity.CheckStatusFailed,
		})

		res, err := env.cache.Check(ctx, "AB12CDE")
		require.NoError(t, err)
		assert.True(t, res.Stale)
	})

	t.Run("never checked is stale", func(t *testing.T) {
		env := newTestEnv(t)
		env.vehicles.put(&entity.VehicleRecord{VRM: "AB12CDE", IsCurrent: true})

		res, err := env.cache.Check(ctx, "AB12CDE")
		require.NoError(t, err)
		assert.True(t, res.Stale)
	})

	t.Run("current record wins over newer duplicate", func(t *testing.T) {
		env := newTestEnv(t)
		current := env.vehicles.put(&entity.VehicleRecord{
			VRM: "AB12CDE", IsCurrent: true, CheckedAt: env.now.Add(-48 * time.Hour),
			CheckStatus: entity.CheckStatusSuccess,
		})
		env.vehicles.put(&entity.VehicleRecord{
			VRM: "AB12CDE", CheckedAt: env.now.Add(-time.Hour),
			CheckStatus: entity.CheckStatusSuccess,
		})

		res, err := env.cache.Check(ctx, "AB12CDE")
		require.NoError(t, err)
		assert.Equal(t, current.ID, res.Record.ID)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0], "2 vehicle records")
	})

	t.Run("repository error", func(t *testing.T) {
		env := newTestEnv(t)
		env.vehicles.findErr = errors.New("connection reset")

		_, err := env.cache.Check(ctx, "AB12CDE")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AB12CDE")
	})
}

func TestPickRecord_NewestWithoutCurrent(t *testing.T) {
	now := time.Now()
	older := &entity.VehicleRecord{ID: "a", CheckedAt: now.Add(-time.Hour)}
	newer := &entity.VehicleRecord{ID: "b", CheckedAt: now}

	assert.Equal(t, "b", pickRecord([]*entity.VehicleRecord{older, newer}).ID)
}
