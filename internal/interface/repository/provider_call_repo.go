package repository

import (
	"context"
	"time"

	"vehicle-data-service/internal/domain/entity"
	"vehicle-data-service/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormProviderCallRepository implements the ProviderCallRepository interface
type GormProviderCallRepository struct {
	db *gorm.DB
}

// NewGormProviderCallRepository creates a new GORM provider call ledger
func NewGormProviderCallRepository(db *gorm.DB) repository.ProviderCallRepository {
	return &GormProviderCallRepository{
		db: db,
	}
}

// ProviderCalls GORM model for database mapping
type ProviderCalls struct {
	ID         string          `gorm:"column:id;primaryKey;type:varchar(36)"`
	VRM        string          `gorm:"column:vrm;index;size:8"`
	Service    string          `gorm:"column:service;size:16"`
	Success    bool            `gorm:"column:success"`
	Cost       decimal.Decimal `gorm:"column:cost;type:numeric(10,4)"`
	DurationMS int64           `gorm:"column:duration_ms"`
	Error      string          `gorm:"column:error"`
	TestMode   bool            `gorm:"column:test_mode"`
	CalledAt   time.Time       `gorm:"column:called_at;index"`
}

// TableName overrides the default table name
func (ProviderCalls) TableName() string {
	return "provider_calls"
}

// Record appends a provider call to the ledger
func (r *GormProviderCallRepository) Record(ctx context.Context, call *entity.ProviderCall) error {
	if call.ID == "" {
		call.ID = uuid.NewString()
	}

	model := ProviderCalls{
		ID:         call.ID,
		VRM:        call.VRM,
		Service:    call.Service,
		Success:    call.Success,
		Cost:       call.Cost,
		DurationMS: call.Duration.Milliseconds(),
		Error:      call.Error,
		TestMode:   call.TestMode,
		CalledAt:   call.CalledAt,
	}

	return r.db.WithContext(ctx).Create(&model).Error
}

// TotalCostSince sums the cost of successful live calls made at or after since
func (r *GormProviderCallRepository) TotalCostSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&ProviderCalls{}).
		Select("SUM(cost)").
		Where("called_at >= ? AND success = ? AND test_mode = ?", since, true, false).
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
