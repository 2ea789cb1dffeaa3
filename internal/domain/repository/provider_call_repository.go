package repository

import (
	"context"
	"time"

	"vehicle-data-service/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// ProviderCallRepository records every billable provider request
type ProviderCallRepository interface {
	Record(ctx context.Context, call *entity.ProviderCall) error
	TotalCostSince(ctx context.Context, since time.Time) (decimal.Decimal, error)
}
