package repository

import (
	"context"

	"vehicle-data-service/internal/domain/entity"
)

// HistoryProvider fetches descriptive and history checks for a mark
type HistoryProvider interface {
	FetchHistory(ctx context.Context, vrm string) (*entity.HistoryData, error)
}

// SpecsProvider fetches make/model/variant and running costs
type SpecsProvider interface {
	FetchSpecs(ctx context.Context, vrm string) (*entity.SpecsData, error)
}

// MOTProvider fetches the MOT test history, most recent first
type MOTProvider interface {
	FetchMOT(ctx context.Context, vrm string) (*entity.MOTData, error)
}

// ValuationProvider prices a vehicle at a given mileage
type ValuationProvider interface {
	FetchValuation(ctx context.Context, vrm string, mileage int) (*entity.ValuationData, error)
}
