package usecase

import (
	"context"
	"fmt"
	"time"

	"vehicle-data-service/internal/domain/entity"
	"vehicle-data-service/internal/domain/repository"
	"vehicle-data-service/pkg/logger"
	"vehicle-data-service/pkg/utils"
)

// MigrationReport counts what a maintenance run looked at and changed
type MigrationReport struct {
	Examined int
	Changed  int
	Failed   int
}

// Maintenance holds the idempotent data repairs and operator re-runs.
// Running any of them twice leaves the store as the first run did.
type Maintenance struct {
	vehicleRepo  repository.VehicleRepository
	snapshotRepo repository.VehicleSnapshotRepository
	listingRepo  repository.ListingRepository
	fetcher      VehicleFetcher
	reconciler   *Reconciler
	logger       logger.Logger
	now          func() time.Time
}

// NewMaintenance creates the maintenance use case
func NewMaintenance(
	vehicleRepo repository.VehicleRepository,
	snapshotRepo repository.VehicleSnapshotRepository,
	listingRepo repository.ListingRepository,
	fetcher VehicleFetcher,
	reconciler *Reconciler,
	logger logger.Logger,
) *Maintenance {
	return &Maintenance{
		vehicleRepo:  vehicleRepo,
		snapshotRepo: snapshotRepo,
		listingRepo:  listingRepo,
		fetcher:      fetcher,
		reconciler:   reconciler,
		logger:       logger,
		now:          time.Now,
	}
}

// CollapseDuplicateVehicles keeps the newest record per mark as current and
// moves every other record to the snapshot log
func (m *Maintenance) CollapseDuplicateVehicles(ctx context.Context, limit int) (*MigrationReport, error) {
	vrms, err := m.vehicleRepo.DuplicateVRMs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list duplicate marks: %w", err)
	}

	report := &MigrationReport{}
	for _, vrm := range vrms {
		report.Examined++
		if err := m.collapse(ctx, vrm); err != nil {
			m.logger.Error("Failed to collapse duplicate vehicle records",
				"vrm", vrm,
				"error", err)
			report.Failed++
			continue
		}
		report.Changed++
	}

	m.logger.Info("Duplicate vehicle migration finished",
		"examined", report.Examined,
		"changed", report.Changed,
		"failed", report.Failed)
	return report, nil
}

func (m *Maintenance) collapse(ctx context.Context, vrm string) error {
	records, err := m.vehicleRepo.FindByVRM(ctx, vrm)
	if err != nil {
		return err
	}
	if len(records) < 2 {
		return nil
	}

	keeper := records[0]
	for _, r := range records[1:] {
		if r.CheckedAt.After(keeper.CheckedAt) {
			keeper = r
		}
	}

	now := m.now()
	for _, r := range records {
		if r == keeper {
			continue
		}
		snapshot := &entity.VehicleSnapshot{
			VRM:          vrm,
			VehicleID:    r.ID,
			Reason:       entity.SnapshotDuplicate,
			Record:       r,
			SupersededAt: now,
		}
		if err := m.snapshotRepo.Append(ctx, snapshot); err != nil {
			return fmt.Errorf("snapshot %s: %w", r.ID, err)
		}
		if err := m.vehicleRepo.Delete(ctx, r.ID); err != nil {
			return fmt.Errorf("delete %s: %w", r.ID, err)
		}
		if err := m.repoint(ctx, vrm, r.ID, keeper.ID); err != nil {
			return err
		}
	}

	if !keeper.IsCurrent {
		keeper.IsCurrent = true
		if err := m.vehicleRepo.Save(ctx, keeper); err != nil {
			return fmt.Errorf("promote %s: %w", keeper.ID, err)
		}
	}
	return nil
}

// repoint moves listings of a collapsed record over to the keeper
func (m *Maintenance) repoint(ctx context.Context, vrm, fromID, toID string) error {
	listings, err := m.listingRepo.FindByVRM(ctx, vrm)
	if err != nil {
		return fmt.Errorf("find listings for %s: %w", fromID, err)
	}
	for _, l := range listings {
		if l.VehicleID != fromID {
			continue
		}
		l.VehicleID = toID
		if err := m.listingRepo.Save(ctx, l); err != nil {
			return fmt.Errorf("repoint listing %s: %w", l.AdvertID, err)
		}
	}
	return nil
}

// RepairDanglingListingRefs re-links listings whose vehicle reference points
// at a missing record to the current record for their mark, or clears it
func (m *Maintenance) RepairDanglingListingRefs(ctx context.Context, pageSize int) (*MigrationReport, error) {
	if pageSize <= 0 {
		pageSize = 100
	}

	report := &MigrationReport{}
	afterID := ""
	for {
		listings, err := m.listingRepo.FindWithVehicleRef(ctx, afterID, pageSize)
		if err != nil {
			return report, fmt.Errorf("failed to page listings: %w", err)
		}
		if len(listings) == 0 {
			break
		}

		for _, l := range listings {
			afterID = l.ID
			report.Examined++

			changed, err := m.repairRef(ctx, l)
			if err != nil {
				m.logger.Error("Failed to repair listing reference",
					"advertID", l.AdvertID,
					"error", err)
				report.Failed++
				continue
			}
			if changed {
				report.Changed++
			}
		}

		if len(listings) < pageSize {
			break
		}
	}

	m.logger.Info("Dangling reference migration finished",
		"examined", report.Examined,
		"changed", report.Changed,
		"failed", report.Failed)
	return report, nil
}

func (m *Maintenance) repairRef(ctx context.Context, l *entity.ListingRecord) (bool, error) {
	vehicle, err := m.vehicleRepo.FindByID(ctx, l.VehicleID)
	if err != nil {
		return false, err
	}
	if vehicle != nil {
		return false, nil
	}

	target := ""
	if l.VRM != "" {
		current, err := m.vehicleRepo.FindCurrent(ctx, utils.NormalizeVRM(l.VRM))
		if err != nil {
			return false, err
		}
		if current != nil {
			target = current.ID
		}
	}

	m.logger.Info("Repairing dangling vehicle reference",
		"advertID", l.AdvertID,
		"from", l.VehicleID,
		"to", target)

	l.VehicleID = target
	if err := m.listingRepo.Save(ctx, l); err != nil {
		return false, err
	}
	return true, nil
}

// RefreshListing re-runs the vehicle check for one advert
func (m *Maintenance) RefreshListing(ctx context.Context, advertID string, force bool) (*entity.CheckResult, error) {
	listing, err := m.listingRepo.FindByAdvertID(ctx, advertID)
	if err != nil {
		return nil, fmt.Errorf("failed to load listing: %w", err)
	}
	if listing == nil {
		return nil, fmt.Errorf("listing %s: %w", advertID, entity.ErrNotFound)
	}
	if listing.VRM == "" {
		return nil, &entity.ValidationError{Field: "vrm", Value: "", Reason: entity.ErrInvalidRegistration}
	}

	return m.fetcher.FetchCompleteVehicleData(ctx, listing.VRM, listing.Mileage, force)
}

// ReconcileVRM copies the stored record onto its listings without calling
// any provider
func (m *Maintenance) ReconcileVRM(ctx context.Context, mark string) ([]string, error) {
	vrm := utils.NormalizeVRM(mark)
	if !utils.IsValidVRM(vrm) {
		return nil, &entity.ValidationError{Field: "vrm", Value: mark, Reason: entity.ErrInvalidRegistration}
	}

	record, err := m.vehicleRepo.FindCurrent(ctx, vrm)
	if err != nil {
		return nil, fmt.Errorf("failed to load vehicle: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("vehicle %s: %w", vrm, entity.ErrNotFound)
	}
	return m.reconciler.ReconcileListings(ctx, record, nil), nil
}
