package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vehicle-data-service/internal/domain/entity"
	"vehicle-data-service/internal/domain/repository"
	"vehicle-data-service/pkg/logger"
	"vehicle-data-service/pkg/utils"
)

// MergeHistory merges the history provider's description and checks
func MergeHistory(rec *entity.VehicleRecord, data *entity.HistoryData) {
	if data == nil {
		return
	}
	mergeDescription(rec, &data.Description)

	if rec.History == nil {
		h := data.History
		rec.History = &h
		return
	}

	cur, in := rec.History, &data.History
	if in.PreviousKeepers != nil {
		cur.PreviousKeepers = in.PreviousKeepers
	}
	if len(in.PlateChanges) > 0 {
		cur.PlateChanges = in.PlateChanges
	}
	if len(in.ColourChanges) > 0 {
		cur.ColourChanges = in.ColourChanges
	}
	if in.WriteOff.Category != entity.WriteOffUnknown && in.WriteOff.Category != "" {
		cur.WriteOff = in.WriteOff
	}
	cur.Stolen = in.Stolen
	cur.StolenDetail = utils.FirstNonPlaceholder(in.StolenDetail, pick(in.Stolen, cur.StolenDetail))
	cur.OutstandingFinance = in.OutstandingFinance
	cur.FinanceDetail = utils.FirstNonPlaceholder(in.FinanceDetail, pick(in.OutstandingFinance, cur.FinanceDetail))
	cur.Accident = in.Accident
	cur.AccidentDetail = utils.FirstNonPlaceholder(in.AccidentDetail, pick(in.Accident, cur.AccidentDetail))
}

// pick keeps an old detail only while its flag is still raised
func pick(flag bool, detail string) string {
	if flag {
		return detail
	}
	return ""
}

// MergeSpecs merges make/model/variant and running costs, then upgrades a
// pure fuel type to its hybrid form when the specs reveal a hybrid
func MergeSpecs(rec *entity.VehicleRecord, data *entity.SpecsData) {
	if data == nil {
		return
	}
	mergeDescription(rec, &data.Description)
	rec.RunningCosts = mergeRunningCosts(rec.RunningCosts, &data.RunningCosts)
	if data.Hybrid {
		rec.FuelType = hybridFuelType(rec.FuelType)
	}
}

// MergeMOT replaces the test list and derives the MOT summary. An empty
// incoming list never clears stored tests.
func MergeMOT(rec *entity.VehicleRecord, data *entity.MOTData) {
	if data == nil || len(data.Tests) == 0 {
		return
	}
	tests := append([]entity.MOTTest(nil), data.Tests...)
	entity.SortMOTTests(tests)
	rec.MOTTests = tests
	rec.DeriveMOTSummary()
}

// MergeValuation stores the valuation when it carries any price
func MergeValuation(rec *entity.VehicleRecord, data *entity.ValuationData) {
	if data == nil {
		return
	}
	v := data.Valuation
	if v.PrivatePrice <= 0 && v.DealerPrice <= 0 && v.PartExchangePrice <= 0 {
		return
	}
	rec.Valuation = &v
}

// FillFromPrevious carries the stored identity onto a freshly merged record
// and fills only the fields every provider left empty. prev may be nil.
func FillFromPrevious(rec, prev *entity.VehicleRecord) {
	if prev == nil {
		return
	}
	rec.ID = prev.ID
	rec.Version = prev.Version
	rec.CreatedAt = prev.CreatedAt

	mergeDescription(rec, &entity.VehicleDescription{
		Make:           prev.Make,
		Model:          prev.Model,
		Variant:        prev.Variant,
		Year:           prev.Year,
		BodyType:       prev.BodyType,
		FuelType:       prev.FuelType,
		Transmission:   prev.Transmission,
		EngineCapacity: prev.EngineCapacity,
		Colour:         prev.Colour,
		Doors:          prev.Doors,
		Seats:          prev.Seats,
	})
	rec.RunningCosts = mergeRunningCosts(rec.RunningCosts, prev.RunningCosts)

	if rec.History == nil && prev.History != nil {
		h := *prev.History
		rec.History = &h
	}
	if len(rec.MOTTests) == 0 && len(prev.MOTTests) > 0 {
		rec.MOTTests = append([]entity.MOTTest(nil), prev.MOTTests...)
		rec.MOTStatus = prev.MOTStatus
		if prev.MOTExpiry != nil {
			expiry := *prev.MOTExpiry
			rec.MOTExpiry = &expiry
		}
	}
	if rec.Valuation == nil && prev.Valuation != nil {
		v := *prev.Valuation
		rec.Valuation = &v
	}
}

func mergeDescription(rec *entity.VehicleRecord, d *entity.VehicleDescription) {
	rec.Make = utils.PreferString(rec.Make, d.Make)
	rec.Model = utils.PreferString(rec.Model, d.Model)
	rec.Variant = preferVariant(rec.Variant, d.Variant)
	rec.Year = preferInt(rec.Year, d.Year)
	rec.BodyType = utils.PreferString(rec.BodyType, d.BodyType)
	rec.FuelType = utils.PreferString(rec.FuelType, d.FuelType)
	rec.Transmission = utils.PreferString(rec.Transmission, d.Transmission)
	rec.EngineCapacity = preferInt(rec.EngineCapacity, d.EngineCapacity)
	rec.Colour = utils.PreferString(rec.Colour, d.Colour)
	rec.Doors = preferInt(rec.Doors, d.Doors)
	rec.Seats = preferInt(rec.Seats, d.Seats)
}

// preferVariant treats a variant that is only a fuel label as a placeholder
func preferVariant(current, incoming string) string {
	if utils.IsPlaceholder(incoming) {
		return current
	}
	if utils.IsPlaceholder(current) {
		return strings.TrimSpace(incoming)
	}
	if utils.IsFuelTypeLabel(current) && !utils.IsFuelTypeLabel(incoming) {
		return strings.TrimSpace(incoming)
	}
	return current
}

func preferInt(current, incoming *int) *int {
	if incoming == nil || *incoming == 0 {
		return current
	}
	if current == nil || *current == 0 {
		v := *incoming
		return &v
	}
	return current
}

func preferFloat(current, incoming *float64) *float64 {
	if incoming == nil || *incoming == 0 {
		return current
	}
	if current == nil || *current == 0 {
		v := *incoming
		return &v
	}
	return current
}

func mergeRunningCosts(current, incoming *entity.RunningCosts) *entity.RunningCosts {
	if incoming.IsEmpty() {
		return current
	}
	if current == nil {
		current = &entity.RunningCosts{}
	}
	merged := *current
	merged.UrbanMPG = preferFloat(current.UrbanMPG, incoming.UrbanMPG)
	merged.ExtraUrbanMPG = preferFloat(current.ExtraUrbanMPG, incoming.ExtraUrbanMPG)
	merged.CombinedMPG = preferFloat(current.CombinedMPG, incoming.CombinedMPG)
	merged.CO2Emissions = preferInt(current.CO2Emissions, incoming.CO2Emissions)
	merged.InsuranceGroup = utils.PreferString(current.InsuranceGroup, incoming.InsuranceGroup)
	merged.AnnualTax = preferFloat(current.AnnualTax, incoming.AnnualTax)
	return &merged
}

// hybridFuelType turns "Diesel" into "Diesel Hybrid" and "Petrol" into
// "Petrol Hybrid"; anything else is left alone
func hybridFuelType(fuel string) string {
	switch strings.ToLower(strings.TrimSpace(fuel)) {
	case "diesel":
		return "Diesel Hybrid"
	case "petrol":
		return "Petrol Hybrid"
	case "", "unknown":
		return "Hybrid"
	}
	return fuel
}

// Reconciler copies vehicle data onto the listings for the same mark
type Reconciler struct {
	listingRepo repository.ListingRepository
	logger      logger.Logger
	now         func() time.Time
}

// NewReconciler creates a new listing reconciler
func NewReconciler(listingRepo repository.ListingRepository, logger logger.Logger) *Reconciler {
	return &Reconciler{
		listingRepo: listingRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// ApplyToListing merges record into listing field by field. Fields the
// operator locked are left untouched.
func (r *Reconciler) ApplyToListing(listing *entity.ListingRecord, record *entity.VehicleRecord) {
	if record.ID != "" {
		listing.VehicleID = record.ID
	}

	setString := func(field string, dst *string, src string) {
		if !listing.IsLocked(field) {
			*dst = utils.PreferString(*dst, src)
		}
	}
	setInt := func(field string, dst **int, src *int) {
		if !listing.IsLocked(field) {
			*dst = preferInt(*dst, src)
		}
	}

	setString(entity.FieldMake, &listing.Make, record.Make)
	setString(entity.FieldModel, &listing.Model, record.Model)
	if !listing.IsLocked(entity.FieldVariant) {
		listing.Variant = preferVariant(listing.Variant, record.Variant)
	}
	setInt(entity.FieldYear, &listing.Year, record.Year)
	setString(entity.FieldBodyType, &listing.BodyType, record.BodyType)
	if !listing.IsLocked(entity.FieldFuelType) {
		listing.FuelType = utils.PreferString(listing.FuelType, record.FuelType)
		if strings.Contains(strings.ToLower(record.FuelType), "hybrid") {
			listing.FuelType = hybridFuelType(listing.FuelType)
		}
	}
	setString(entity.FieldTransmission, &listing.Transmission, record.Transmission)
	setInt(entity.FieldEngineSize, &listing.EngineCapacity, record.EngineCapacity)
	setString(entity.FieldColour, &listing.Colour, record.Colour)
	setInt(entity.FieldDoors, &listing.Doors, record.Doors)
	setInt(entity.FieldSeats, &listing.Seats, record.Seats)

	if !listing.IsLocked(entity.FieldRunningCosts) {
		listing.RunningCosts = mergeRunningCosts(listing.RunningCosts, record.RunningCosts)
	}

	if record.MOTStatus != "" {
		listing.MOTStatus = record.MOTStatus
	}
	if record.MOTExpiry != nil {
		expiry := *record.MOTExpiry
		listing.MOTExpiry = &expiry
	}

	// Mileage never goes down
	if latest := record.LatestMOT(); latest != nil && !listing.IsLocked(entity.FieldMileage) {
		if miles := latest.OdometerMiles(); miles > listing.Mileage {
			listing.Mileage = miles
		}
	}

	if record.Valuation != nil {
		v := *record.Valuation
		listing.Valuation = &v
		if v.HasPrivatePrice() && !listing.IsLocked(entity.FieldPrice) {
			listing.Price = v.PrivatePrice
		}
	}

	now := r.now()
	listing.EnrichedAt = &now
}

// ReconcileListings applies record to every live listing for its mark and
// saves each once. Failures are logged and returned as warnings.
func (r *Reconciler) ReconcileListings(
	ctx context.Context,
	record *entity.VehicleRecord,
	serviceErrors []entity.ServiceError,
) []string {
	listings, err := r.listingRepo.FindByVRM(ctx, record.VRM)
	if err != nil {
		r.logger.Error("Failed to load listings for reconciliation",
			"vrm", record.VRM,
			"error", err)
		return []string{fmt.Sprintf("listing lookup failed: %v", err)}
	}

	if len(listings) == 0 {
		r.logger.Debug("No listing to reconcile", "vrm", record.VRM)
		return nil
	}

	var warnings []string
	for _, listing := range listings {
		if listing.Status == entity.ListingExpired || listing.Status == entity.ListingCancelled {
			continue
		}

		r.ApplyToListing(listing, record)
		listing.EnrichmentErrors = nil
		for _, se := range serviceErrors {
			listing.EnrichmentErrors = append(listing.EnrichmentErrors, se.Service+": "+se.Error)
		}

		if err := r.listingRepo.Save(ctx, listing); err != nil {
			r.logger.Error("Failed to save reconciled listing",
				"vrm", record.VRM,
				"advertID", listing.AdvertID,
				"error", err)
			warnings = append(warnings, fmt.Sprintf("listing %s not saved: %v", listing.AdvertID, err))
			continue
		}

		r.logger.Info("Listing reconciled",
			"vrm", record.VRM,
			"advertID", listing.AdvertID,
			"mileage", listing.Mileage,
			"price", listing.Price)
	}
	return warnings
}
