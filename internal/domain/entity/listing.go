// internal/domain/entity/listing.go
package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"vehicle-data-service/pkg/utils"
)

// Listing status
const (
	ListingPending   = "pending"
	ListingActive    = "active"
	ListingExpired   = "expired"
	ListingCancelled = "cancelled"
)

// Listing fields an operator can lock against automatic updates
const (
	FieldPrice        = "price"
	FieldMileage      = "mileage"
	FieldMake         = "make"
	FieldModel        = "model"
	FieldVariant      = "variant"
	FieldYear         = "year"
	FieldBodyType     = "bodyType"
	FieldFuelType     = "fuelType"
	FieldTransmission = "transmission"
	FieldEngineSize   = "engineCapacity"
	FieldColour       = "colour"
	FieldDoors        = "doors"
	FieldSeats        = "seats"
	FieldRunningCosts = "runningCosts"
)

var listingTransitions = map[string][]string{
	ListingPending: {ListingActive, ListingCancelled},
	ListingActive:  {ListingExpired, ListingCancelled},
}

// SellerContact is the contact block shown on an advert
type SellerContact struct {
	Type     string `bson:"type" json:"type"` // private | trade
	Phone    string `bson:"phone,omitempty" json:"phone,omitempty"`
	Email    string `bson:"email,omitempty" json:"email,omitempty"`
	Postcode string `bson:"postcode,omitempty" json:"postcode,omitempty"`
}

// AdvertPackage is the paid advertising package attached to a listing
type AdvertPackage struct {
	ID           string     `bson:"id" json:"id"`
	Name         string     `bson:"name" json:"name"`
	DurationDays int        `bson:"durationDays" json:"durationDays"`
	Price        float64    `bson:"price" json:"price"`
	ExpiresAt    *time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
}

// ListingRecord is a publishable advert. VehicleID is a weak reference to a
// VehicleRecord and may be empty or point at a record that no longer exists.
type ListingRecord struct {
	ID        string `bson:"_id,omitempty" json:"id"`
	AdvertID  string `bson:"advertId" json:"advertId"`
	VRM       string `bson:"vrm,omitempty" json:"vrm,omitempty"`
	VehicleID string `bson:"vehicleId,omitempty" json:"vehicleId,omitempty"`
	Version   int64  `bson:"version" json:"version"`

	Price       float64        `bson:"price" json:"price"`
	Mileage     int            `bson:"mileage" json:"mileage"`
	Description string         `bson:"description,omitempty" json:"description,omitempty"`
	Images      []string       `bson:"images,omitempty" json:"images,omitempty"`
	Seller      SellerContact  `bson:"seller" json:"seller"`
	Package     *AdvertPackage `bson:"package,omitempty" json:"package,omitempty"`

	Status      string     `bson:"status" json:"status"`
	PublishedAt *time.Time `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`

	Make           string        `bson:"make,omitempty" json:"make,omitempty"`
	Model          string        `bson:"model,omitempty" json:"model,omitempty"`
	Variant        string        `bson:"variant,omitempty" json:"variant,omitempty"`
	Year           *int          `bson:"year,omitempty" json:"year,omitempty"`
	BodyType       string        `bson:"bodyType,omitempty" json:"bodyType,omitempty"`
	FuelType       string        `bson:"fuelType,omitempty" json:"fuelType,omitempty"`
	Transmission   string        `bson:"transmission,omitempty" json:"transmission,omitempty"`
	EngineCapacity *int          `bson:"engineCapacity,omitempty" json:"engineCapacity,omitempty"`
	Colour         string        `bson:"colour,omitempty" json:"colour,omitempty"`
	Doors          *int          `bson:"doors,omitempty" json:"doors,omitempty"`
	Seats          *int          `bson:"seats,omitempty" json:"seats,omitempty"`
	RunningCosts   *RunningCosts `bson:"runningCosts,omitempty" json:"runningCosts,omitempty"`
	MOTStatus      string        `bson:"motStatus,omitempty" json:"motStatus,omitempty"`
	MOTExpiry      *time.Time    `bson:"motExpiry,omitempty" json:"motExpiry,omitempty"`
	Valuation      *Valuation    `bson:"valuation,omitempty" json:"valuation,omitempty"`

	ManualOverrides  []string   `bson:"manualOverrides,omitempty" json:"manualOverrides,omitempty"`
	EnrichedAt       *time.Time `bson:"enrichedAt,omitempty" json:"enrichedAt,omitempty"`
	EnrichmentErrors []string   `bson:"enrichmentErrors,omitempty" json:"enrichmentErrors,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewListingRecord creates a pending advert with a fresh opaque advert id
func NewListingRecord(vrm string, now time.Time) *ListingRecord {
	return &ListingRecord{
		AdvertID:  uuid.NewString(),
		VRM:       utils.NormalizeVRM(vrm),
		Status:    ListingPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsLocked reports whether an operator has locked field
func (l *ListingRecord) IsLocked(field string) bool {
	for _, f := range l.ManualOverrides {
		if f == field {
			return true
		}
	}
	return false
}

// Lock marks field as manually overridden
func (l *ListingRecord) Lock(field string) {
	if !l.IsLocked(field) {
		l.ManualOverrides = append(l.ManualOverrides, field)
	}
}

// Unlock clears a manual override
func (l *ListingRecord) Unlock(field string) {
	kept := l.ManualOverrides[:0]
	for _, f := range l.ManualOverrides {
		if f != field {
			kept = append(kept, f)
		}
	}
	l.ManualOverrides = kept
}

// CanTransition reports whether the lifecycle allows moving to status
func (l *ListingRecord) CanTransition(to string) bool {
	for _, allowed := range listingTransitions[l.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves the listing along pending -> active -> expired/cancelled
func (l *ListingRecord) Transition(to string, now time.Time) error {
	if !l.CanTransition(to) {
		return fmt.Errorf("listing %s: cannot move from %q to %q", l.AdvertID, l.Status, to)
	}
	l.Status = to
	if to == ListingActive {
		l.PublishedAt = &now
		if l.Package != nil && l.Package.DurationDays > 0 {
			expires := now.AddDate(0, 0, l.Package.DurationDays)
			l.Package.ExpiresAt = &expires
		}
	}
	l.UpdatedAt = now
	return nil
}

// IsExpired reports whether an active listing has passed its package expiry
func (l *ListingRecord) IsExpired(now time.Time) bool {
	return l.Status == ListingActive && l.Package != nil &&
		l.Package.ExpiresAt != nil && !now.Before(*l.Package.ExpiresAt)
}
