// internal/domain/entity/vehicle.go
package entity

import (
	"time"
)

// Check status
const (
	CheckStatusSuccess = "success"
	CheckStatusPartial = "partial"
	CheckStatusFailed  = "failed"
)

// CacheTTL is how long a stored vehicle check is reused before a refresh
const CacheTTL = 30 * 24 * time.Hour

// RunningCosts is the single structured running-cost block. The flattened
// duplicates older consumers read are not stored.
type RunningCosts struct {
	UrbanMPG       *float64 `bson:"urbanMpg,omitempty" json:"urbanMpg,omitempty"`
	ExtraUrbanMPG  *float64 `bson:"extraUrbanMpg,omitempty" json:"extraUrbanMpg,omitempty"`
	CombinedMPG    *float64 `bson:"combinedMpg,omitempty" json:"combinedMpg,omitempty"`
	CO2Emissions   *int     `bson:"co2Emissions,omitempty" json:"co2Emissions,omitempty"`
	InsuranceGroup string   `bson:"insuranceGroup,omitempty" json:"insuranceGroup,omitempty"`
	AnnualTax      *float64 `bson:"annualTax,omitempty" json:"annualTax,omitempty"`
}

// IsEmpty reports whether no running-cost figure is known
func (rc *RunningCosts) IsEmpty() bool {
	if rc == nil {
		return true
	}
	return rc.UrbanMPG == nil && rc.ExtraUrbanMPG == nil && rc.CombinedMPG == nil &&
		rc.CO2Emissions == nil && rc.InsuranceGroup == "" && rc.AnnualTax == nil
}

// VehicleRecord is the persisted aggregate for one registration mark.
// Exactly one record per VRM carries IsCurrent; superseded copies live in
// the vehicle_snapshots collection.
type VehicleRecord struct {
	ID        string `bson:"_id,omitempty" json:"id"`
	VRM       string `bson:"vrm" json:"vrm"`
	Version   int64  `bson:"version" json:"version"`
	IsCurrent bool   `bson:"isCurrent" json:"isCurrent"`

	Make           string `bson:"make,omitempty" json:"make,omitempty"`
	Model          string `bson:"model,omitempty" json:"model,omitempty"`
	Variant        string `bson:"variant,omitempty" json:"variant,omitempty"`
	Year           *int   `bson:"year,omitempty" json:"year,omitempty"`
	BodyType       string `bson:"bodyType,omitempty" json:"bodyType,omitempty"`
	FuelType       string `bson:"fuelType,omitempty" json:"fuelType,omitempty"`
	Transmission   string `bson:"transmission,omitempty" json:"transmission,omitempty"`
	EngineCapacity *int   `bson:"engineCapacity,omitempty" json:"engineCapacity,omitempty"`
	Colour         string `bson:"colour,omitempty" json:"colour,omitempty"`
	Doors          *int   `bson:"doors,omitempty" json:"doors,omitempty"`
	Seats          *int   `bson:"seats,omitempty" json:"seats,omitempty"`

	RunningCosts *RunningCosts   `bson:"runningCosts,omitempty" json:"runningCosts,omitempty"`
	History      *VehicleHistory `bson:"history,omitempty" json:"history,omitempty"`

	MOTTests  []MOTTest  `bson:"motTests,omitempty" json:"motTests,omitempty"`
	MOTStatus string     `bson:"motStatus,omitempty" json:"motStatus,omitempty"`
	MOTExpiry *time.Time `bson:"motExpiry,omitempty" json:"motExpiry,omitempty"`

	Valuation *Valuation `bson:"valuation,omitempty" json:"valuation,omitempty"`

	CheckedAt   time.Time `bson:"checkedAt" json:"checkedAt"`
	CheckStatus string    `bson:"checkStatus" json:"checkStatus"`
	Provider    string    `bson:"provider" json:"provider"`
	TestMode    bool      `bson:"testMode" json:"testMode"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewVehicleRecord creates an empty current record for a normalized VRM
func NewVehicleRecord(vrm string) *VehicleRecord {
	return &VehicleRecord{VRM: vrm, IsCurrent: true}
}

// Age returns how long ago the record was checked
func (v *VehicleRecord) Age(now time.Time) time.Duration {
	return now.Sub(v.CheckedAt)
}

// IsFresh reports whether the record is younger than ttl
func (v *VehicleRecord) IsFresh(now time.Time, ttl time.Duration) bool {
	if v == nil || v.CheckedAt.IsZero() {
		return false
	}
	return v.Age(now) < ttl
}

// LatestMOT returns the most recent MOT test, or nil
func (v *VehicleRecord) LatestMOT() *MOTTest {
	if len(v.MOTTests) == 0 {
		return nil
	}
	return &v.MOTTests[0]
}

// DeriveMOTSummary sets MOTStatus and MOTExpiry from the latest test. An
// unknown result leaves the status unset.
func (v *VehicleRecord) DeriveMOTSummary() {
	latest := v.LatestMOT()
	if latest == nil {
		return
	}
	v.MOTStatus = ""
	if latest.Result != MOTUnknown {
		v.MOTStatus = latest.Result
	}
	if latest.ExpiryDate != nil {
		expiry := *latest.ExpiryDate
		v.MOTExpiry = &expiry
	}
}

// Clone returns a deep enough copy to be stored as a snapshot
func (v *VehicleRecord) Clone() *VehicleRecord {
	c := *v
	if v.MOTTests != nil {
		c.MOTTests = append([]MOTTest(nil), v.MOTTests...)
	}
	if v.RunningCosts != nil {
		rc := *v.RunningCosts
		c.RunningCosts = &rc
	}
	if v.History != nil {
		h := *v.History
		c.History = &h
	}
	if v.Valuation != nil {
		val := *v.Valuation
		c.Valuation = &val
	}
	return &c
}
