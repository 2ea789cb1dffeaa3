package entity

// Provider services
const (
	ServiceHistory   = "history"
	ServiceSpecs     = "specs"
	ServiceMOT       = "mot"
	ServiceValuation = "valuation"
)

// Services lists the provider calls in merge order
var Services = []string{ServiceHistory, ServiceSpecs, ServiceMOT, ServiceValuation}

// VehicleDescription is the descriptive block both the history and the
// specs providers can return. Empty strings and nil pointers mean unknown.
type VehicleDescription struct {
	Make           string `json:"make,omitempty"`
	Model          string `json:"model,omitempty"`
	Variant        string `json:"variant,omitempty"`
	Year           *int   `json:"year,omitempty"`
	BodyType       string `json:"bodyType,omitempty"`
	FuelType       string `json:"fuelType,omitempty"`
	Transmission   string `json:"transmission,omitempty"`
	EngineCapacity *int   `json:"engineCapacity,omitempty"`
	Colour         string `json:"colour,omitempty"`
	Doors          *int   `json:"doors,omitempty"`
	Seats          *int   `json:"seats,omitempty"`
}

// HistoryData is the canonical output of the history provider
type HistoryData struct {
	Description VehicleDescription `json:"description"`
	History     VehicleHistory     `json:"history"`
}

// SpecsData is the canonical output of the vehicle-specs provider
type SpecsData struct {
	Description  VehicleDescription `json:"description"`
	RunningCosts RunningCosts       `json:"runningCosts"`
	// Hybrid is set when the provider identifies a hybrid or MHEV drivetrain
	Hybrid bool `json:"hybrid"`
}

// MOTData is the canonical output of the MOT provider, most recent first
type MOTData struct {
	Tests []MOTTest `json:"tests"`
}

// ValuationData is the canonical output of the valuation provider
type ValuationData struct {
	Valuation Valuation `json:"valuation"`
}
