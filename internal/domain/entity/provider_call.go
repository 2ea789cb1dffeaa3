package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProviderCall is one billable provider request in the append-only ledger
type ProviderCall struct {
	ID       string
	VRM      string
	Service  string
	Success  bool
	Cost     decimal.Decimal
	Duration time.Duration
	Error    string
	TestMode bool
	CalledAt time.Time
}

// VehicleSnapshot is a superseded VehicleRecord kept for audit
type VehicleSnapshot struct {
	ID           string         `bson:"_id,omitempty"`
	VRM          string         `bson:"vrm"`
	VehicleID    string         `bson:"vehicleId"`
	Reason       string         `bson:"reason"`
	Record       *VehicleRecord `bson:"record"`
	SupersededAt time.Time      `bson:"supersededAt"`
}

// Snapshot reasons
const (
	SnapshotRefresh   = "refresh"
	SnapshotDuplicate = "duplicate"
)
