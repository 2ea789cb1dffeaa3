package entity

import (
	"strings"
	"time"
)

// Valuation confidence
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// ParseConfidence maps provider confidence labels to low/medium/high
func ParseConfidence(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high", "h", "good":
		return ConfidenceHigh
	case "medium", "med", "m", "fair":
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Valuation holds price estimates computed at a specific mileage
type Valuation struct {
	PrivatePrice      float64   `bson:"privatePrice" json:"privatePrice"`
	DealerPrice       float64   `bson:"dealerPrice" json:"dealerPrice"`
	PartExchangePrice float64   `bson:"partExchangePrice" json:"partExchangePrice"`
	Confidence        string    `bson:"confidence" json:"confidence"`
	Mileage           int       `bson:"mileage" json:"mileage"`
	ValuedAt          time.Time `bson:"valuedAt" json:"valuedAt"`
}

// HasPrivatePrice reports whether a usable private-sale figure exists
func (v *Valuation) HasPrivatePrice() bool {
	return v != nil && v.PrivatePrice > 0
}
