package entity

import (
	"strings"
	"time"
)

// WriteOffCategory is the insurance total-loss classification
type WriteOffCategory string

const (
	WriteOffA       WriteOffCategory = "A"
	WriteOffB       WriteOffCategory = "B"
	WriteOffC       WriteOffCategory = "C"
	WriteOffD       WriteOffCategory = "D"
	WriteOffS       WriteOffCategory = "S"
	WriteOffN       WriteOffCategory = "N"
	WriteOffNone    WriteOffCategory = "none"
	WriteOffUnknown WriteOffCategory = "unknown"
)

// ParseWriteOffCategory maps the provider's free-form category into the
// closed set. "Cat S", "CAT-N" and "s" all resolve.
func ParseWriteOffCategory(raw string) WriteOffCategory {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "CATEGORY")
	s = strings.TrimPrefix(s, "CAT")
	s = strings.Trim(s, " -:")
	switch s {
	case "A", "B", "C", "D", "S", "N":
		return WriteOffCategory(s)
	case "", "NONE", "NO", "FALSE":
		return WriteOffNone
	default:
		return WriteOffUnknown
	}
}

// WriteOff describes a recorded write-off
type WriteOff struct {
	Category    WriteOffCategory `bson:"category" json:"category"`
	Date        *time.Time       `bson:"date,omitempty" json:"date,omitempty"`
	Description string           `bson:"description,omitempty" json:"description,omitempty"`
}

// PlateChange is one entry in the plate change log
type PlateChange struct {
	PreviousVRM string     `bson:"previousVrm" json:"previousVrm"`
	ChangedAt   *time.Time `bson:"changedAt,omitempty" json:"changedAt,omitempty"`
}

// ColourChange is one entry in the colour change log
type ColourChange struct {
	PreviousColour string     `bson:"previousColour" json:"previousColour"`
	ChangedAt      *time.Time `bson:"changedAt,omitempty" json:"changedAt,omitempty"`
}

// VehicleHistory holds the provenance checks from the history provider
type VehicleHistory struct {
	PreviousKeepers    *int           `bson:"previousKeepers,omitempty" json:"previousKeepers,omitempty"`
	PlateChanges       []PlateChange  `bson:"plateChanges,omitempty" json:"plateChanges,omitempty"`
	ColourChanges      []ColourChange `bson:"colourChanges,omitempty" json:"colourChanges,omitempty"`
	WriteOff           WriteOff       `bson:"writeOff" json:"writeOff"`
	Stolen             bool           `bson:"stolen" json:"stolen"`
	StolenDetail       string         `bson:"stolenDetail,omitempty" json:"stolenDetail,omitempty"`
	OutstandingFinance bool           `bson:"outstandingFinance" json:"outstandingFinance"`
	FinanceDetail      string         `bson:"financeDetail,omitempty" json:"financeDetail,omitempty"`
	Accident           bool           `bson:"accident" json:"accident"`
	AccidentDetail     string         `bson:"accidentDetail,omitempty" json:"accidentDetail,omitempty"`
}

// IsWrittenOff reports whether any write-off category applies
func (h *VehicleHistory) IsWrittenOff() bool {
	if h == nil {
		return false
	}
	switch h.WriteOff.Category {
	case WriteOffNone, WriteOffUnknown, "":
		return false
	}
	return true
}
